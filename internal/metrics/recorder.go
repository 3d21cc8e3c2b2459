package metrics

import "time"

// SweepResult enumerates sweep outcome categories for counters.
type SweepResult string

const (
	SweepSuccess SweepResult = "success"
	SweepFailed  SweepResult = "failed"
	SweepSkipped SweepResult = "skipped"
)

// Recorder defines observability hooks for the reminder dispatcher.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe on the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveSweepDuration(d time.Duration)
	IncSweepResult(result SweepResult)
	SetDuePlants(n int)
	IncRemindersSent()
	IncReminderFailures()
	IncRemindersSkipped() // candidate lost the conditional write to a racing writer
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveSweepDuration(time.Duration) {}
func (NoopRecorder) IncSweepResult(SweepResult)         {}
func (NoopRecorder) SetDuePlants(int)                   {}
func (NoopRecorder) IncRemindersSent()                  {}
func (NoopRecorder) IncReminderFailures()               {}
func (NoopRecorder) IncRemindersSkipped()               {}
