package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveSweepDuration(time.Second)
	r.IncSweepResult(SweepSuccess)
	r.SetDuePlants(3)
	r.IncRemindersSent()
	r.IncReminderFailures()
	r.IncRemindersSkipped()
}

func TestPrometheusRecorderRegisters(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveSweepDuration(250 * time.Millisecond)
	r.IncSweepResult(SweepSuccess)
	r.IncSweepResult(SweepSkipped)
	r.SetDuePlants(2)
	r.IncRemindersSent()
	r.IncReminderFailures()
	r.IncRemindersSkipped()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"plantkeeper_sweep_duration_seconds",
		"plantkeeper_sweep_results_total",
		"plantkeeper_due_plants",
		"plantkeeper_reminders_sent_total",
		"plantkeeper_reminder_failures_total",
		"plantkeeper_reminders_skipped_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestPrometheusRecorderNilReceiverSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObserveSweepDuration(time.Second)
	r.IncSweepResult(SweepFailed)
	r.SetDuePlants(0)
	r.IncRemindersSent()
	r.IncReminderFailures()
	r.IncRemindersSkipped()
}
