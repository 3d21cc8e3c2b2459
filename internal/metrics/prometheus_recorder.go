package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	sweepDuration    prom.Histogram
	sweepResults     *prom.CounterVec
	duePlants        prom.Gauge
	remindersSent    prom.Counter
	reminderFailures prom.Counter
	remindersSkipped prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.sweepDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "plantkeeper",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reminder dispatch sweeps",
			Buckets:   prom.DefBuckets,
		})
		pr.sweepResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "plantkeeper",
			Name:      "sweep_results_total",
			Help:      "Sweep outcomes by result",
		}, []string{"result"})
		pr.duePlants = prom.NewGauge(prom.GaugeOpts{
			Namespace: "plantkeeper",
			Name:      "due_plants",
			Help:      "Number of due, reminder-enabled plants found by the last sweep",
		})
		pr.remindersSent = prom.NewCounter(prom.CounterOpts{
			Namespace: "plantkeeper",
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications handed to the sender",
		})
		pr.reminderFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: "plantkeeper",
			Name:      "reminder_failures_total",
			Help:      "Reminder notifications that failed to send",
		})
		pr.remindersSkipped = prom.NewCounter(prom.CounterOpts{
			Namespace: "plantkeeper",
			Name:      "reminders_skipped_total",
			Help:      "Candidates skipped because a racing writer advanced the schedule first",
		})
		reg.MustRegister(pr.sweepDuration, pr.sweepResults, pr.duePlants,
			pr.remindersSent, pr.reminderFailures, pr.remindersSkipped)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveSweepDuration(d time.Duration) {
	if p == nil || p.sweepDuration == nil {
		return
	}
	p.sweepDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSweepResult(result SweepResult) {
	if p == nil || p.sweepResults == nil {
		return
	}
	p.sweepResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetDuePlants(n int) {
	if p == nil || p.duePlants == nil {
		return
	}
	p.duePlants.Set(float64(n))
}

func (p *PrometheusRecorder) IncRemindersSent() {
	if p == nil || p.remindersSent == nil {
		return
	}
	p.remindersSent.Inc()
}

func (p *PrometheusRecorder) IncReminderFailures() {
	if p == nil || p.reminderFailures == nil {
		return
	}
	p.reminderFailures.Inc()
}

func (p *PrometheusRecorder) IncRemindersSkipped() {
	if p == nil || p.remindersSkipped == nil {
		return
	}
	p.remindersSkipped.Inc()
}
