// Package daemon runs the reminder dispatch engine: a gocron-driven daily
// sweep over due plants with an optional metrics listener and live config
// reload.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/plantkeeper/internal/config"
	"git.home.luguber.info/inful/plantkeeper/internal/errors"
	"git.home.luguber.info/inful/plantkeeper/internal/logfields"
	"git.home.luguber.info/inful/plantkeeper/internal/metrics"
)

// Daemon wires the dispatcher to its daily trigger and owns the supporting
// services (metrics listener, config watcher).
type Daemon struct {
	configPath string
	dispatcher *Dispatcher
	scheduler  *Scheduler
	clock      clockwork.Clock

	mu       sync.Mutex
	cfg      *config.Config
	sweepJob uuid.UUID

	workers    WorkerGroup
	watcher    *ConfigWatcher
	metricsSrv *http.Server
}

// New builds a daemon around an already-constructed dispatcher.
func New(configPath string, cfg *config.Config, dispatcher *Dispatcher, clock clockwork.Clock) (*Daemon, error) {
	loc, err := cfg.Reminders.Location()
	if err != nil {
		return nil, err
	}
	scheduler, err := NewScheduler(clock, loc)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		configPath: configPath,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		clock:      clock,
		cfg:        cfg,
	}, nil
}

// Start schedules the daily sweep and brings up the supporting services.
func (d *Daemon) Start(ctx context.Context, registry *prom.Registry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.scheduleSweepLocked(); err != nil {
		return err
	}
	d.scheduler.Start(ctx)

	if d.cfg.Metrics.Enabled {
		d.startMetricsListener(registry)
	}

	watcher, err := NewConfigWatcher(d.configPath, d.reloadConfig)
	if err != nil {
		slog.Warn("Config watcher unavailable, sweep time changes need a restart",
			logfields.Error(err))
	} else if err := watcher.Start(); err != nil {
		slog.Warn("Config watcher failed to start", logfields.Error(err))
	} else {
		d.watcher = watcher
	}

	slog.Info("Reminder daemon started",
		slog.String("sweep_time", d.cfg.Reminders.SweepTime),
		slog.String("timezone", d.cfg.Reminders.Timezone))
	return nil
}

// Stop shuts everything down, waiting for owned goroutines up to ctx.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.watcher != nil {
		d.watcher.Stop()
		d.watcher = nil
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		slog.Error("Scheduler shutdown failed", logfields.Error(err))
	}
	if d.metricsSrv != nil {
		if err := d.metricsSrv.Shutdown(ctx); err != nil {
			slog.Error("Metrics listener shutdown failed", logfields.Error(err))
		}
		d.metricsSrv = nil
	}
	return d.workers.StopAndWait(ctx)
}

// RunSweepNow triggers one sweep outside the schedule (CLI one-shot).
func (d *Daemon) RunSweepNow(ctx context.Context) (SweepStats, error) {
	return d.dispatcher.RunSweep(ctx)
}

func (d *Daemon) scheduleSweepLocked() error {
	hour, minute, err := d.cfg.Reminders.SweepClock()
	if err != nil {
		return err
	}
	jobID, err := d.scheduler.ScheduleDaily("reminder-sweep", hour, minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		// Errors abort only this sweep; the next daily trigger retries.
		_, _ = d.dispatcher.RunSweep(ctx)
	})
	if err != nil {
		return errors.InternalError("failed to schedule reminder sweep", err)
	}
	d.sweepJob = jobID
	return nil
}

// reloadConfig re-reads the config file and applies sweep time and timezone
// changes to the running schedule.
func (d *Daemon) reloadConfig() {
	newCfg, err := config.Load(d.configPath)
	if err != nil {
		slog.Error("Config reload failed, keeping previous configuration",
			logfields.Error(err))
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.cfg
	d.cfg = newCfg

	loc, err := newCfg.Reminders.Location()
	if err != nil {
		slog.Error("Config reload has an invalid timezone, keeping previous schedule",
			logfields.Error(err))
		return
	}
	d.dispatcher.SetLocation(loc)

	timeChanged := old.Reminders.SweepTime != newCfg.Reminders.SweepTime
	zoneChanged := old.Reminders.Timezone != newCfg.Reminders.Timezone
	if !timeChanged && !zoneChanged {
		return
	}

	if zoneChanged {
		// Job wall-clock times are evaluated in the scheduler's location,
		// so a timezone change needs a fresh scheduler, not just a new job.
		if err := d.scheduler.Stop(context.Background()); err != nil {
			slog.Error("Failed to stop scheduler for timezone change",
				logfields.Error(err))
		}
		scheduler, err := NewScheduler(d.clock, loc)
		if err != nil {
			slog.Error("Failed to rebuild scheduler after timezone change",
				logfields.Error(err))
			return
		}
		d.scheduler = scheduler
	} else {
		if err := d.scheduler.Remove(d.sweepJob); err != nil {
			slog.Error("Failed to remove old sweep job", logfields.Error(err))
		}
	}

	if err := d.scheduleSweepLocked(); err != nil {
		slog.Error("Failed to reschedule sweep after config change",
			logfields.Error(err))
		return
	}
	if zoneChanged {
		d.scheduler.Start(context.Background())
	}
	slog.Info("Sweep rescheduled",
		slog.String("sweep_time", newCfg.Reminders.SweepTime),
		slog.String("timezone", newCfg.Reminders.Timezone))
}

func (d *Daemon) startMetricsListener(registry *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(registry))
	srv := &http.Server{
		Addr:              d.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	d.metricsSrv = srv
	d.workers.Go(func() {
		slog.Info("Metrics listener started", slog.String("listen", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics listener failed", logfields.Error(err))
		}
	})
}
