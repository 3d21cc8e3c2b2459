package daemon

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
	"git.home.luguber.info/inful/plantkeeper/internal/logfields"
	"git.home.luguber.info/inful/plantkeeper/internal/metrics"
	"git.home.luguber.info/inful/plantkeeper/internal/notify"
	"git.home.luguber.info/inful/plantkeeper/internal/plant"
	"git.home.luguber.info/inful/plantkeeper/internal/retry"
	"git.home.luguber.info/inful/plantkeeper/internal/schedule"
	"git.home.luguber.info/inful/plantkeeper/internal/user"
)

// DispatchStore is the slice of the plant store the dispatcher needs.
type DispatchStore interface {
	// DuePlants selects the sweep candidates at now: reminders enabled, due
	// date reached (inclusive), no reminder sent on the given day.
	DuePlants(ctx context.Context, now time.Time, today string) ([]*plant.Plant, error)
	// MarkReminded reschedules one candidate; the write re-checks the
	// candidate predicate so only one writer per day wins.
	MarkReminded(ctx context.Context, id string, next, now time.Time, today string) (bool, error)
}

// UserDirectory resolves plant owners to their contact address.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (*user.User, error)
}

// DispatcherOptions tune a Dispatcher.
type DispatcherOptions struct {
	// Location is the timezone the same-day dedupe guard is evaluated in.
	Location *time.Location
	// SendTimeout bounds a single notification attempt.
	SendTimeout time.Duration
	// MaxConcurrentSends bounds per-plant parallelism within a sweep.
	MaxConcurrentSends int
	// Retry is the backoff policy for transient send failures. The zero
	// value means a single attempt.
	Retry    retry.Policy
	Recorder metrics.Recorder
	Clock    clockwork.Clock
}

// Dispatcher runs reminder sweeps: find due plants, reschedule each one
// forward from the sweep moment, and send one notification per plant per day.
type Dispatcher struct {
	store    DispatchStore
	users    UserDirectory
	sender   notify.Sender
	clock    clockwork.Clock
	recorder metrics.Recorder

	// loc is swapped by config reloads while sweeps may be running.
	loc atomic.Pointer[time.Location]

	sendTimeout time.Duration
	maxSends    int
	retry       retry.Policy

	// sweeping prevents overlapping sweeps; a trigger that fires while a
	// sweep is still running is skipped, not queued.
	sweeping atomic.Bool
}

func NewDispatcher(store DispatchStore, users UserDirectory, sender notify.Sender, opts DispatcherOptions) *Dispatcher {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	if opts.MaxConcurrentSends < 1 {
		opts.MaxConcurrentSends = 1
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	d := &Dispatcher{
		store:       store,
		users:       users,
		sender:      sender,
		clock:       opts.Clock,
		recorder:    opts.Recorder,
		sendTimeout: opts.SendTimeout,
		maxSends:    opts.MaxConcurrentSends,
		retry:       opts.Retry,
	}
	d.loc.Store(opts.Location)
	return d
}

// SetLocation swaps the dedupe timezone, used on config reload.
func (d *Dispatcher) SetLocation(loc *time.Location) {
	if loc != nil {
		d.loc.Store(loc)
	}
}

func (d *Dispatcher) location() *time.Location {
	return d.loc.Load()
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Candidates int
	Notified   int
	Skipped    int // lost the conditional write to a racing writer
	Failed     int // state advanced but the notification did not go out
}

// RunSweep executes one dispatch sweep to completion.
//
// A candidate-query failure aborts the sweep (the next scheduled trigger
// retries); everything after that is per-plant: the reschedule happens
// before the send, and a failed send is logged and counted but never rolled
// back. Lost notifications are preferred over duplicates.
func (d *Dispatcher) RunSweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	if !d.sweeping.CompareAndSwap(false, true) {
		slog.Warn("Sweep still running, skipping trigger")
		d.recorder.IncSweepResult(metrics.SweepSkipped)
		return stats, nil
	}
	defer d.sweeping.Store(false)

	start := d.clock.Now()
	now := start.UTC().Truncate(time.Second)
	today := start.In(d.location()).Format(time.DateOnly)
	sweepID := uuid.NewString()[:8]

	slog.Info("Starting reminder sweep",
		logfields.SweepID(sweepID),
		slog.String("today", today))

	candidates, err := d.store.DuePlants(ctx, now, today)
	if err != nil {
		slog.Error("Failed to load due plants, aborting sweep",
			logfields.SweepID(sweepID),
			logfields.Error(err))
		d.recorder.IncSweepResult(metrics.SweepFailed)
		return stats, err
	}
	stats.Candidates = len(candidates)
	d.recorder.SetDuePlants(len(candidates))

	// Plants are independent units of work; process them in parallel with
	// bounded concurrency and no cross-plant ordering.
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.maxSends)
	)
	for _, p := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(p *plant.Plant) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := d.processCandidate(ctx, sweepID, p, now, today)
			mu.Lock()
			switch outcome {
			case outcomeNotified:
				stats.Notified++
			case outcomeSkipped:
				stats.Skipped++
			case outcomeFailed:
				stats.Failed++
			}
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	elapsed := d.clock.Now().Sub(start)
	d.recorder.ObserveSweepDuration(elapsed)
	d.recorder.IncSweepResult(metrics.SweepSuccess)

	slog.Info("Reminder sweep finished",
		logfields.SweepID(sweepID),
		logfields.Candidates(stats.Candidates),
		logfields.Notified(stats.Notified),
		logfields.Skipped(stats.Skipped),
		slog.Int("failed", stats.Failed),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	return stats, nil
}

type sweepOutcome int

const (
	outcomeNotified sweepOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// processCandidate reschedules one plant and sends its reminder. The
// reschedule is a conditional write; losing it means another sweep or a user
// confirmation already handled this cycle.
func (d *Dispatcher) processCandidate(ctx context.Context, sweepID string, p *plant.Plant, now time.Time, today string) sweepOutcome {
	// The plant missed its window, so the new target is relative to the
	// sweep moment, not the stale due date.
	next, err := schedule.NextWateringDate(nil, p.WaterFrequencyDays, now)
	if err != nil {
		slog.Error("Plant has an invalid watering frequency",
			logfields.SweepID(sweepID),
			logfields.PlantID(p.ID),
			logfields.Error(err))
		return outcomeFailed
	}

	applied, err := d.store.MarkReminded(ctx, p.ID, next, now, today)
	if err != nil {
		slog.Error("Failed to reschedule plant",
			logfields.SweepID(sweepID),
			logfields.PlantID(p.ID),
			logfields.Error(err))
		return outcomeFailed
	}
	if !applied {
		slog.Debug("Plant already handled for this cycle",
			logfields.SweepID(sweepID),
			logfields.PlantID(p.ID))
		d.recorder.IncRemindersSkipped()
		return outcomeSkipped
	}

	owner, err := d.users.UserByID(ctx, p.OwnerID)
	if err != nil {
		slog.Error("Failed to resolve plant owner for reminder",
			logfields.SweepID(sweepID),
			logfields.PlantID(p.ID),
			logfields.OwnerID(p.OwnerID),
			logfields.Error(err))
		d.recorder.IncReminderFailures()
		return outcomeFailed
	}

	err = d.send(ctx, sweepID, notify.Reminder{
		Email:     owner.Email,
		Username:  owner.Username,
		PlantID:   p.ID,
		PlantName: p.Name,
		DueSince:  p.NextWateringDate,
		SentAt:    now,
	})
	if err != nil {
		// The schedule advance stands: at most one reminder per day,
		// tolerating a lost notification over a duplicate one.
		slog.Error("Failed to send reminder",
			logfields.SweepID(sweepID),
			logfields.PlantID(p.ID),
			logfields.PlantName(p.Name),
			logfields.Error(errors.NotificationError(p.ID, err)))
		d.recorder.IncReminderFailures()
		return outcomeFailed
	}

	slog.Info("Reminder sent",
		logfields.SweepID(sweepID),
		logfields.PlantID(p.ID),
		logfields.PlantName(p.Name),
		logfields.DueDate(next.Format(time.RFC3339)))
	d.recorder.IncRemindersSent()
	return outcomeNotified
}

// send attempts one notification, retrying per the backoff policy. Each
// attempt gets its own timeout; the sweep context cancels the whole loop.
func (d *Dispatcher) send(ctx context.Context, sweepID string, r notify.Reminder) error {
	var err error
	for attempt := 0; ; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err = d.sender.Send(sendCtx, r)
		cancel()
		if err == nil || attempt >= d.retry.MaxRetries {
			return err
		}

		delay := d.retry.Delay(attempt + 1)
		slog.Warn("Reminder send failed, retrying",
			logfields.SweepID(sweepID),
			logfields.PlantID(r.PlantID),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			logfields.Error(err))
		select {
		case <-d.clock.After(delay):
		case <-ctx.Done():
			return err
		}
	}
}
