// Package notify delivers watering reminders. Senders are fire-and-forget
// from the schedule's perspective: a send that ultimately fails is logged and
// counted, never turned into a second reminder for the same day.
package notify

import (
	"context"
	"errors"
	"time"
)

// Reminder is one watering reminder addressed to a plant's owner.
type Reminder struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	PlantID   string    `json:"plant_id"`
	PlantName string    `json:"plant_name"`
	DueSince  time.Time `json:"due_since"`
	SentAt    time.Time `json:"sent_at"`
}

// Sender delivers a single reminder. Implementations must respect ctx
// cancellation; the dispatcher bounds every send with a timeout.
type Sender interface {
	Send(ctx context.Context, r Reminder) error
}

// Fanout sends through every configured sender and reports all failures
// together. A partial failure still counts as a failed delivery upstream.
type Fanout []Sender

func (f Fanout) Send(ctx context.Context, r Reminder) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
