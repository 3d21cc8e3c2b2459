// Package plant holds the plant record and the watering state machine built on
// top of it. The Due/Watered state is derived from the record, never stored.
package plant

import (
	"time"

	"git.home.luguber.info/inful/plantkeeper/internal/schedule"
)

// DefaultWaterFrequencyDays is used when a plant is created without a cadence.
const DefaultWaterFrequencyDays = 3

// Plant is a single tracked plant. ID and OwnerID are immutable after creation.
type Plant struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"owner_id"`
	Name               string     `json:"name"`
	ImageURL           string     `json:"image_url,omitempty"`
	LastWateredAt      *time.Time `json:"last_watered_at,omitempty"`
	WaterFrequencyDays int        `json:"water_frequency_days"`
	ReminderEnabled    bool       `json:"reminder_enabled"`
	NextWateringDate   time.Time  `json:"next_watering_date"`

	// Watered marks the current cycle as handled. The dispatcher resets it
	// when it reschedules a missed plant.
	Watered bool `json:"watered"`

	// LastReminderSentDate is the calendar day (YYYY-MM-DD) of the most
	// recent reminder, empty if none was ever sent. Day granularity is the
	// dedupe key: never two reminders for one plant on one day.
	LastReminderSentDate string `json:"last_reminder_sent_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is the derived view of the watering state machine.
type Status string

const (
	StatusDue       Status = "due"       // past due date, not watered this cycle
	StatusWatered   Status = "watered"   // watered this cycle
	StatusScheduled Status = "scheduled" // waiting for the next due date
)

// DueAt reports whether the plant needs water at the given instant.
func (p *Plant) DueAt(now time.Time) bool {
	return !p.Watered && schedule.IsDue(p.NextWateringDate, now)
}

// StatusAt derives the state machine view at the given instant.
func (p *Plant) StatusAt(now time.Time) Status {
	if p.DueAt(now) {
		return StatusDue
	}
	if p.Watered {
		return StatusWatered
	}
	return StatusScheduled
}
