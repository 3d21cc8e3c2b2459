// Package schedule computes watering schedules. The calculator is pure: it is
// used at plant creation, after a confirmed watering, and when the reminder
// dispatcher reschedules a missed plant.
package schedule

import (
	"time"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
)

// Day is the schedule granularity. Frequencies are whole days.
const Day = 24 * time.Hour

// NextWateringDate returns the next time a plant needs water.
//
// The base is lastWateredAt when known, otherwise now (a plant that has never
// been watered, or one being rescheduled forward by the dispatcher). The
// result is base + frequencyDays whole days.
func NextWateringDate(lastWateredAt *time.Time, frequencyDays int, now time.Time) (time.Time, error) {
	if frequencyDays < 1 {
		return time.Time{}, errors.InvalidSchedule(frequencyDays)
	}

	base := now
	if lastWateredAt != nil {
		base = *lastWateredAt
	}
	return base.Add(time.Duration(frequencyDays) * Day), nil
}

// IsDue reports whether a plant with the given next watering date needs water
// at the given instant. The boundary is inclusive: a plant is due the moment
// its next watering date arrives.
func IsDue(nextWateringDate, now time.Time) bool {
	return !now.Before(nextWateringDate)
}
