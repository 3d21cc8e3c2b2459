package plant

import (
	"regexp"
	"strings"
	"time"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
)

// Plant names: letters and single spaces only, matching the signup rules of
// the account layer so names render safely everywhere.
var nameRe = regexp.MustCompile(`^[A-Za-z]+(?: [A-Za-z]+)*$`)

const (
	nameMinLen = 3
	nameMaxLen = 30
)

// ValidateName checks a plant name and returns it trimmed.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < nameMinLen {
		return "", errors.ValidationFailed("name", "must be at least 3 characters")
	}
	if len(name) > nameMaxLen {
		return "", errors.ValidationFailed("name", "must be less than 30 characters")
	}
	if !nameRe.MatchString(name) {
		return "", errors.ValidationFailed("name", "may only contain letters and spaces")
	}
	return name, nil
}

func validateLastWatered(lastWateredAt *time.Time, now time.Time) error {
	if lastWateredAt != nil && lastWateredAt.After(now) {
		return errors.ValidationFailed("last_watered_at", "cannot be in the future")
	}
	return nil
}

func validateFrequency(frequencyDays int) error {
	if frequencyDays < 1 {
		return errors.ValidationFailed("water_frequency_days", "must be at least 1")
	}
	return nil
}
