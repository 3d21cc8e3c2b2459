package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
)

func TestNextWateringDate(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	lastWatered := time.Date(2025, 4, 28, 9, 30, 0, 0, time.UTC)

	t.Run("bases on last watered time when known", func(t *testing.T) {
		next, err := NextWateringDate(&lastWatered, 3, now)
		require.NoError(t, err)
		assert.Equal(t, lastWatered.Add(3*Day), next)
	})

	t.Run("bases on now when never watered", func(t *testing.T) {
		next, err := NextWateringDate(nil, 7, now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(7*Day), next)
	})

	t.Run("one day frequency is valid", func(t *testing.T) {
		next, err := NextWateringDate(nil, 1, now)
		require.NoError(t, err)
		assert.Equal(t, now.Add(Day), next)
	})

	t.Run("rejects zero frequency", func(t *testing.T) {
		_, err := NextWateringDate(nil, 0, now)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategorySchedule))
	})

	t.Run("rejects negative frequency", func(t *testing.T) {
		_, err := NextWateringDate(&lastWatered, -2, now)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategorySchedule))
	})

	t.Run("deterministic for equal inputs", func(t *testing.T) {
		a, err := NextWateringDate(&lastWatered, 5, now)
		require.NoError(t, err)
		b, err := NextWateringDate(&lastWatered, 5, now)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestIsDue(t *testing.T) {
	due := time.Date(2025, 5, 4, 8, 0, 0, 0, time.UTC)

	assert.False(t, IsDue(due, due.Add(-time.Second)), "before the due date")
	assert.True(t, IsDue(due, due), "boundary is inclusive")
	assert.True(t, IsDue(due, due.Add(time.Hour)), "after the due date")
}
