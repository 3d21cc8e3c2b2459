package plant

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
	"git.home.luguber.info/inful/plantkeeper/internal/schedule"
)

// memStore is an in-memory Store with the same conditional-write semantics as
// the SQLite implementation.
type memStore struct {
	plants map[string]*Plant
}

func newMemStore() *memStore {
	return &memStore{plants: make(map[string]*Plant)}
}

func (m *memStore) CreatePlant(_ context.Context, p *Plant) error {
	cp := *p
	m.plants[p.ID] = &cp
	return nil
}

func (m *memStore) PlantByID(_ context.Context, id string) (*Plant, error) {
	p, ok := m.plants[id]
	if !ok {
		return nil, errors.PlantNotFound(id)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) PlantsByOwner(_ context.Context, ownerID string) ([]*Plant, error) {
	var out []*Plant
	for _, p := range m.plants {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePlant(_ context.Context, p *Plant, prevUpdatedAt time.Time) error {
	cur, ok := m.plants[p.ID]
	if !ok {
		return errors.PlantNotFound(p.ID)
	}
	if !cur.UpdatedAt.Equal(prevUpdatedAt) {
		return errors.ConcurrentUpdate(p.ID)
	}
	cp := *p
	m.plants[p.ID] = &cp
	return nil
}

func (m *memStore) DeletePlant(_ context.Context, id, ownerID string) error {
	p, ok := m.plants[id]
	if !ok || p.OwnerID != ownerID {
		return errors.PlantNotFound(id)
	}
	delete(m.plants, id)
	return nil
}

func (m *memStore) MarkWatered(_ context.Context, id, ownerID string, now, next time.Time) (bool, error) {
	p, ok := m.plants[id]
	if !ok || p.OwnerID != ownerID || now.Before(p.NextWateringDate) {
		return false, nil
	}
	watered := now
	p.LastWateredAt = &watered
	p.NextWateringDate = next
	p.Watered = true
	p.UpdatedAt = now
	return true, nil
}

var testNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memStore, *clockwork.FakeClock) {
	store := newMemStore()
	clock := clockwork.NewFakeClockAt(testNow)
	return NewService(store, clock), store, clock
}

func TestCreateDefaults(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Create(context.Background(), CreateParams{
		OwnerID: "owner-1",
		Name:    "Monstera",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, DefaultWaterFrequencyDays, p.WaterFrequencyDays)
	assert.True(t, p.ReminderEnabled)
	assert.Nil(t, p.LastWateredAt)
	assert.False(t, p.Watered)
	assert.Equal(t, testNow.Add(3*schedule.Day), p.NextWateringDate, "never watered: schedule starts now")
	assert.Equal(t, testNow, p.CreatedAt)
}

func TestCreateFromLastWatered(t *testing.T) {
	svc, _, _ := newTestService()
	lastWatered := testNow.Add(-2 * schedule.Day)

	p, err := svc.Create(context.Background(), CreateParams{
		OwnerID:            "owner-1",
		Name:               "Fern",
		LastWateredAt:      &lastWatered,
		WaterFrequencyDays: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, lastWatered.Add(7*schedule.Day), p.NextWateringDate)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	future := testNow.Add(time.Hour)

	tests := []struct {
		name   string
		params CreateParams
	}{
		{"empty name", CreateParams{OwnerID: "o", Name: ""}},
		{"name too short", CreateParams{OwnerID: "o", Name: "Io"}},
		{"name with digits", CreateParams{OwnerID: "o", Name: "Plant 2"}},
		{"name too long", CreateParams{OwnerID: "o", Name: "An Exceedingly Verbose Plant Name"}},
		{"future last watered", CreateParams{OwnerID: "o", Name: "Fern", LastWateredAt: &future}},
		{"negative frequency", CreateParams{OwnerID: "o", Name: "Fern", WaterFrequencyDays: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.params)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestGetForeignPlantReportedAsNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.Create(context.Background(), CreateParams{OwnerID: "owner-1", Name: "Monstera"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), p.ID, "someone-else")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound),
		"foreign plants look exactly like missing ones")
}

func TestUpdateCadenceRecomputesSchedule(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()
	lastWatered := testNow.Add(-schedule.Day)

	p, err := svc.Create(ctx, CreateParams{
		OwnerID:       "owner-1",
		Name:          "Monstera",
		LastWateredAt: &lastWatered,
	})
	require.NoError(t, err)
	require.Equal(t, lastWatered.Add(3*schedule.Day), p.NextWateringDate)

	clock.Advance(time.Hour)
	freq := 7
	p, err = svc.Update(ctx, p.ID, "owner-1", UpdateParams{WaterFrequencyDays: &freq})
	require.NoError(t, err)
	assert.Equal(t, lastWatered.Add(7*schedule.Day), p.NextWateringDate,
		"recomputed from the last watering, not from now")
}

func TestUpdateNameOnlyKeepsSchedule(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", Name: "Monstera"})
	require.NoError(t, err)
	origNext := p.NextWateringDate

	name := "Swiss Cheese Plant"
	p, err = svc.Update(ctx, p.ID, "owner-1", UpdateParams{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Swiss Cheese Plant", p.Name)
	assert.Equal(t, origNext, p.NextWateringDate)
}

func TestUpdateRejectsBadValues(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", Name: "Monstera"})
	require.NoError(t, err)

	bad := 0
	_, err = svc.Update(ctx, p.ID, "owner-1", UpdateParams{WaterFrequencyDays: &bad})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	name := "x"
	_, err = svc.Update(ctx, p.ID, "owner-1", UpdateParams{Name: &name})
	require.Error(t, err)
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", Name: "Monstera"})
	require.NoError(t, err)

	err = svc.Delete(ctx, p.ID, "someone-else")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))

	require.NoError(t, svc.Delete(ctx, p.ID, "owner-1"))
	_, err = svc.Get(ctx, p.ID, "owner-1")
	require.Error(t, err)
}

func TestConfirmWatering(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", Name: "Monstera"})
	require.NoError(t, err)

	t.Run("early confirmation rejected", func(t *testing.T) {
		clock.Advance(schedule.Day)
		_, err := svc.ConfirmWatering(ctx, p.ID, "owner-1")
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryNotYetDue))
	})

	t.Run("confirmation at the boundary succeeds", func(t *testing.T) {
		clock.Advance(2 * schedule.Day) // now == nextWateringDate
		now := clock.Now().UTC()

		got, err := svc.ConfirmWatering(ctx, p.ID, "owner-1")
		require.NoError(t, err)
		assert.True(t, got.Watered)
		require.NotNil(t, got.LastWateredAt)
		assert.Equal(t, now, *got.LastWateredAt)
		assert.Equal(t, now.Add(3*schedule.Day), got.NextWateringDate)
	})

	t.Run("second confirmation in the same cycle rejected", func(t *testing.T) {
		clock.Advance(time.Minute)
		_, err := svc.ConfirmWatering(ctx, p.ID, "owner-1")
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryNotYetDue))
	})

	t.Run("overdue confirmation reschedules from now", func(t *testing.T) {
		clock.Advance(5 * schedule.Day) // well past due
		now := clock.Now().UTC()

		got, err := svc.ConfirmWatering(ctx, p.ID, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, now.Add(3*schedule.Day), got.NextWateringDate,
			"cadence restarts from the actual watering, not the missed date")
	})
}

func TestConfirmWateringForeignPlant(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{OwnerID: "owner-1", Name: "Monstera"})
	require.NoError(t, err)
	clock.Advance(3 * schedule.Day)

	_, err = svc.ConfirmWatering(ctx, p.ID, "someone-else")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}
