package plant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
	"git.home.luguber.info/inful/plantkeeper/internal/schedule"
)

// Store is the persistence surface the service needs. The SQLite store in
// internal/store satisfies it.
type Store interface {
	CreatePlant(ctx context.Context, p *Plant) error
	PlantByID(ctx context.Context, id string) (*Plant, error)
	PlantsByOwner(ctx context.Context, ownerID string) ([]*Plant, error)
	// UpdatePlant persists an edit guarded on the updated_at the caller read.
	// A lost guard is reported as a retryable concurrent-update error.
	UpdatePlant(ctx context.Context, p *Plant, prevUpdatedAt time.Time) error
	DeletePlant(ctx context.Context, id, ownerID string) error

	// MarkWatered applies the confirm-watering transition as a single
	// conditional write: it only succeeds while the plant is still due at
	// write time. Returns false (and no error) when the precondition was
	// lost to a concurrent writer.
	MarkWatered(ctx context.Context, id, ownerID string, now, next time.Time) (bool, error)
}

// Service implements the watering state machine and the owner-scoped plant
// operations. All methods take the authenticated requester ID; the service
// never authenticates anyone itself.
type Service struct {
	store Store
	clock clockwork.Clock
}

func NewService(store Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock}
}

// CreateParams are the caller-supplied fields for a new plant. Zero values
// fall back to defaults (frequency 3 days, reminders on).
type CreateParams struct {
	OwnerID            string
	Name               string
	ImageURL           string
	LastWateredAt      *time.Time
	WaterFrequencyDays int
	ReminderEnabled    *bool
}

// Create validates the input, computes the first watering date and persists
// the plant.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Plant, error) {
	now := s.clock.Now().UTC().Truncate(time.Second)

	name, err := ValidateName(params.Name)
	if err != nil {
		return nil, err
	}
	if err := validateLastWatered(params.LastWateredAt, now); err != nil {
		return nil, err
	}

	frequency := params.WaterFrequencyDays
	if frequency == 0 {
		frequency = DefaultWaterFrequencyDays
	}
	if err := validateFrequency(frequency); err != nil {
		return nil, err
	}

	next, err := schedule.NextWateringDate(params.LastWateredAt, frequency, now)
	if err != nil {
		return nil, err
	}

	reminders := true
	if params.ReminderEnabled != nil {
		reminders = *params.ReminderEnabled
	}

	p := &Plant{
		ID:                 uuid.NewString(),
		OwnerID:            params.OwnerID,
		Name:               name,
		ImageURL:           params.ImageURL,
		LastWateredAt:      params.LastWateredAt,
		WaterFrequencyDays: frequency,
		ReminderEnabled:    reminders,
		NextWateringDate:   next,
		Watered:            false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreatePlant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a plant owned by the requester.
func (s *Service) Get(ctx context.Context, plantID, requesterID string) (*Plant, error) {
	return s.ownedPlant(ctx, plantID, requesterID)
}

// List returns all plants owned by the requester.
func (s *Service) List(ctx context.Context, requesterID string) ([]*Plant, error) {
	return s.store.PlantsByOwner(ctx, requesterID)
}

// UpdateParams are the mutable plant fields. Nil pointers leave the field
// untouched.
type UpdateParams struct {
	Name               *string
	ImageURL           *string
	WaterFrequencyDays *int
	ReminderEnabled    *bool
}

// Update edits cadence, name, image or the reminder flag. A cadence change
// recomputes the next watering date from the last watering (or from now when
// the plant was never watered).
func (s *Service) Update(ctx context.Context, plantID, requesterID string, params UpdateParams) (*Plant, error) {
	p, err := s.ownedPlant(ctx, plantID, requesterID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC().Truncate(time.Second)

	if params.Name != nil {
		name, err := ValidateName(*params.Name)
		if err != nil {
			return nil, err
		}
		p.Name = name
	}
	if params.ImageURL != nil {
		p.ImageURL = *params.ImageURL
	}
	if params.ReminderEnabled != nil {
		p.ReminderEnabled = *params.ReminderEnabled
	}
	if params.WaterFrequencyDays != nil && *params.WaterFrequencyDays != p.WaterFrequencyDays {
		if err := validateFrequency(*params.WaterFrequencyDays); err != nil {
			return nil, err
		}
		p.WaterFrequencyDays = *params.WaterFrequencyDays
		next, err := schedule.NextWateringDate(p.LastWateredAt, p.WaterFrequencyDays, now)
		if err != nil {
			return nil, err
		}
		p.NextWateringDate = next
	}

	// Guard the write on the revision just read: a sweep or confirmation
	// landing in between must not be overwritten with stale schedule state.
	prev := p.UpdatedAt
	p.UpdatedAt = now
	if err := s.store.UpdatePlant(ctx, p, prev); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a plant owned by the requester. No other state cascades.
func (s *Service) Delete(ctx context.Context, plantID, requesterID string) error {
	if _, err := s.ownedPlant(ctx, plantID, requesterID); err != nil {
		return err
	}
	return s.store.DeletePlant(ctx, plantID, requesterID)
}

// ConfirmWatering records that the owner watered the plant now.
//
// Watering ahead of schedule is rejected with a not-yet-due error so the
// cadence stays meaningful; confirming twice in one cycle fails the same way.
// The store re-validates due-ness inside the write, so a sweep and a user
// confirmation racing on the same cycle can never double-advance the schedule.
func (s *Service) ConfirmWatering(ctx context.Context, plantID, requesterID string) (*Plant, error) {
	p, err := s.ownedPlant(ctx, plantID, requesterID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	if now.Before(p.NextWateringDate) {
		return nil, errors.NotYetDue(plantID).
			WithContext("next_watering_date", p.NextWateringDate.Format(time.RFC3339))
	}

	next, err := schedule.NextWateringDate(&now, p.WaterFrequencyDays, now)
	if err != nil {
		return nil, err
	}

	applied, err := s.store.MarkWatered(ctx, plantID, requesterID, now, next)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent confirmation or sweep advanced the schedule first.
		return nil, errors.NotYetDue(plantID)
	}

	p.LastWateredAt = &now
	p.NextWateringDate = next
	p.Watered = true
	p.UpdatedAt = now
	return p, nil
}

// ownedPlant loads a plant and enforces ownership. A plant owned by someone
// else is reported as not found: callers get no oracle for foreign plant IDs.
func (s *Service) ownedPlant(ctx context.Context, plantID, requesterID string) (*Plant, error) {
	p, err := s.store.PlantByID(ctx, plantID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != requesterID {
		return nil, errors.PlantNotFound(plantID)
	}
	return p, nil
}
