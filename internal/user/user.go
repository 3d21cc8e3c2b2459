// Package user holds the minimal owner records the reminder dispatcher needs
// to resolve a contact address. Authentication lives outside this module.
package user

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
)

// User is a plant owner. Only identity and contact fields are kept here.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence surface for owner records.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
}

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Service creates and looks up owner records.
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

// Create validates and persists a new owner record.
func (s *Service) Create(ctx context.Context, username, email string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if !usernameRe.MatchString(username) {
		return nil, errors.ValidationFailed("username", "must be 3-30 characters of letters, numbers and underscores")
	}
	if len(email) > 50 || !emailRe.MatchString(email) {
		return nil, errors.ValidationFailed("email", "must be a valid email address")
	}

	u := &User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Second),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ByUsername resolves a username to an owner record.
func (s *Service) ByUsername(ctx context.Context, username string) (*User, error) {
	return s.store.UserByUsername(ctx, strings.TrimSpace(username))
}
