package user

import (
	"context"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
)

type memStore struct {
	byID       map[string]*User
	byUsername map[string]*User
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[string]*User), byUsername: make(map[string]*User)}
}

func (m *memStore) CreateUser(_ context.Context, u *User) error {
	if _, ok := m.byUsername[u.Username]; ok {
		return errors.ValidationFailed("username", "already taken")
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.byUsername[u.Username] = &cp
	return nil
}

func (m *memStore) UserByID(_ context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, errors.UserNotFound(id)
	}
	return u, nil
}

func (m *memStore) UserByUsername(_ context.Context, username string) (*User, error) {
	u, ok := m.byUsername[username]
	if !ok {
		return nil, errors.UserNotFound(username)
	}
	return u, nil
}

func TestCreateUser(t *testing.T) {
	svc := NewService(newMemStore(), clockwork.NewFakeClock())

	u, err := svc.Create(context.Background(), "sam_99", "sam@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "sam_99", u.Username)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := svc.ByUsername(context.Background(), " sam_99 ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID, "lookup trims whitespace")
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMemStore(), clockwork.NewFakeClock())

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"username too short", "ab", "sam@example.com"},
		{"username too long", strings.Repeat("a", 31), "sam@example.com"},
		{"username with spaces", "sam smith", "sam@example.com"},
		{"username with punctuation", "sam!", "sam@example.com"},
		{"email missing at", "sam", "example.com"},
		{"email missing domain dot", "sam", "sam@example"},
		{"email too long", "sam", strings.Repeat("a", 45) + "@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.username, tt.email)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc := NewService(newMemStore(), clockwork.NewFakeClock())
	ctx := context.Background()

	_, err := svc.Create(ctx, "sam", "sam@example.com")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "sam", "other@example.com")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
