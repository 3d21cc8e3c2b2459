// Package store persists plants and owners in SQLite. All schedule-racing
// mutations are single conditional UPDATEs so preconditions are re-validated
// at write time.
package store

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
	"git.home.luguber.info/inful/plantkeeper/internal/plant"
	"git.home.luguber.info/inful/plantkeeper/internal/user"
)

// SQLiteStore implements plant.Store and user.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database in tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.StorageError("open database", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.StorageError("initialize schema", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS plants (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		last_watered_at INTEGER,
		water_frequency_days INTEGER NOT NULL,
		reminder_enabled INTEGER NOT NULL DEFAULT 1,
		next_watering_date INTEGER NOT NULL,
		watered INTEGER NOT NULL DEFAULT 0,
		last_reminder_sent_date TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(owner_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_plants_owner ON plants(owner_id);
	CREATE INDEX IF NOT EXISTS idx_plants_next_watering ON plants(next_watering_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// --- plants ---

const plantColumns = `id, owner_id, name, image_url, last_watered_at, water_frequency_days,
	reminder_enabled, next_watering_date, watered, last_reminder_sent_date, created_at, updated_at`

// CreatePlant inserts a new plant. A duplicate name for the same owner is
// reported as a validation error.
func (s *SQLiteStore) CreatePlant(ctx context.Context, p *plant.Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plants (`+plantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.ImageURL, nullableUnix(p.LastWateredAt), p.WaterFrequencyDays,
		boolToInt(p.ReminderEnabled), p.NextWateringDate.Unix(), boolToInt(p.Watered),
		nullableString(p.LastReminderSentDate), p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ValidationFailed("name", "a plant with this name already exists")
		}
		return errors.StorageError("insert plant", err)
	}
	return nil
}

// PlantByID loads a single plant.
func (s *SQLiteStore) PlantByID(ctx context.Context, id string) (*plant.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE id = ?`, id)
	p, err := scanPlant(row)
	if err == sql.ErrNoRows {
		return nil, errors.PlantNotFound(id)
	}
	if err != nil {
		return nil, errors.StorageError("query plant", err)
	}
	return p, nil
}

// PlantsByOwner lists an owner's plants, oldest first.
func (s *SQLiteStore) PlantsByOwner(ctx context.Context, ownerID string) ([]*plant.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, errors.StorageError("query plants by owner", err)
	}
	defer rows.Close()

	return scanPlants(rows)
}

// UpdatePlant writes the mutable fields of an existing plant. The write is
// guarded on the updated_at the caller read, so a stale edit cannot silently
// roll back a sweep or confirmation that landed in between.
func (s *SQLiteStore) UpdatePlant(ctx context.Context, p *plant.Plant, prevUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE plants SET name = ?, image_url = ?, last_watered_at = ?, water_frequency_days = ?,
			reminder_enabled = ?, next_watering_date = ?, watered = ?, last_reminder_sent_date = ?,
			updated_at = ?
		 WHERE id = ? AND owner_id = ? AND updated_at = ?`,
		p.Name, p.ImageURL, nullableUnix(p.LastWateredAt), p.WaterFrequencyDays,
		boolToInt(p.ReminderEnabled), p.NextWateringDate.Unix(), boolToInt(p.Watered),
		nullableString(p.LastReminderSentDate), p.UpdatedAt.Unix(),
		p.ID, p.OwnerID, prevUpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ValidationFailed("name", "a plant with this name already exists")
		}
		return errors.StorageError("update plant", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows is either a vanished plant or a lost concurrency guard.
		var one int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM plants WHERE id = ? AND owner_id = ?`, p.ID, p.OwnerID).Scan(&one)
		if err == sql.ErrNoRows {
			return errors.PlantNotFound(p.ID)
		}
		if err != nil {
			return errors.StorageError("update plant", err)
		}
		return errors.ConcurrentUpdate(p.ID)
	}
	return nil
}

// DeletePlant removes a plant scoped to its owner.
func (s *SQLiteStore) DeletePlant(ctx context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM plants WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return errors.StorageError("delete plant", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.PlantNotFound(id)
	}
	return nil
}

// MarkWatered applies a confirmed watering. The WHERE clause re-validates the
// due precondition so a racing sweep or second confirmation cannot
// double-advance the schedule. Returns false when the precondition was lost.
func (s *SQLiteStore) MarkWatered(ctx context.Context, id, ownerID string, now, next time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE plants SET last_watered_at = ?, next_watering_date = ?, watered = 1, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND next_watering_date <= ?`,
		now.Unix(), next.Unix(), now.Unix(),
		id, ownerID, now.Unix(),
	)
	if err != nil {
		return false, errors.StorageError("mark watered", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.StorageError("mark watered", err)
	}
	return n == 1, nil
}

// DuePlants selects reminder candidates at the given instant: reminders on,
// due date reached (inclusive) and no reminder sent on the given day yet.
func (s *SQLiteStore) DuePlants(ctx context.Context, now time.Time, today string) ([]*plant.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+plantColumns+` FROM plants
		 WHERE reminder_enabled = 1
		   AND next_watering_date <= ?
		   AND (last_reminder_sent_date IS NULL OR last_reminder_sent_date <> ?)`,
		now.Unix(), today)
	if err != nil {
		return nil, errors.StorageError("query due plants", err)
	}
	defer rows.Close()

	return scanPlants(rows)
}

// MarkReminded applies the dispatcher's reschedule for one plant. The WHERE
// clause repeats the candidate predicate, including the same-day dedupe
// guard, so overlapping sweeps and racing confirmations collapse to a single
// winner. Returns false when another writer got there first.
func (s *SQLiteStore) MarkReminded(ctx context.Context, id string, next, now time.Time, today string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE plants SET next_watering_date = ?, watered = 0, last_reminder_sent_date = ?, updated_at = ?
		 WHERE id = ?
		   AND reminder_enabled = 1
		   AND next_watering_date <= ?
		   AND (last_reminder_sent_date IS NULL OR last_reminder_sent_date <> ?)`,
		next.Unix(), today, now.Unix(),
		id, now.Unix(), today,
	)
	if err != nil {
		return false, errors.StorageError("mark reminded", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.StorageError("mark reminded", err)
	}
	return n == 1, nil
}

// --- users ---

// CreateUser inserts a new owner record.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ValidationFailed("username", "username or email already taken")
		}
		return errors.StorageError("insert user", err)
	}
	return nil
}

// UserByID loads an owner record by ID.
func (s *SQLiteStore) UserByID(ctx context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userBy(ctx, `id`, id)
}

// UserByUsername loads an owner record by username.
func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userBy(ctx, `username`, username)
}

func (s *SQLiteStore) userBy(ctx context.Context, column, value string) (*user.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE `+column+` = ?`, value)

	var u user.User
	var createdUnix int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &createdUnix)
	if err == sql.ErrNoRows {
		return nil, errors.UserNotFound(value)
	}
	if err != nil {
		return nil, errors.StorageError("query user", err)
	}
	u.CreatedAt = time.Unix(createdUnix, 0).UTC()
	return &u, nil
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (*plant.Plant, error) {
	var p plant.Plant
	var lastWatered sql.NullInt64
	var reminderEnabled, watered int
	var nextUnix, createdUnix, updatedUnix int64
	var lastReminder sql.NullString

	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.ImageURL, &lastWatered, &p.WaterFrequencyDays,
		&reminderEnabled, &nextUnix, &watered, &lastReminder, &createdUnix, &updatedUnix)
	if err != nil {
		return nil, err
	}

	if lastWatered.Valid {
		t := time.Unix(lastWatered.Int64, 0).UTC()
		p.LastWateredAt = &t
	}
	p.ReminderEnabled = reminderEnabled == 1
	p.Watered = watered == 1
	p.NextWateringDate = time.Unix(nextUnix, 0).UTC()
	p.LastReminderSentDate = lastReminder.String
	p.CreatedAt = time.Unix(createdUnix, 0).UTC()
	p.UpdatedAt = time.Unix(updatedUnix, 0).UTC()
	return &p, nil
}

func scanPlants(rows *sql.Rows) ([]*plant.Plant, error) {
	var plants []*plant.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, errors.StorageError("scan plant", err)
		}
		plants = append(plants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("iterate plants", err)
	}
	return plants, nil
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
