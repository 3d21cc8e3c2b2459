package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPlantID    = "plant_id"
	KeyPlantName  = "plant_name"
	KeyOwnerID    = "owner_id"
	KeyUsername   = "username"
	KeySweepID    = "sweep_id"
	KeyCandidates = "candidates"
	KeyNotified   = "notified"
	KeySkipped    = "skipped"
	KeyDueDate    = "due_date"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func PlantID(id string) slog.Attr     { return slog.String(KeyPlantID, id) }
func PlantName(n string) slog.Attr    { return slog.String(KeyPlantName, n) }
func OwnerID(id string) slog.Attr     { return slog.String(KeyOwnerID, id) }
func Username(u string) slog.Attr     { return slog.String(KeyUsername, u) }
func SweepID(id string) slog.Attr     { return slog.String(KeySweepID, id) }
func Candidates(n int) slog.Attr      { return slog.Int(KeyCandidates, n) }
func Notified(n int) slog.Attr        { return slog.Int(KeyNotified, n) }
func Skipped(n int) slog.Attr         { return slog.Int(KeySkipped, n) }
func DueDate(d string) slog.Attr      { return slog.String(KeyDueDate, d) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
