package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/plantkeeper/internal/config"
)

func writeDaemonConfig(t *testing.T, path, sweepTime, timezone string) {
	t.Helper()
	content := fmt.Sprintf("reminders:\n  sweep_time: %q\n  timezone: %s\n", sweepTime, timezone)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReloadConfigAppliesSweepTimeAndTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeDaemonConfig(t, path, "08:00", "UTC")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	disp := NewDispatcher(&fakeStore{}, testOwner(), &recordingSender{}, DispatcherOptions{
		Clock: clockwork.NewFakeClock(),
	})
	d, err := New(path, cfg, disp, clockwork.NewRealClock())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Stop(context.Background()) })

	d.mu.Lock()
	require.NoError(t, d.scheduleSweepLocked())
	d.mu.Unlock()
	oldJob := d.sweepJob

	// A timezone edit must move the job into the new zone, not just the
	// dedupe guard: the daily trigger is evaluated in the scheduler's
	// location.
	writeDaemonConfig(t, path, "21:30", "Europe/Oslo")
	d.reloadConfig()

	assert.Equal(t, "21:30", d.cfg.Reminders.SweepTime)
	assert.Equal(t, "Europe/Oslo", d.cfg.Reminders.Timezone)
	assert.NotEqual(t, oldJob, d.sweepJob, "sweep job was rebuilt")
	assert.Equal(t, "Europe/Oslo", disp.location().String())
}

func TestReloadConfigKeepsScheduleOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeDaemonConfig(t, path, "08:00", "UTC")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	disp := NewDispatcher(&fakeStore{}, testOwner(), &recordingSender{}, DispatcherOptions{
		Clock: clockwork.NewFakeClock(),
	})
	d, err := New(path, cfg, disp, clockwork.NewRealClock())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.scheduler.Stop(context.Background()) })

	d.mu.Lock()
	require.NoError(t, d.scheduleSweepLocked())
	d.mu.Unlock()
	oldJob := d.sweepJob

	writeDaemonConfig(t, path, "25:99", "UTC")
	d.reloadConfig()

	assert.Equal(t, "08:00", d.cfg.Reminders.SweepTime, "invalid file is rejected wholesale")
	assert.Equal(t, oldJob, d.sweepJob)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	cfg := config.Default()
	cfg.Reminders.Timezone = "Mars/Olympus"

	disp := NewDispatcher(&fakeStore{}, testOwner(), &recordingSender{}, DispatcherOptions{
		Clock: clockwork.NewFakeClock(),
	})
	_, err := New("config.yaml", cfg, disp, clockwork.NewRealClock())
	require.Error(t, err)
}
