package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	changed := make(chan struct{}, 1)
	cw, err := NewConfigWatcher(path, func() { changed <- struct{}{} })
	require.NoError(t, err)
	cw.debounceTime = 50 * time.Millisecond
	require.NoError(t, cw.Start())
	t.Cleanup(cw.Stop)

	require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected reload callback after config write")
	}
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))

	changed := make(chan struct{}, 1)
	cw, err := NewConfigWatcher(path, func() { changed <- struct{}{} })
	require.NoError(t, err)
	cw.debounceTime = 50 * time.Millisecond
	require.NoError(t, cw.Start())
	t.Cleanup(cw.Stop)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b: 1\n"), 0o644))

	select {
	case <-changed:
		t.Fatal("unrelated file must not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
