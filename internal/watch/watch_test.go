package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startWatcher(t *testing.T, path string, onChange func(context.Context) error) (context.CancelFunc, <-chan error) {
	t.Helper()
	w := New(path, onChange, zaptest.NewLogger(t))
	w.SetDebounce(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// fsnotify registers the watch asynchronously relative to the test.
	time.Sleep(100 * time.Millisecond)
	return cancel, done
}

func TestWatcher_FiresOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cback.yaml")
	require.NoError(t, os.WriteFile(path, []byte("options: {}\n"), 0600))

	var calls atomic.Int32
	cancel, done := startWatcher(t, path, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("options: {}\n# edit\n"), 0600))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	// A burst of writes inside one debounce window is coalesced.
	assert.Less(t, calls.Load(), int32(5))

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cback.yaml")
	require.NoError(t, os.WriteFile(path, []byte("options: {}\n"), 0600))

	var calls atomic.Int32
	cancel, done := startWatcher(t, path, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0600))
	time.Sleep(300 * time.Millisecond)
	assert.Zero(t, calls.Load())

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_SeesRenameOverSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cback.yaml")
	require.NoError(t, os.WriteFile(path, []byte("options: {}\n"), 0600))

	var calls atomic.Int32
	cancel, done := startWatcher(t, path, func(context.Context) error {
		calls.Add(1)
		return errors.New("still broken")
	})

	tmp := filepath.Join(dir, ".cback.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("options: {}\n"), 0600))
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope", "cback.yaml"), func(context.Context) error { return nil }, nil)
	err := w.Run(context.Background())
	assert.Error(t, err)
}
