package fswatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fswatch event")
		return Event{}
	}
}

func TestWatcher_DetectsFileAdded(t *testing.T) {
	root := t.TempDir()
	w, err := New(root)
	require.NoError(t, err)
	w.Start()
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	ev := collectEvent(t, w)
	assert.Equal(t, KindFileAdded, ev.Kind)
	assert.Equal(t, "a.txt", ev.Path)
}

func TestWatcher_DetectsFileChanged(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w, err := New(root)
	require.NoError(t, err)
	w.Start()
	defer w.Close()

	time.Sleep(600 * time.Millisecond) // let the seed settle past one stability window
	require.NoError(t, os.WriteFile(path, []byte("y"), 0o644))

	ev := collectEvent(t, w)
	assert.Equal(t, KindFileChanged, ev.Kind)
	assert.Equal(t, "a.txt", ev.Path)
}

func TestWatcher_IgnoresDotPrefixedEntries(t *testing.T) {
	root := t.TempDir()
	w, err := New(root)
	require.NoError(t, err)
	w.Start()
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("expected no event for dot-prefixed entry, got %+v", ev)
	case <-time.After(700 * time.Millisecond):
	}
}

func TestWatcher_DetectsDirAdded(t *testing.T) {
	root := t.TempDir()
	w, err := New(root)
	require.NoError(t, err)
	w.Start()
	defer w.Close()

	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	ev := collectEvent(t, w)
	assert.Equal(t, KindDirAdded, ev.Kind)
	assert.Equal(t, "sub", ev.Path)
}
