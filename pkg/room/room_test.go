package room

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderoom/engine/pkg/filetree"
	"github.com/coderoom/engine/pkg/hub"
	"github.com/coderoom/engine/pkg/pty"
	"github.com/coderoom/engine/pkg/rooms/memory"
)

func newTestManager(t *testing.T) (*Manager, *hub.Hub) {
	t.Helper()
	store := memory.New(24 * time.Hour)
	t.Cleanup(func() { store.Close() })

	h := hub.New()
	ptyMgr := pty.New(h)
	limits := Limits{
		MaxMembers:             32,
		MaxFileSize:            5 * 1024 * 1024,
		WatcherPollInterval:    100 * time.Millisecond,
		WatcherStabilityWindow: 500 * time.Millisecond,
	}
	return NewManager(store, h, ptyMgr, t.TempDir(), 300*time.Millisecond, limits), h
}

func TestCreateRoom_MaterializesDefaultFileAndJoinsCreator(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, files, activeFile, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, defaultFile, activeFile)
	require.Contains(t, files, defaultFile)
	assert.Equal(t, defaultContent, files[defaultFile].Content)

	root, err := m.WorkingDirectory(code)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, defaultFile))
	require.NoError(t, err)
	assert.Equal(t, defaultContent, string(data))

	m.Leave(code, "alice", "Alice")
}

func TestJoinRoom_BadPasswordRejected(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, _, _, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)

	_, _, err = m.JoinRoom(ctx, "bob", "Bob", code, "wrong")
	assert.Error(t, err)

	m.Leave(code, "alice", "Alice")
}

func TestCreateFile_WritesToDiskAndBroadcasts(t *testing.T) {
	m, h := newTestManager(t)
	ctx := context.Background()

	code, _, _, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)
	ch := h.Join(code, "alice")
	drain(ch)

	require.NoError(t, m.CreateFile(code, "notes.py", ""))

	msg := waitMsg(t, ch)
	assert.Equal(t, hub.EventFileCreated, msg.Event)

	root, err := m.WorkingDirectory(code)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, "notes.py"))
	require.NoError(t, err)
	assert.Equal(t, "# New file\n", string(data))

	m.Leave(code, "alice", "Alice")
}

func TestDeleteItem_LastFileRejected(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, _, _, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)

	err = m.DeleteItem(code, defaultFile)
	assert.ErrorIs(t, err, filetree.ErrCannotDeleteLastFile)

	m.Leave(code, "alice", "Alice")
}

func TestRenameItem_ActiveFileFollowsRename(t *testing.T) {
	m, h := newTestManager(t)
	ctx := context.Background()

	code, _, _, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)
	ch := h.Join(code, "alice")
	drain(ch)

	require.NoError(t, m.RenameItem(code, defaultFile, "index.js"))

	msg := waitMsgMatching(t, ch, hub.EventActiveFileChanged)
	assert.Equal(t, map[string]string{"fileName": "index.js"}, msg.Payload)

	m.Leave(code, "alice", "Alice")
}

func TestJoinRoom_RejectsOnceAtMaxMembers(t *testing.T) {
	store := memory.New(24 * time.Hour)
	t.Cleanup(func() { store.Close() })
	h := hub.New()
	ptyMgr := pty.New(h)
	limits := Limits{
		MaxMembers:             1,
		MaxFileSize:            5 * 1024 * 1024,
		WatcherPollInterval:    100 * time.Millisecond,
		WatcherStabilityWindow: 500 * time.Millisecond,
	}
	m := NewManager(store, h, ptyMgr, t.TempDir(), 300*time.Millisecond, limits)
	ctx := context.Background()

	code, _, _, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)

	_, _, err = m.JoinRoom(ctx, "bob", "Bob", code, "hunter2")
	assert.ErrorIs(t, err, ErrRoomFull)

	m.Leave(code, "alice", "Alice")
}

func TestCreateFile_RejectsContentOverMaxFileSize(t *testing.T) {
	store := memory.New(24 * time.Hour)
	t.Cleanup(func() { store.Close() })
	h := hub.New()
	ptyMgr := pty.New(h)
	limits := Limits{
		MaxMembers:             32,
		MaxFileSize:            24,
		WatcherPollInterval:    100 * time.Millisecond,
		WatcherStabilityWindow: 500 * time.Millisecond,
	}
	m := NewManager(store, h, ptyMgr, t.TempDir(), 300*time.Millisecond, limits)
	ctx := context.Background()

	code, _, _, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)

	err = m.CreateFile(code, "big.txt", "this content is far too long")
	assert.ErrorIs(t, err, filetree.ErrFileTooLarge)

	m.Leave(code, "alice", "Alice")
}

func TestLeave_TearsDownRoomWhenLastMemberGone(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	code, _, _, err := m.CreateRoom(ctx, "alice", "Alice", "hunter2")
	require.NoError(t, err)

	root, err := m.WorkingDirectory(code)
	require.NoError(t, err)

	m.Leave(code, "alice", "Alice")

	_, ok := m.get(code)
	assert.False(t, ok)
	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr))
}

func drain(ch <-chan hub.Message) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func waitMsg(t *testing.T, ch <-chan hub.Message) hub.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hub message")
		return hub.Message{}
	}
}

func waitMsgMatching(t *testing.T, ch <-chan hub.Message, event string) hub.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Event == event {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for hub message %q", event)
			return hub.Message{}
		}
	}
}
