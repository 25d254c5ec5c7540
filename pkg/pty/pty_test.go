package pty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderoom/engine/pkg/hub"
)

func TestSpawn_DeliversOutputToOwningUserOnly(t *testing.T) {
	h := hub.New()
	alice := h.Join("room1", "alice")
	bob := h.Join("room1", "bob")

	m := New(h)
	require.NoError(t, m.Spawn("room1", "alice", t.TempDir()))

	require.NoError(t, m.ExecuteCommand("room1", "alice", "echo hi"))

	select {
	case msg := <-alice:
		assert.Equal(t, hub.EventTerminalOutput, msg.Event)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for terminal output")
	}

	select {
	case msg := <-bob:
		t.Fatalf("bob should never receive terminal output, got %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}

	m.Kill("room1", "alice")
}

func TestSpawn_IsIdempotentPerUser(t *testing.T) {
	h := hub.New()
	h.Join("room1", "alice")
	m := New(h)

	require.NoError(t, m.Spawn("room1", "alice", t.TempDir()))
	sess1, ok := m.get("room1", "alice")
	require.True(t, ok)

	require.NoError(t, m.Spawn("room1", "alice", t.TempDir()))
	sess2, ok := m.get("room1", "alice")
	require.True(t, ok)

	assert.Same(t, sess1, sess2)
	m.Kill("room1", "alice")
}

func TestExecuteCommand_UnknownUserReturnsError(t *testing.T) {
	m := New(hub.New())
	err := m.ExecuteCommand("room1", "ghost", "ls")
	assert.Error(t, err)
}

func TestKill_RemovesSessionWithoutRespawn(t *testing.T) {
	h := hub.New()
	h.Join("room1", "alice")
	m := New(h)

	require.NoError(t, m.Spawn("room1", "alice", t.TempDir()))
	m.Kill("room1", "alice")

	_, ok := m.get("room1", "alice")
	assert.False(t, ok)
}
