package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_ReturnsSameChannelOnRejoin(t *testing.T) {
	h := New()
	ch1 := h.Join("room1", "alice")
	ch2 := h.Join("room1", "alice")
	assert.Equal(t, ch1, ch2)
}

func TestBroadcast_DeliversToAllMembers(t *testing.T) {
	h := New()
	alice := h.Join("room1", "alice")
	bob := h.Join("room1", "bob")

	h.Broadcast("room1", Message{Event: EventFilesUpdate})

	require.Len(t, alice, 1)
	require.Len(t, bob, 1)
	assert.Equal(t, EventFilesUpdate, (<-alice).Event)
	assert.Equal(t, EventFilesUpdate, (<-bob).Event)
}

func TestBroadcastExcept_SkipsSender(t *testing.T) {
	h := New()
	alice := h.Join("room1", "alice")
	bob := h.Join("room1", "bob")

	h.BroadcastExcept("room1", "alice", Message{Event: EventUserJoined})

	assert.Len(t, alice, 0)
	assert.Len(t, bob, 1)
}

func TestSend_DeliversToSingleUserOnly(t *testing.T) {
	h := New()
	alice := h.Join("room1", "alice")
	bob := h.Join("room1", "bob")

	ok := h.Send("room1", "alice", Message{Event: EventTerminalOutput})
	require.True(t, ok)

	assert.Len(t, alice, 1)
	assert.Len(t, bob, 0)
}

func TestSend_ReportsFalseForUnknownUser(t *testing.T) {
	h := New()
	h.Join("room1", "alice")

	ok := h.Send("room1", "ghost", Message{Event: EventTerminalOutput})
	assert.False(t, ok)
}

func TestLeave_RemovesMemberAndReportsRemainingCount(t *testing.T) {
	h := New()
	h.Join("room1", "alice")
	h.Join("room1", "bob")

	remaining := h.Leave("room1", "alice")
	assert.Equal(t, 1, remaining)
	assert.Equal(t, []string{"bob"}, h.Members("room1"))
}

func TestLeave_LastMemberDiscardsRoomState(t *testing.T) {
	h := New()
	h.Join("room1", "alice")

	remaining := h.Leave("room1", "alice")
	assert.Equal(t, 0, remaining)
	assert.Nil(t, h.Members("room1"))
}

func TestMemberChannel_DropsOldestOnOverflow(t *testing.T) {
	h := New()
	ch := h.Join("room1", "alice")

	for i := 0; i < memberBufferSize+10; i++ {
		h.Send("room1", "alice", Message{Event: EventFileSynced, Payload: i})
	}

	require.Len(t, ch, memberBufferSize)
	first := <-ch
	assert.Equal(t, 10, first.Payload)
}
