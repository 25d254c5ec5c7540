package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderoom/engine/pkg/config"
	"github.com/coderoom/engine/pkg/rooms"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "rooms.db")
	s, err := New(context.Background(), config.DatabaseConfig{
		Type: "sqlite",
		Path: dbPath,
	}, 24*time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateRoom_AuthenticateRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	code, err := s.CreateRoom(ctx, "correct-horse")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	require.NoError(t, s.Authenticate(ctx, code, "correct-horse"))
	assert.ErrorIs(t, s.Authenticate(ctx, code, "wrong"), rooms.ErrBadPassword)
	assert.ErrorIs(t, s.Authenticate(ctx, "ZZZZZZ", "whatever"), rooms.ErrRoomNotFound)
}

func TestTouch_RefreshesLastAccess(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	code, err := s.CreateRoom(ctx, "correct-horse")
	require.NoError(t, err)

	require.NoError(t, s.Touch(ctx, code))
	assert.ErrorIs(t, s.Touch(ctx, "ZZZZZZ"), rooms.ErrRoomNotFound)
}

func TestReap_RemovesExpiredRooms(t *testing.T) {
	s := newSQLiteStore(t)
	s.ttl = time.Millisecond
	ctx := context.Background()

	code, err := s.CreateRoom(ctx, "correct-horse")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	s.reap()

	err = s.Authenticate(ctx, code, "correct-horse")
	assert.ErrorIs(t, err, rooms.ErrRoomNotFound)
}

func TestStartReaper_StopsOnClose(t *testing.T) {
	s := newSQLiteStore(t)
	s.StartReaper(time.Millisecond)
	require.NoError(t, s.Close())
}
