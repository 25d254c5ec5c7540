// Package memory implements an in-process rooms.Store backed by a mutex-
// guarded map, mirroring the teacher's pkg/metadata/store/memory CRUD layer.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coderoom/engine/pkg/identity"
	"github.com/coderoom/engine/pkg/rooms"
)

// Store is a process-local rooms.Store. The room roster does not survive a
// restart; suitable for single-node deployments and test harnesses.
type Store struct {
	mu    sync.Mutex
	rooms map[string]rooms.Room

	ttl    time.Duration
	stopCh chan struct{}
}

var _ rooms.Store = (*Store)(nil)

// New creates an empty in-memory room store. ttl configures how long an
// un-touched room survives before the background reaper removes it.
func New(ttl time.Duration) *Store {
	return &Store{
		rooms: make(map[string]rooms.Room),
		ttl:   ttl,
	}
}

// CreateRoom generates a code, retrying on collision up to MaxCreateRetries.
func (s *Store) CreateRoom(ctx context.Context, password string) (string, error) {
	hash, err := identity.HashPassword(password)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < rooms.MaxCreateRetries(); attempt++ {
		code, err := rooms.GenerateCode()
		if err != nil {
			return "", err
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		now := time.Now()
		s.rooms[code] = rooms.Room{
			Code:         code,
			PasswordHash: hash,
			CreatedAt:    now,
			LastAccessAt: now,
		}
		return code, nil
	}

	return "", rooms.ErrRoomCodeCollision
}

// Authenticate looks up code and verifies password.
func (s *Store) Authenticate(ctx context.Context, code, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return rooms.ErrRoomNotFound
	}
	if !identity.VerifyPassword(password, room.PasswordHash) {
		return rooms.ErrBadPassword
	}

	room.LastAccessAt = time.Now()
	s.rooms[code] = room
	return nil
}

// Touch refreshes LastAccessAt for code without checking a password.
func (s *Store) Touch(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return rooms.ErrRoomNotFound
	}
	room.LastAccessAt = time.Now()
	s.rooms[code] = room
	return nil
}

// List returns every room currently held in memory, ordered by
// CreatedAt descending.
func (s *Store) List(ctx context.Context) ([]rooms.Room, error) {
	s.mu.Lock()
	out := make([]rooms.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Close stops the background reaper, if running.
func (s *Store) Close() error {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	return nil
}

// StartReaper launches a goroutine that periodically removes rooms whose
// TTL has elapsed. Call Close to stop it.
func (s *Store) StartReaper(interval time.Duration) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	stopCh := make(chan struct{})
	s.stopCh = stopCh
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.reap()
			}
		}
	}()
}

// reap removes every room whose TTL has elapsed.
func (s *Store) reap() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, room := range s.rooms {
		if room.Expired(s.ttl, now) {
			delete(s.rooms, code)
		}
	}
}
