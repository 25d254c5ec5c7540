// Package syncarbiter suppresses the echo loop between an editor-driven
// write and the filesystem watcher that would otherwise observe it and
// write it back. It generalizes the teacher's pkg/metadata/lock
// GracePeriodManager shape (state held under a mutex, a time.Timer
// driving auto-expiry) from a one-shot grace period to a per-token,
// auto-renewing suppression window.
package syncarbiter

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Origin identifies which side of the sync performed the write that a
// token suppresses the echo of.
type Origin string

const (
	OriginEditor       Origin = "editor"
	OriginTerminal     Origin = "terminal"
	OriginEditorFolder Origin = "editor-folder"
	OriginTermFolder   Origin = "terminal-folder"
)

// opposite returns the origin whose writes this origin's token suppresses.
func (o Origin) opposite() Origin {
	switch o {
	case OriginEditor:
		return OriginTerminal
	case OriginTerminal:
		return OriginEditor
	case OriginEditorFolder:
		return OriginTermFolder
	case OriginTermFolder:
		return OriginEditorFolder
	default:
		return o
	}
}

func token(origin Origin, room, path string) string {
	return fmt.Sprintf("%s-%s-%s", origin, room, path)
}

// Arbiter owns the active suppression token set for every room. A token
// for (origin, room, path) suppresses a write from origin's opposite side
// to the same (room, path) until it auto-clears, default 300ms after it
// was last (re)armed.
type Arbiter struct {
	mu     sync.Mutex
	ttl    time.Duration
	active map[string]*time.Timer
}

// New creates an arbiter whose tokens auto-clear after ttl.
func New(ttl time.Duration) *Arbiter {
	return &Arbiter{
		ttl:    ttl,
		active: make(map[string]*time.Timer),
	}
}

// TryAcquire attempts to begin a write from origin to (room, path). It
// returns false if the opposite origin currently holds the token for the
// same (room, path) — the caller must drop the operation silently. On
// success, it arms (or re-arms) this origin's own token for ttl.
func (a *Arbiter) TryAcquire(origin Origin, room, path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	oppositeKey := token(origin.opposite(), room, path)
	if _, held := a.active[oppositeKey]; held {
		return false
	}

	ownKey := token(origin, room, path)
	if timer, exists := a.active[ownKey]; exists {
		timer.Stop()
	}
	a.active[ownKey] = time.AfterFunc(a.ttl, func() {
		a.release(ownKey)
	})
	return true
}

func (a *Arbiter) release(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.active, key)
}

// Active reports whether a token for (origin, room, path) is currently
// held, without acquiring it. Useful for diagnostics and tests.
func (a *Arbiter) Active(origin Origin, room, path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.active[token(origin, room, path)]
	return ok
}

// ReleaseRoom cancels every outstanding token belonging to room, called
// when a room's in-memory state is torn down.
func (a *Arbiter) ReleaseRoom(room string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	segment := "-" + room + "-"
	for key, timer := range a.active {
		if strings.Contains(key, segment) {
			timer.Stop()
			delete(a.active, key)
		}
	}
}
