// Package rooms defines the persisted Room Store contract shared by the
// in-memory and GORM-backed implementations.
package rooms

import (
	"context"
	"crypto/rand"
	"errors"
	"time"
)

// Room is the persisted record for a collaborative coding room.
// No file content is persisted here; the file tree lives only in memory
// for the lifetime of the room's membership.
type Room struct {
	// Code is the six-character upper-case alphanumeric room code.
	Code string `gorm:"primaryKey;size:6" yaml:"code"`

	// PasswordHash is the bcrypt hash (cost 10) of the room password.
	PasswordHash string `gorm:"size:72;not null" yaml:"-"`

	// CreatedAt is when the room was first created.
	CreatedAt time.Time `gorm:"index;not null" yaml:"created_at"`

	// LastAccessAt is refreshed on every successful Authenticate or Touch,
	// so an actively used room is not reaped out from under its members.
	LastAccessAt time.Time `gorm:"index;not null" yaml:"last_access_at"`
}

// Expired reports whether the room's TTL has elapsed as of now.
func (r Room) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(r.LastAccessAt) > ttl
}

var (
	// ErrRoomNotFound is returned when a room code has no matching record.
	ErrRoomNotFound = errors.New("rooms: room not found")

	// ErrBadPassword is returned when the supplied password does not match
	// the stored hash for an existing room.
	ErrBadPassword = errors.New("rooms: bad password")

	// ErrRoomCodeCollision is returned by Store implementations when a
	// generated code already exists; CreateRoom retries internally and only
	// surfaces this after exhausting its retry budget.
	ErrRoomCodeCollision = errors.New("rooms: room code collision")
)

// maxCreateRetries bounds CreateRoom's retry loop on code collisions so that
// adversarial exhaustion of the 36^6 code space cannot spin forever.
const maxCreateRetries = 5

// Store is the persisted Room Store (C1). Implementations must hash
// passwords before they touch storage; the plaintext password never leaves
// CreateRoom/Authenticate.
type Store interface {
	// CreateRoom generates a fresh room code, hashes password, and persists
	// the record. It retries internally on code collision up to a bounded
	// number of attempts before returning ErrRoomCodeCollision.
	CreateRoom(ctx context.Context, password string) (code string, err error)

	// Authenticate looks up code and compares password against the stored
	// hash in constant time. Returns ErrRoomNotFound or ErrBadPassword on
	// failure. A successful call refreshes LastAccessAt.
	Authenticate(ctx context.Context, code, password string) error

	// Touch refreshes a room's LastAccessAt without checking the password,
	// used to keep a room alive while it still has in-memory members.
	Touch(ctx context.Context, code string) error

	// List returns every persisted room, ordered by CreatedAt descending,
	// for operator inspection (coderoomd room list). PasswordHash is
	// still populated on the returned records; callers that print rooms
	// to a terminal must not render it.
	List(ctx context.Context) ([]Room, error)

	// Close releases any resources (database handles, reaper goroutines)
	// held by the store.
	Close() error
}

// codeAlphabet excludes no characters; the spec calls for upper-case
// alphanumeric, 36 possibilities per position.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a random six-character upper-case alphanumeric code.
func GenerateCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 6)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// MaxCreateRetries exposes the retry bound for implementations and tests.
func MaxCreateRetries() int {
	return maxCreateRetries
}
