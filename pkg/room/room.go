// Package room realizes the per-room serialization domain of §5: one
// *Room owns a single mutex guarding its File Tree and active-file map.
// The Sync Arbiter is shared by all rooms and guards its token table with
// its own mutex. Disk I/O, PTY I/O, and hub fan-out happen outside the
// held lock.
package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/pkg/filetree"
	"github.com/coderoom/engine/pkg/fswatch"
	"github.com/coderoom/engine/pkg/hub"
	"github.com/coderoom/engine/pkg/metrics"
	"github.com/coderoom/engine/pkg/pty"
	"github.com/coderoom/engine/pkg/rooms"
	"github.com/coderoom/engine/pkg/syncarbiter"
	"github.com/coderoom/engine/pkg/workdir"
)

const (
	defaultFile    = "main.js"
	defaultContent = "// start typing...\n"
)

// Room is the in-memory state materialized for a room between its first
// join and its membership dropping to zero.
type Room struct {
	Code string

	mu      sync.Mutex
	tree    *filetree.Tree
	arbiter *syncarbiter.Arbiter
	active  map[string]string // userID -> active file path

	dir     *workdir.Dir
	watcher *fswatch.Watcher
}

// Limits bounds per-room resource usage. All fields are required;
// NewManager does not apply its own defaults.
type Limits struct {
	// MaxMembers caps the number of concurrent members a single room may
	// have; JoinRoom returns ErrRoomFull once a room is at capacity.
	MaxMembers int

	// MaxFileSize caps a single file's content in bytes; CreateFile and
	// SetFileContent return filetree.ErrFileTooLarge past this limit.
	MaxFileSize int64

	// WatcherPollInterval is how often the FS Watcher flushes pending,
	// stabilized changes for a room's working directory.
	WatcherPollInterval time.Duration

	// WatcherStabilityWindow is how long a path must be quiet before the
	// FS Watcher reports it as changed.
	WatcherStabilityWindow time.Duration
}

// Manager materializes and tears down rooms, and wires every mutation
// through the Tree, Working Directory, Sync Arbiter, Hub, and PTY
// Manager per the gateway flows of §4.8.
type Manager struct {
	store       rooms.Store
	hub         *hub.Hub
	pty         *pty.Manager
	workDirRoot string
	syncTTL     time.Duration
	limits      Limits

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewManager wires the shared collaborators a Manager needs: the
// persisted Room Store (C1), the Room Hub (C7, shared across all rooms),
// the PTY Manager (C6, shared across all rooms), the parent directory
// working directories are created under, the Sync Arbiter's token TTL,
// and the per-room resource Limits.
func NewManager(store rooms.Store, h *hub.Hub, ptyMgr *pty.Manager, workDirRoot string, syncTTL time.Duration, limits Limits) *Manager {
	return &Manager{
		store:       store,
		hub:         h,
		pty:         ptyMgr,
		workDirRoot: workDirRoot,
		syncTTL:     syncTTL,
		limits:      limits,
		rooms:       make(map[string]*Room),
	}
}

// ErrRoomFull is returned by JoinRoom when the room already has
// Limits.MaxMembers live members.
var ErrRoomFull = errors.New("room: at max member capacity")

// materialize creates the in-memory state for code: a tree seeded with
// the default file, a working directory, a sync arbiter, and a running
// FS watcher. Caller must hold m.mu.
func (m *Manager) materialize(code string) (*Room, error) {
	dir, err := workdir.New(m.workDirRoot, code)
	if err != nil {
		return nil, fmt.Errorf("room %s: allocate working directory: %w", code, err)
	}

	tree := filetree.NewWithMaxFileSize(m.limits.MaxFileSize)
	if _, err := tree.CreateFile(defaultFile, defaultContent); err != nil {
		return nil, fmt.Errorf("room %s: seed default file: %w", code, err)
	}
	if err := dir.WriteFile(defaultFile, []byte(defaultContent)); err != nil {
		return nil, fmt.Errorf("room %s: write default file: %w", code, err)
	}

	watcher, err := fswatch.NewWithTiming(dir.Root(), m.limits.WatcherPollInterval, m.limits.WatcherStabilityWindow)
	if err != nil {
		return nil, fmt.Errorf("room %s: start watcher: %w", code, err)
	}
	watcher.Start()

	r := &Room{
		Code:    code,
		tree:    tree,
		arbiter: syncarbiter.New(m.syncTTL),
		active:  make(map[string]string),
		dir:     dir,
		watcher: watcher,
	}

	go m.watchLoop(r)

	metrics.RoomMaterialized()
	return r, nil
}

// getOrCreate returns the in-memory room for code, materializing it if
// this is the first member since the room was last torn down (or ever).
func (m *Manager) getOrCreate(code string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rooms[code]; ok {
		return r, nil
	}

	r, err := m.materialize(code)
	if err != nil {
		return nil, err
	}
	m.rooms[code] = r
	return r, nil
}

func (m *Manager) get(code string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[code]
	return r, ok
}

// teardown closes the watcher, removes the working directory, releases
// the arbiter's tokens, and drops the room from the map. Called once
// membership reaches zero.
func (m *Manager) teardown(code string) {
	m.mu.Lock()
	r, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	r.watcher.Close()
	r.arbiter.ReleaseRoom(code)
	if err := r.dir.Cleanup(); err != nil {
		logger.Error("room: cleanup working directory failed", "room", code, "error", err)
	}
	metrics.RoomTornDown()
}

// CreateRoom persists a fresh room, materializes its in-memory state,
// joins the creator, and spawns their PTY.
func (m *Manager) CreateRoom(ctx context.Context, userID, username, password string) (code string, files map[string]filetree.Node, activeFile string, err error) {
	code, err = m.store.CreateRoom(ctx, password)
	if err != nil {
		return "", nil, "", err
	}

	r, err := m.getOrCreate(code)
	if err != nil {
		return "", nil, "", err
	}

	files, activeFile = m.join(r, userID, username)
	return code, files, activeFile, nil
}

// JoinRoom authenticates against the Room Store, then joins the hub
// (materializing in-memory state with defaults if this is the room's
// first live member) and spawns the user's PTY. Returns ErrRoomFull if
// the room already has Limits.MaxMembers live members.
func (m *Manager) JoinRoom(ctx context.Context, userID, username, code, password string) (files map[string]filetree.Node, activeFile string, err error) {
	if err := m.store.Authenticate(ctx, code, password); err != nil {
		return nil, "", err
	}

	if existing, ok := m.get(code); ok && len(m.hub.Members(existing.Code)) >= m.limits.MaxMembers {
		return nil, "", ErrRoomFull
	}

	r, err := m.getOrCreate(code)
	if err != nil {
		return nil, "", err
	}

	files, activeFile = m.join(r, userID, username)
	return files, activeFile, nil
}

func (m *Manager) join(r *Room, userID, username string) (map[string]filetree.Node, string) {
	r.mu.Lock()
	first, _ := r.tree.FirstFile()
	r.active[userID] = first
	files := r.tree.Snapshot()
	r.mu.Unlock()

	m.hub.Join(r.Code, userID)
	m.hub.BroadcastExcept(r.Code, userID, hub.Message{
		Event:   hub.EventUserJoined,
		Payload: map[string]string{"username": username, "userId": userID},
	})

	if err := m.pty.Spawn(r.Code, userID, r.dir.Root()); err != nil {
		logger.Error("room: pty spawn failed", "room", r.Code, "user", userID, "error", err)
	}
	if err := m.store.Touch(context.Background(), r.Code); err != nil {
		logger.Error("room: touch failed", "room", r.Code, "error", err)
	}

	return files, first
}

// Leave removes userID from the room: kills their PTY, drops hub
// membership, and (if membership reaches zero) tears down the room's
// in-memory state entirely.
func (m *Manager) Leave(code, userID, username string) {
	r, ok := m.get(code)
	if !ok {
		return
	}

	m.pty.Kill(code, userID)

	r.mu.Lock()
	delete(r.active, userID)
	r.mu.Unlock()

	remaining := m.hub.Leave(code, userID)
	m.hub.BroadcastExcept(code, userID, hub.Message{
		Event:   hub.EventUserLeft,
		Payload: map[string]string{"username": username, "userId": userID},
	})

	if remaining == 0 {
		m.teardown(code)
	}
}

// Snapshot returns the full file mapping for a room, for get-files.
func (m *Manager) Snapshot(code string) (map[string]filetree.Node, error) {
	r, ok := m.get(code)
	if !ok {
		return nil, fmt.Errorf("room: %s has no in-memory state", code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.Snapshot(), nil
}

// FileContent returns a single file's content, for get-file-content.
func (m *Manager) FileContent(code, path string) (string, error) {
	r, ok := m.get(code)
	if !ok {
		return "", fmt.Errorf("room: %s has no in-memory state", code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	node, ok := r.tree.Get(path)
	if !ok {
		return "", filetree.ErrNotFound
	}
	if node.Kind != filetree.KindFile {
		return "", filetree.ErrNotAFile
	}
	return node.Content, nil
}

// WorkingDirectory returns the absolute path of a room's on-disk
// working directory, for get-working-directory.
func (m *Manager) WorkingDirectory(code string) (string, error) {
	r, ok := m.get(code)
	if !ok {
		return "", fmt.Errorf("room: %s has no in-memory state", code)
	}
	return r.dir.Root(), nil
}

// InitTerminal ensures userID has a live PTY in room code, for
// terminal-init. Spawn is idempotent, so this is a no-op once the user's
// shell is already running (the normal case, since join already spawns
// it); it exists to recover a session that exited without a pending
// respawn, e.g. a reconnect racing the exit-watcher's cleanup.
func (m *Manager) InitTerminal(code, userID string) error {
	r, ok := m.get(code)
	if !ok {
		return fmt.Errorf("room: %s has no in-memory state", code)
	}
	return m.pty.Spawn(code, userID, r.dir.Root())
}

// Events returns userID's private event channel for code, joining the
// hub idempotently if this is their first subscription. The gateway
// uses this instead of reaching into the hub package directly.
func (m *Manager) Events(code, userID string) <-chan hub.Message {
	return m.hub.Join(code, userID)
}

// SwitchActiveFile records userID's explicit editor-tab switch and
// notifies them privately.
func (m *Manager) SwitchActiveFile(code, userID, path string) error {
	r, ok := m.get(code)
	if !ok {
		return fmt.Errorf("room: %s has no in-memory state", code)
	}

	r.mu.Lock()
	if _, exists := r.tree.Get(path); !exists {
		r.mu.Unlock()
		return filetree.ErrNotFound
	}
	r.active[userID] = path
	r.mu.Unlock()

	m.hub.Send(code, userID, hub.Message{Event: hub.EventActiveFileChanged, Payload: map[string]string{"fileName": path}})
	return nil
}
