// Package hub maintains per-room membership and fans out events to
// connected clients: room-wide broadcasts and per-user private deliveries
// (PTY output, active-file changes). Per-user channels are buffered and
// drop the oldest pending message on overflow so that fan-out is never a
// suspension point inside the room's serialization domain.
package hub

import "sync"

// Event names used on both room-wide broadcasts and per-user deliveries.
const (
	EventFilesUpdate       = "files-update"
	EventFileCreated       = "file-created"
	EventFileSynced        = "file-synced"
	EventFolderCreated     = "folder-created"
	EventItemDeleted       = "item-deleted"
	EventItemRenamed       = "item-renamed"
	EventItemMoved         = "item-moved"
	EventFolderToggled     = "folder-toggled"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventFileContentUpdate = "file-content-update"
	EventActiveFileChanged = "active-file-changed"
	EventTerminalOutput    = "terminal-output"
	EventFileError         = "file-error"
	EventRoomCreated       = "room-created"
)

// memberBufferSize is the per-user delivery channel capacity; a
// slow/stalled client drops its oldest pending message rather than ever
// blocking a sender.
const memberBufferSize = 64

// Message is a single event delivered to one or more clients.
type Message struct {
	Event   string
	Payload any
}

type member struct {
	mu sync.Mutex
	ch chan Message
}

func newMember() *member {
	return &member{ch: make(chan Message, memberBufferSize)}
}

// send delivers msg without blocking, dropping the oldest buffered
// message if the channel is full.
func (m *member) send(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case m.ch <- msg:
		return
	default:
	}

	select {
	case <-m.ch:
	default:
	}

	select {
	case m.ch <- msg:
	default:
	}
}

type room struct {
	members map[string]*member
	order   []string
}

// Hub tracks membership and delivery channels for every in-memory room.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// Join adds userID to room (idempotent; re-joins by the same user are
// collapsed) and returns the channel the user should read events from.
func (h *Hub) Join(roomCode, userID string) <-chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomCode]
	if !ok {
		r = &room{members: make(map[string]*member)}
		h.rooms[roomCode] = r
	}

	m, exists := r.members[userID]
	if !exists {
		m = newMember()
		r.members[userID] = m
		r.order = append(r.order, userID)
	}
	return m.ch
}

// Leave removes userID from room and returns the number of members
// remaining. If the room has no members left, its state is discarded.
func (h *Hub) Leave(roomCode, userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomCode]
	if !ok {
		return 0
	}

	delete(r.members, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	remaining := len(r.members)
	if remaining == 0 {
		delete(h.rooms, roomCode)
	}
	return remaining
}

// Members returns the user-ids currently joined to room, in join order.
func (h *Hub) Members(roomCode string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomCode]
	if !ok {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Broadcast delivers msg to every member of room.
func (h *Hub) Broadcast(roomCode string, msg Message) {
	h.mu.Lock()
	r, ok := h.rooms[roomCode]
	var members []*member
	if ok {
		members = make([]*member, 0, len(r.members))
		for _, m := range r.members {
			members = append(members, m)
		}
	}
	h.mu.Unlock()

	for _, m := range members {
		m.send(msg)
	}
}

// BroadcastExcept delivers msg to every member of room other than
// exceptUserID.
func (h *Hub) BroadcastExcept(roomCode, exceptUserID string, msg Message) {
	h.mu.Lock()
	r, ok := h.rooms[roomCode]
	var targets []*member
	if ok {
		targets = make([]*member, 0, len(r.members))
		for id, m := range r.members {
			if id == exceptUserID {
				continue
			}
			targets = append(targets, m)
		}
	}
	h.mu.Unlock()

	for _, m := range targets {
		m.send(msg)
	}
}

// HasMember reports whether userID is currently joined to room.
func (h *Hub) HasMember(roomCode, userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomCode]
	if !ok {
		return false
	}
	_, ok = r.members[userID]
	return ok
}

// Send delivers msg to a single user's private channel. It reports
// whether the user was a member of room.
func (h *Hub) Send(roomCode, userID string, msg Message) bool {
	h.mu.Lock()
	r, ok := h.rooms[roomCode]
	var m *member
	if ok {
		m, ok = r.members[userID]
	}
	h.mu.Unlock()

	if !ok {
		return false
	}
	m.send(msg)
	return true
}
