package room

import (
	"os"
	"path/filepath"

	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/pkg/filetree"
	"github.com/coderoom/engine/pkg/fswatch"
	"github.com/coderoom/engine/pkg/hub"
	"github.com/coderoom/engine/pkg/metrics"
	"github.com/coderoom/engine/pkg/syncarbiter"
)

// watchLoop translates the room's FS watcher events into Tree mutations,
// per the mapping of spec §4.5. Every event is gated by the Sync
// Arbiter with terminal origin: if an editor-origin token is active for
// the same path, the event is an echo of our own disk write and is
// dropped.
func (m *Manager) watchLoop(r *Room) {
	for ev := range r.watcher.Events() {
		m.handleWatchEvent(r, ev)
	}
}

func (m *Manager) handleWatchEvent(r *Room, ev fswatch.Event) {
	metrics.FSEventObserved(fsEventKindLabel(ev.Kind))

	origin := syncarbiter.OriginTerminal
	if ev.Kind == fswatch.KindDirAdded || ev.Kind == fswatch.KindDirRemoved {
		origin = syncarbiter.OriginTermFolder
	}
	if !r.arbiter.TryAcquire(origin, r.Code, ev.Path) {
		metrics.SyncSuppressed(string(origin))
		return
	}

	switch ev.Kind {
	case fswatch.KindFileAdded:
		m.watchFileUpsert(r, ev.Path)
	case fswatch.KindFileChanged:
		m.watchFileUpsert(r, ev.Path)
	case fswatch.KindFileRemoved:
		m.watchDelete(r, ev.Path)
	case fswatch.KindDirAdded:
		m.watchDirAdded(r, ev.Path)
	case fswatch.KindDirRemoved:
		m.watchDelete(r, ev.Path)
	}
}

func fsEventKindLabel(k fswatch.Kind) string {
	switch k {
	case fswatch.KindFileAdded:
		return "file_added"
	case fswatch.KindFileChanged:
		return "file_changed"
	case fswatch.KindFileRemoved:
		return "file_removed"
	case fswatch.KindDirAdded:
		return "dir_added"
	case fswatch.KindDirRemoved:
		return "dir_removed"
	default:
		return "unknown"
	}
}

func (m *Manager) watchFileUpsert(r *Room, path string) {
	content, err := os.ReadFile(filepath.Join(r.dir.Root(), filepath.FromSlash(path)))
	if err != nil {
		logger.Error("room: watcher read failed", "room", r.Code, "path", path, "error", err)
		return
	}

	r.mu.Lock()
	node, exists := r.tree.Get(path)
	var changed bool
	if exists {
		if node.Kind == filetree.KindFile && node.Content != string(content) {
			node.Content = string(content)
			changed = true
		}
	} else {
		if _, err := r.tree.CreateFile(path, string(content)); err == nil {
			changed = true
		}
	}
	r.mu.Unlock()

	if !changed {
		return
	}
	m.broadcastFilesUpdate(r.Code)
	m.hub.Broadcast(r.Code, hub.Message{Event: hub.EventFileSynced, Payload: map[string]string{"fileName": path, "content": string(content)}})
}

func (m *Manager) watchDirAdded(r *Room, path string) {
	r.mu.Lock()
	_, exists := r.tree.Get(path)
	var err error
	if !exists {
		_, err = r.tree.CreateFolder(path)
	}
	r.mu.Unlock()
	if exists || err != nil {
		return
	}

	m.broadcastFilesUpdate(r.Code)
	m.hub.Broadcast(r.Code, hub.Message{Event: hub.EventFolderCreated, Payload: map[string]string{"folderPath": path}})
}

func (m *Manager) watchDelete(r *Room, path string) {
	r.mu.Lock()
	node, exists := r.tree.Get(path)
	if !exists {
		r.mu.Unlock()
		return
	}
	kind := node.Kind
	effects, err := r.tree.DeleteItem(path)
	var changed map[string]string
	if err == nil {
		changed = r.reassignActive(effects)
	}
	r.mu.Unlock()
	if err != nil {
		return
	}

	m.hub.Broadcast(r.Code, hub.Message{Event: hub.EventItemDeleted, Payload: map[string]string{"itemPath": path, "type": typeLabel(kind)}})
	m.broadcastFilesUpdate(r.Code)
	m.notifyActiveChanges(r.Code, changed)
}
