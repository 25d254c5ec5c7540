package room

import (
	"github.com/coderoom/engine/pkg/filetree"
	"github.com/coderoom/engine/pkg/hub"
)

// RunFile flushes path's in-memory content to disk, then asks the Run
// Dispatcher (C9) for its command line and executes it in userID's PTY.
// An unknown extension produces a file-error to the requesting user
// only, per §4.9.
func (m *Manager) RunFile(code, userID, path string) error {
	r, ok := m.get(code)
	if !ok {
		return filetree.ErrNotFound
	}

	r.mu.Lock()
	node, exists := r.tree.Get(path)
	var content string
	if exists && node.Kind == filetree.KindFile {
		content = node.Content
	}
	r.mu.Unlock()

	if !exists {
		m.hub.Send(code, userID, hub.Message{Event: hub.EventFileError, Payload: map[string]string{"message": "file not found: " + path}})
		return filetree.ErrNotFound
	}
	if node.Kind != filetree.KindFile {
		m.hub.Send(code, userID, hub.Message{Event: hub.EventFileError, Payload: map[string]string{"message": "not a file: " + path}})
		return filetree.ErrNotAFile
	}

	if err := r.dir.WriteFile(path, []byte(content)); err != nil {
		m.hub.Send(code, userID, hub.Message{Event: hub.EventFileError, Payload: map[string]string{"message": err.Error()}})
		return err
	}

	if err := m.pty.RunFile(code, userID, path); err != nil {
		m.hub.Send(code, userID, hub.Message{Event: hub.EventFileError, Payload: map[string]string{"message": err.Error()}})
		return err
	}
	return nil
}

// SaveAndRun flushes every file's content to disk before running path
// (or the user's current active file if path is empty), matching the
// "save-and-run" wire event of §6.
func (m *Manager) SaveAndRun(code, userID, path string) error {
	r, ok := m.get(code)
	if !ok {
		return filetree.ErrNotFound
	}

	r.mu.Lock()
	snapshot := r.tree.Snapshot()
	if path == "" {
		path = r.active[userID]
	}
	r.mu.Unlock()

	for p, node := range snapshot {
		if node.Kind != filetree.KindFile {
			continue
		}
		if err := r.dir.WriteFile(p, []byte(node.Content)); err != nil {
			m.hub.Send(code, userID, hub.Message{Event: hub.EventFileError, Payload: map[string]string{"message": err.Error()}})
			return err
		}
	}

	if err := m.pty.RunFile(code, userID, path); err != nil {
		m.hub.Send(code, userID, hub.Message{Event: hub.EventFileError, Payload: map[string]string{"message": err.Error()}})
		return err
	}
	return nil
}
