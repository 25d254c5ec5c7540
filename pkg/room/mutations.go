package room

import (
	"github.com/coderoom/engine/internal/logger"
	"github.com/coderoom/engine/pkg/filetree"
	"github.com/coderoom/engine/pkg/hub"
	"github.com/coderoom/engine/pkg/metrics"
	"github.com/coderoom/engine/pkg/syncarbiter"
)

// originFor picks the plain or folder-qualified sync token origin for
// side ("editor" or "terminal") and the affected node's kind.
func originFor(side string, kind filetree.Kind) syncarbiter.Origin {
	folder := kind == filetree.KindFolder
	switch {
	case side == "editor" && folder:
		return syncarbiter.OriginEditorFolder
	case side == "editor":
		return syncarbiter.OriginEditor
	case folder:
		return syncarbiter.OriginTermFolder
	default:
		return syncarbiter.OriginTerminal
	}
}

func typeLabel(kind filetree.Kind) string {
	if kind == filetree.KindFolder {
		return "folder"
	}
	return "file"
}

// applyToDisk replays effects against the working directory, one disk
// operation per effect, gated by the Sync Arbiter so a write from side
// is dropped if the opposite side currently owns the same (room, path).
func (r *Room) applyToDisk(side string, effects []filetree.Effect) {
	for _, eff := range effects {
		origin := originFor(side, eff.Kind)
		if !r.arbiter.TryAcquire(origin, r.Code, eff.Path) {
			metrics.SyncSuppressed(string(origin))
			continue
		}

		var err error
		switch eff.Op {
		case filetree.EffectCreateFile, filetree.EffectSetContent:
			err = r.dir.WriteFile(eff.Path, []byte(eff.Content))
		case filetree.EffectCreateFolder:
			err = r.dir.CreateDir(eff.Path)
		case filetree.EffectDelete:
			err = r.dir.DeleteItem(eff.Path)
		case filetree.EffectRename:
			err = r.dir.Rename(eff.OldPath, eff.Path)
		}
		if err != nil {
			logger.Error("room: disk apply failed", "room", r.Code, "path", eff.Path, "error", err)
		}
	}
}

// reassignActive updates every user's active-file path following a
// rename/move (the active path follows the node) or a delete (falls
// back to the first remaining file). Caller must hold r.mu. Returns the
// user-ids whose active file changed, for notification after the lock
// is released.
func (r *Room) reassignActive(effects []filetree.Effect) map[string]string {
	changed := make(map[string]string)

	for _, eff := range effects {
		switch eff.Op {
		case filetree.EffectRename:
			for userID, path := range r.active {
				if path == eff.OldPath {
					r.active[userID] = eff.Path
					changed[userID] = eff.Path
				}
			}
		case filetree.EffectDelete:
			fallback, _ := r.tree.FirstFile()
			for userID, path := range r.active {
				if path == eff.Path {
					r.active[userID] = fallback
					changed[userID] = fallback
				}
			}
		}
	}
	return changed
}

func (m *Manager) notifyActiveChanges(code string, changed map[string]string) {
	for userID, path := range changed {
		m.hub.Send(code, userID, hub.Message{Event: hub.EventActiveFileChanged, Payload: map[string]string{"fileName": path}})
	}
}

// broadcastFilesUpdate fans out the room's current file mapping. Sent
// alongside the specific structural event for every mutation that adds,
// removes, or re-keys a node, per §6.
func (m *Manager) broadcastFilesUpdate(code string) {
	r, ok := m.get(code)
	if !ok {
		return
	}
	r.mu.Lock()
	files := r.tree.Snapshot()
	r.mu.Unlock()
	m.hub.Broadcast(code, hub.Message{Event: hub.EventFilesUpdate, Payload: files})
}

func (m *Manager) broadcastEffects(code string, effects []filetree.Effect) {
	for _, eff := range effects {
		switch eff.Op {
		case filetree.EffectCreateFile:
			m.hub.Broadcast(code, hub.Message{Event: hub.EventFileCreated, Payload: map[string]string{"fileName": eff.Path}})
		case filetree.EffectCreateFolder:
			m.hub.Broadcast(code, hub.Message{Event: hub.EventFolderCreated, Payload: map[string]string{"folderPath": eff.Path}})
		case filetree.EffectDelete:
			m.hub.Broadcast(code, hub.Message{Event: hub.EventItemDeleted, Payload: map[string]string{"itemPath": eff.Path, "type": typeLabel(eff.Kind)}})
		case filetree.EffectRename:
			m.hub.Broadcast(code, hub.Message{Event: hub.EventItemRenamed, Payload: map[string]string{"oldPath": eff.OldPath, "newPath": eff.Path, "type": typeLabel(eff.Kind)}})
		case filetree.EffectSetContent:
			m.hub.Broadcast(code, hub.Message{Event: hub.EventFileSynced, Payload: map[string]string{"fileName": eff.Path, "content": eff.Content}})
		}
	}
}

// apply runs op inside the room lock, reassigns active files, applies
// disk side-effects, and returns the effects and the set of users whose
// active file changed. Broadcasting is left to the caller, since the
// wire event for the same Effect differs between rename and move.
func (m *Manager) apply(code string, op func(*filetree.Tree) ([]filetree.Effect, error)) ([]filetree.Effect, map[string]string, error) {
	r, ok := m.get(code)
	if !ok {
		return nil, nil, filetree.ErrNotFound
	}

	r.mu.Lock()
	effects, err := op(r.tree)
	var changed map[string]string
	if err == nil {
		changed = r.reassignActive(effects)
	}
	r.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	r.applyToDisk("editor", effects)
	return effects, changed, nil
}

// CreateFile performs the create-file mutation.
func (m *Manager) CreateFile(code, path, content string) error {
	effects, changed, err := m.apply(code, func(t *filetree.Tree) ([]filetree.Effect, error) {
		return t.CreateFile(path, content)
	})
	if err != nil {
		return err
	}
	m.broadcastEffects(code, effects)
	m.broadcastFilesUpdate(code)
	m.notifyActiveChanges(code, changed)
	return nil
}

// CreateFolder performs the create-folder mutation.
func (m *Manager) CreateFolder(code, path string) error {
	effects, changed, err := m.apply(code, func(t *filetree.Tree) ([]filetree.Effect, error) {
		return t.CreateFolder(path)
	})
	if err != nil {
		return err
	}
	m.broadcastEffects(code, effects)
	m.broadcastFilesUpdate(code)
	m.notifyActiveChanges(code, changed)
	return nil
}

// DeleteItem performs the delete-item mutation.
func (m *Manager) DeleteItem(code, path string) error {
	effects, changed, err := m.apply(code, func(t *filetree.Tree) ([]filetree.Effect, error) {
		return t.DeleteItem(path)
	})
	if err != nil {
		return err
	}
	m.broadcastEffects(code, effects)
	m.broadcastFilesUpdate(code)
	m.notifyActiveChanges(code, changed)
	return nil
}

// RenameItem performs the rename-item mutation.
func (m *Manager) RenameItem(code, oldPath, newPath string) error {
	effects, changed, err := m.apply(code, func(t *filetree.Tree) ([]filetree.Effect, error) {
		return t.RenameItem(oldPath, newPath)
	})
	if err != nil {
		return err
	}
	m.broadcastEffects(code, effects)
	m.broadcastFilesUpdate(code)
	m.notifyActiveChanges(code, changed)
	return nil
}

// MoveItem performs the move-item mutation. It reuses Tree.RenameItem's
// re-keying but broadcasts item-moved (with itemType) instead of
// item-renamed, per the distinct wire events of §6.
func (m *Manager) MoveItem(code, sourcePath, targetPath string, kind filetree.Kind) error {
	effects, changed, err := m.apply(code, func(t *filetree.Tree) ([]filetree.Effect, error) {
		return t.MoveItem(sourcePath, targetPath, kind)
	})
	if err != nil {
		return err
	}
	m.hub.Broadcast(code, hub.Message{Event: hub.EventItemMoved, Payload: map[string]string{
		"sourcePath": sourcePath, "targetPath": targetPath, "itemType": typeLabel(kind),
	}})
	m.broadcastFilesUpdate(code)
	m.notifyActiveChanges(code, changed)
	return nil
}

// SetFileContent performs the code-change mutation.
func (m *Manager) SetFileContent(code, path, content string) error {
	effects, _, err := m.apply(code, func(t *filetree.Tree) ([]filetree.Effect, error) {
		return t.SetFileContent(path, content)
	})
	if err != nil {
		return err
	}
	m.broadcastEffects(code, effects)
	return nil
}

// ToggleFolder flips a folder's expanded view hint and broadcasts the
// change; it produces no side-effect descriptors of its own.
func (m *Manager) ToggleFolder(code, path string) error {
	r, ok := m.get(code)
	if !ok {
		return filetree.ErrNotFound
	}

	r.mu.Lock()
	err := r.tree.ToggleFolder(path)
	var expanded bool
	if err == nil {
		node, _ := r.tree.Get(path)
		expanded = node.Expanded
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	m.hub.Broadcast(code, hub.Message{Event: hub.EventFolderToggled, Payload: map[string]any{"folderPath": path, "isExpanded": expanded}})
	return nil
}
