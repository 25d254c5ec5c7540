package filetree

import "strings"

// CreateFile inserts a new file node. content, if empty, is filled from
// the extension's default template.
func (t *Tree) CreateFile(path, content string) ([]Effect, error) {
	if _, exists := t.nodes[path]; exists {
		return nil, ErrAlreadyExists
	}

	ext := extensionOf(path)
	if content == "" {
		content = TemplateFor(ext)
	}
	if t.maxFileSize > 0 && int64(len(content)) > t.maxFileSize {
		return nil, ErrFileTooLarge
	}

	t.insert(&Node{
		Path:      path,
		Kind:      KindFile,
		Content:   content,
		Extension: ext,
	})

	return []Effect{{Op: EffectCreateFile, Path: path, Kind: KindFile, Content: content}}, nil
}

// CreateFolder inserts a new folder node.
func (t *Tree) CreateFolder(path string) ([]Effect, error) {
	if _, exists := t.nodes[path]; exists {
		return nil, ErrAlreadyExists
	}

	t.insert(&Node{Path: path, Kind: KindFolder})

	return []Effect{{Op: EffectCreateFolder, Path: path, Kind: KindFolder}}, nil
}

// DeleteItem removes path. Folders remove every descendant as well. The
// last remaining file in the tree cannot be deleted.
func (t *Tree) DeleteItem(path string) ([]Effect, error) {
	node, ok := t.nodes[path]
	if !ok {
		return nil, ErrNotFound
	}

	if node.Kind == KindFile && t.FileCount() <= 1 {
		return nil, ErrCannotDeleteLastFile
	}

	var effects []Effect

	if node.Kind == KindFolder {
		descendants := t.descendantsOf(path)
		filesRemoved := 0
		for _, d := range descendants {
			if t.nodes[d].Kind == KindFile {
				filesRemoved++
			}
		}
		if filesRemoved >= t.FileCount() {
			return nil, ErrCannotDeleteLastFile
		}

		for _, descendant := range descendants {
			kind := t.nodes[descendant].Kind
			t.remove(descendant)
			effects = append(effects, Effect{Op: EffectDelete, Path: descendant, Kind: kind})
		}
	}

	t.remove(path)
	effects = append(effects, Effect{Op: EffectDelete, Path: path, Kind: node.Kind})

	return effects, nil
}

// descendantsOf returns every path with prefix path+"/", in no particular
// order.
func (t *Tree) descendantsOf(path string) []string {
	prefix := path + "/"
	var out []string
	for p := range t.nodes {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

// RenameItem renames oldPath to newPath. For a folder, every descendant is
// re-keyed in one step. For a file, the extension is recomputed from
// newPath's leaf.
func (t *Tree) RenameItem(oldPath, newPath string) ([]Effect, error) {
	node, ok := t.nodes[oldPath]
	if !ok {
		return nil, ErrNotFound
	}
	if _, exists := t.nodes[newPath]; exists {
		return nil, ErrAlreadyExists
	}

	var effects []Effect

	if node.Kind == KindFolder {
		for _, oldDescendant := range t.descendantsOf(oldPath) {
			suffix := strings.TrimPrefix(oldDescendant, oldPath)
			newDescendant := newPath + suffix

			descNode := t.nodes[oldDescendant]
			t.remove(oldDescendant)
			descNode.Path = newDescendant
			if descNode.Kind == KindFile {
				descNode.Extension = extensionOf(newDescendant)
			}
			t.insert(descNode)

			effects = append(effects, Effect{Op: EffectRename, OldPath: oldDescendant, Path: newDescendant, Kind: descNode.Kind})
		}
	}

	t.remove(oldPath)
	node.Path = newPath
	if node.Kind == KindFile {
		node.Extension = extensionOf(newPath)
	}
	t.insert(node)

	effects = append(effects, Effect{Op: EffectRename, OldPath: oldPath, Path: newPath, Kind: node.Kind})

	return effects, nil
}

// MoveItem relocates sourcePath under targetPath, reusing rename semantics
// (a move is a rename to a new parent-qualified path). kind disambiguates
// the IntoSelf check, which only applies to folders.
func (t *Tree) MoveItem(sourcePath, targetPath string, kind Kind) ([]Effect, error) {
	if kind == KindFolder && (targetPath == sourcePath || strings.HasPrefix(targetPath, sourcePath+"/")) {
		return nil, ErrIntoSelf
	}
	return t.RenameItem(sourcePath, targetPath)
}

// ToggleFolder flips a folder's expanded view hint.
func (t *Tree) ToggleFolder(path string) error {
	node, ok := t.nodes[path]
	if !ok {
		return ErrNotFound
	}
	if node.Kind != KindFolder {
		return ErrNotAFile
	}
	node.Expanded = !node.Expanded
	return nil
}

// SetFileContent replaces a file's content, rejecting content past the
// tree's configured max file size.
func (t *Tree) SetFileContent(path, content string) ([]Effect, error) {
	node, ok := t.nodes[path]
	if !ok {
		return nil, ErrNotFound
	}
	if node.Kind != KindFile {
		return nil, ErrNotAFile
	}
	if t.maxFileSize > 0 && int64(len(content)) > t.maxFileSize {
		return nil, ErrFileTooLarge
	}
	node.Content = content

	return []Effect{{Op: EffectSetContent, Path: path, Kind: KindFile, Content: content}}, nil
}
