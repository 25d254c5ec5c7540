// Package filetree implements the in-memory file tree for a single room: a
// flat map of path to node, with the business-rule layer (create, rename,
// move, delete, toggle) built on top of plain CRUD, mirroring the teacher's
// metadata store layering in pkg/metadata/store/memory.
package filetree

import (
	"errors"
	"strings"
)

// Kind distinguishes a file from a folder node.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

// Node is a single entry in the tree, keyed by its path.
type Node struct {
	Path      string
	Kind      Kind
	Content   string // file only
	Extension string // file only, lower-cased
	Expanded  bool   // folder only: view hint
}

var (
	ErrAlreadyExists       = errors.New("filetree: path already exists")
	ErrNotFound            = errors.New("filetree: path not found")
	ErrNotAFile            = errors.New("filetree: path is not a file")
	ErrCannotDeleteLastFile = errors.New("filetree: cannot delete the last remaining file")
	ErrIntoSelf            = errors.New("filetree: cannot move a folder into itself")
	ErrFileTooLarge        = errors.New("filetree: file content exceeds the room's max file size")
)

// Tree is a flat path->node map for one room. It is not safe for
// concurrent use on its own: callers hold the room's single mutex (see
// the room runtime package) for the duration of each mutating call.
type Tree struct {
	nodes map[string]*Node
	// order preserves insertion order so "first file" fallback (for
	// active-file reassignment) is well defined.
	order []string

	// maxFileSize bounds a single file's content in bytes. Zero means
	// unlimited, the default for New so existing callers and tests that
	// don't care about the limit are unaffected.
	maxFileSize int64
}

// New creates an empty tree with no file size limit.
func New() *Tree {
	return &Tree{nodes: make(map[string]*Node)}
}

// NewWithMaxFileSize creates an empty tree that rejects CreateFile and
// SetFileContent calls whose content exceeds maxFileSize bytes.
func NewWithMaxFileSize(maxFileSize int64) *Tree {
	return &Tree{nodes: make(map[string]*Node), maxFileSize: maxFileSize}
}

// Get returns the node at path, if any.
func (t *Tree) Get(path string) (*Node, bool) {
	n, ok := t.nodes[path]
	return n, ok
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// FileCount returns the number of file nodes in the tree.
func (t *Tree) FileCount() int {
	count := 0
	for _, n := range t.nodes {
		if n.Kind == KindFile {
			count++
		}
	}
	return count
}

// FirstFile returns the path of the first file in insertion order, used
// as the fallback active file when the current one is deleted.
func (t *Tree) FirstFile() (string, bool) {
	for _, path := range t.order {
		if n, ok := t.nodes[path]; ok && n.Kind == KindFile {
			return path, true
		}
	}
	return "", false
}

// Snapshot returns a shallow copy of every node, keyed by path, suitable
// for fan-out to clients.
func (t *Tree) Snapshot() map[string]Node {
	out := make(map[string]Node, len(t.nodes))
	for path, n := range t.nodes {
		out[path] = *n
	}
	return out
}

func (t *Tree) insert(n *Node) {
	if _, exists := t.nodes[n.Path]; !exists {
		t.order = append(t.order, n.Path)
	}
	t.nodes[n.Path] = n
}

func (t *Tree) remove(path string) {
	delete(t.nodes, path)
	for i, p := range t.order {
		if p == path {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func extensionOf(path string) string {
	leaf := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		leaf = path[idx+1:]
	}
	idx := strings.LastIndexByte(leaf, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(leaf[idx+1:])
}

func hasDescendantPrefix(path, ancestor string) bool {
	return strings.HasPrefix(path, ancestor+"/")
}
