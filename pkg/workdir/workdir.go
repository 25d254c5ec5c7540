// Package workdir manages the on-disk working directory materialized for
// each room, mirroring the filesystem-backed store pattern in the
// teacher's pkg/payload/store/fs package (base-path confinement, atomic
// writes, prefix-scoped recursive delete).
package workdir

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrPathEscapesRoot is returned when a requested path, once resolved,
// falls outside the working directory's root.
var ErrPathEscapesRoot = errors.New("workdir: path escapes working directory root")

// Dir is the on-disk working directory for a single room.
type Dir struct {
	root string
}

// New allocates a working directory under base (normally os.TempDir())
// named compiler_<roomCode>. roomCode is already guaranteed upper-case
// alphanumeric by the room code format, so no further sanitization is
// required before joining it to base.
func New(base, roomCode string) (*Dir, error) {
	root := filepath.Join(base, "compiler_"+roomCode)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the absolute path of the working directory.
func (d *Dir) Root() string {
	return d.root
}

// resolve joins path to the working directory root and rejects any
// result that escapes it, defending against a crafted path such as
// "../../etc/passwd" arriving through create-file/rename-item.
func (d *Dir) resolve(path string) (string, error) {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(d.root, full)
	if err != nil {
		return "", ErrPathEscapesRoot
	}
	if rel == ".." || (len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)) {
		return "", ErrPathEscapesRoot
	}
	return full, nil
}

// WriteFile ensures path's parent directories exist and writes content
// only if it differs byte-for-byte from the current on-disk content.
// This diff is essential: a no-op write must not trigger a watcher event
// that would echo back as a spurious change.
func (d *Dir) WriteFile(path string, content []byte) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}

	if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// CreateDir recursively makes path. Idempotent.
func (d *Dir) CreateDir(path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0o755)
}

// DeleteItem removes path: recursively for directories, a plain unlink
// for files. Not-found is not an error.
func (d *Dir) DeleteItem(path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Rename moves source to target, ensuring target's parent exists first.
func (d *Dir) Rename(source, target string) error {
	fullSource, err := d.resolve(source)
	if err != nil {
		return err
	}
	fullTarget, err := d.resolve(target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullTarget), 0o755); err != nil {
		return fmt.Errorf("create target parent: %w", err)
	}
	return os.Rename(fullSource, fullTarget)
}

// Cleanup recursively removes the entire working directory.
func (d *Dir) Cleanup() error {
	return os.RemoveAll(d.root)
}
