// Package rundispatch maps a file extension to the shell command line used
// to run it, the same fixed-table adapter-capability shape the teacher
// uses for its extension/codec lookups.
package rundispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownExtension is returned when no command template exists for an
// extension.
var ErrUnknownExtension = errors.New("rundispatch: unknown extension")

// commandTemplates maps a lower-cased extension (without the leading dot)
// to a template using %path% and %basename% placeholders.
var commandTemplates = map[string]string{
	"js":   "node %path%",
	"py":   "python %path%",
	"java": "javac %path% && java %basename%",
	"cpp":  "g++ %path% -o %basename% && ./%basename%",
	"c":    "gcc %path% -o %basename% && ./%basename%",
	"go":   "go run %path%",
	"rs":   "rustc %path% && ./%basename%",
	"php":  "php %path%",
	"rb":   "ruby %path%",
	"sh":   "bash %path%",
	"ps1":  "powershell %path%",
}

// CommandFor returns the shell command line to run path, whose leaf name
// determines basename (the leaf with its extension stripped).
func CommandFor(path string) (string, error) {
	ext := extensionOf(path)
	tmpl, ok := commandTemplates[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}

	basename := baseNameOf(path)
	cmd := strings.ReplaceAll(tmpl, "%path%", path)
	cmd = strings.ReplaceAll(cmd, "%basename%", basename)
	return cmd, nil
}

func extensionOf(path string) string {
	leaf := leafOf(path)
	idx := strings.LastIndexByte(leaf, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(leaf[idx+1:])
}

func baseNameOf(path string) string {
	leaf := leafOf(path)
	if idx := strings.LastIndexByte(leaf, '.'); idx >= 0 {
		return leaf[:idx]
	}
	return leaf
}

func leafOf(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
