package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFile_DefaultsContentFromExtension(t *testing.T) {
	tr := New()
	_, err := tr.CreateFile("index.js", "")
	require.NoError(t, err)

	node, ok := tr.Get("index.js")
	require.True(t, ok)
	assert.Equal(t, "js", node.Extension)
	assert.Equal(t, "// New file\n", node.Content)
}

func TestCreateFile_UnknownExtensionFallsBackToDefault(t *testing.T) {
	tr := New()
	_, err := tr.CreateFile("main.rs", "")
	require.NoError(t, err)

	node, _ := tr.Get("main.rs")
	assert.Equal(t, defaultTemplate, node.Content)
}

func TestCreateFile_AlreadyExists(t *testing.T) {
	tr := New()
	_, err := tr.CreateFile("a.txt", "")
	require.NoError(t, err)

	_, err = tr.CreateFile("a.txt", "")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDeleteItem_CannotDeleteLastFile(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFile("only.txt", "x")

	_, err := tr.DeleteItem("only.txt")
	assert.ErrorIs(t, err, ErrCannotDeleteLastFile)
}

func TestDeleteItem_FolderRemovesDescendantsRecursively(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFile("keep.txt", "x")
	_, _ = tr.CreateFolder("src")
	_, _ = tr.CreateFile("src/a.js", "")
	_, _ = tr.CreateFolder("src/nested")
	_, _ = tr.CreateFile("src/nested/b.js", "")

	effects, err := tr.DeleteItem("src")
	require.NoError(t, err)
	assert.Len(t, effects, 4) // a.js, nested, nested/b.js, src itself

	_, ok := tr.Get("src/a.js")
	assert.False(t, ok)
	_, ok = tr.Get("src/nested/b.js")
	assert.False(t, ok)
	assert.Equal(t, 1, tr.Len())
}

func TestDeleteItem_FolderCannotRemoveLastFiles(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFolder("src")
	_, _ = tr.CreateFile("src/only.txt", "x")

	_, err := tr.DeleteItem("src")
	assert.ErrorIs(t, err, ErrCannotDeleteLastFile)
}

func TestRenameItem_FolderRekeysDescendants(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFile("keep.txt", "x")
	_, _ = tr.CreateFolder("src")
	_, _ = tr.CreateFile("src/a.js", "")

	effects, err := tr.RenameItem("src", "lib")
	require.NoError(t, err)
	assert.Len(t, effects, 2)

	_, ok := tr.Get("src/a.js")
	assert.False(t, ok)
	node, ok := tr.Get("lib/a.js")
	require.True(t, ok)
	assert.Equal(t, "js", node.Extension)
}

func TestRenameItem_FileUpdatesExtension(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFile("a.js", "")

	_, err := tr.RenameItem("a.js", "a.ts")
	require.NoError(t, err)

	node, ok := tr.Get("a.ts")
	require.True(t, ok)
	assert.Equal(t, "ts", node.Extension)
}

func TestMoveItem_IntoSelfRejected(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFolder("src")
	_, _ = tr.CreateFile("src/a.js", "")

	_, err := tr.MoveItem("src", "src/nested", KindFolder)
	assert.ErrorIs(t, err, ErrIntoSelf)
}

func TestToggleFolder(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFolder("src")

	require.NoError(t, tr.ToggleFolder("src"))
	node, _ := tr.Get("src")
	assert.True(t, node.Expanded)

	require.NoError(t, tr.ToggleFolder("src"))
	node, _ = tr.Get("src")
	assert.False(t, node.Expanded)
}

func TestSetFileContent_NotAFile(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFolder("src")

	_, err := tr.SetFileContent("src", "x")
	assert.ErrorIs(t, err, ErrNotAFile)
}

func TestFirstFile_InsertionOrder(t *testing.T) {
	tr := New()
	_, _ = tr.CreateFile("b.txt", "")
	_, _ = tr.CreateFile("a.txt", "")

	first, ok := tr.FirstFile()
	require.True(t, ok)
	assert.Equal(t, "b.txt", first)
}
