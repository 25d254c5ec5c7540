package filetree

// EffectOp names the filesystem/active-file side effect a mutation must
// propagate outside the tree.
type EffectOp int

const (
	EffectCreateFile EffectOp = iota
	EffectCreateFolder
	EffectDelete
	EffectRename
	EffectSetContent
)

// Effect describes one side effect a Tree mutation must be applied to the
// working directory (C3) and the active-file tracker. Folder operations
// produce one Effect per affected descendant, so a caller can replay the
// whole set without re-deriving it from the tree.
type Effect struct {
	Op      EffectOp
	Path    string // the affected path (post-mutation, for Rename: new path)
	OldPath string // only set for EffectRename
	Kind    Kind
	Content string // only meaningful for EffectCreateFile / EffectSetContent
}
