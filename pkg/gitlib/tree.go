package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Tree wraps a libgit2 tree.
type Tree struct {
	tree *git2go.Tree
	repo *Repository
}

// Hash returns the tree hash.
func (t *Tree) Hash() Hash {
	return HashFromOid(t.tree.Id())
}

// EntryCount returns the number of entries in the tree.
func (t *Tree) EntryCount() uint64 {
	return t.tree.EntryCount()
}

// EntryByIndex returns the tree entry at the given index, or nil.
func (t *Tree) EntryByIndex(i uint64) *TreeEntry {
	entry := t.tree.EntryByIndex(i)
	if entry == nil {
		return nil
	}

	return &TreeEntry{entry: entry}
}

// EntryByPath returns the tree entry at the given path.
func (t *Tree) EntryByPath(path string) (*TreeEntry, error) {
	entry, err := t.tree.EntryByPath(path)
	if err != nil {
		return nil, fmt.Errorf("entry by path %s: %w", path, err)
	}

	return &TreeEntry{entry: entry}, nil
}

// Free releases the tree resources.
func (t *Tree) Free() {
	if t.tree != nil {
		t.tree.Free()
		t.tree = nil
	}
}

// TreeEntry wraps a libgit2 tree entry.
type TreeEntry struct {
	entry *git2go.TreeEntry
}

// Name returns the entry's name.
func (e *TreeEntry) Name() string {
	return e.entry.Name
}

// Hash returns the entry's object hash.
func (e *TreeEntry) Hash() Hash {
	return HashFromOid(e.entry.Id)
}

// Type returns the entry's object type.
func (e *TreeEntry) Type() git2go.ObjectType {
	return e.entry.Type
}

// IsBlob returns true if the entry is a blob (regular file).
func (e *TreeEntry) IsBlob() bool {
	return e.entry.Type == git2go.ObjectBlob
}
