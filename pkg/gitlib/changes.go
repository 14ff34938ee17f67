package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ChangeAction is the kind of file change in a tree diff.
type ChangeAction int

const (
	// Insert indicates a new file was added.
	Insert ChangeAction = iota
	// Delete indicates a file was removed.
	Delete
	// Modify indicates a file was modified.
	Modify
)

func (a ChangeAction) String() string {
	switch a {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Modify:
		return "modify"
	default:
		return "unknown"
	}
}

// Change is a single file change between two trees.
type Change struct {
	Action ChangeAction
	From   ChangeEntry
	To     ChangeEntry
}

// ChangeEntry is one side of a change (old or new file).
type ChangeEntry struct {
	Name string
	Hash Hash
	Size int64
}

// Changes is a collection of file changes.
type Changes []*Change

// TreeDiff computes the file changes between two trees. Equal tree hashes
// short-circuit to an empty change list.
func TreeDiff(repo *Repository, oldTree, newTree *Tree) (Changes, error) {
	if oldTree != nil && newTree != nil && oldTree.Hash() == newTree.Hash() {
		return Changes{}, nil
	}

	diff, err := repo.DiffTreeToTree(oldTree, newTree)
	if err != nil {
		return nil, err
	}

	defer func() { _ = diff.Free() }()

	numDeltas, numErr := diff.NumDeltas()
	if numErr != nil {
		return nil, fmt.Errorf("get num deltas: %w", numErr)
	}

	changes := make(Changes, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			continue
		}

		change := deltaToChange(delta)
		if change != nil {
			changes = append(changes, change)
		}
	}

	return changes, nil
}

// deltaToChange converts a libgit2 delta to a Change, or nil for delta types
// that carry no content change.
func deltaToChange(delta git2go.DiffDelta) *Change {
	oldEntry := ChangeEntry{
		Name: delta.OldFile.Path,
		Hash: HashFromOid(delta.OldFile.Oid),
		Size: int64(delta.OldFile.Size),
	}
	newEntry := ChangeEntry{
		Name: delta.NewFile.Path,
		Hash: HashFromOid(delta.NewFile.Oid),
		Size: int64(delta.NewFile.Size),
	}

	switch delta.Status {
	case git2go.DeltaAdded:
		return &Change{Action: Insert, To: newEntry}
	case git2go.DeltaDeleted:
		return &Change{Action: Delete, From: oldEntry}
	case git2go.DeltaModified, git2go.DeltaRenamed, git2go.DeltaCopied:
		return &Change{Action: Modify, From: oldEntry, To: newEntry}
	case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
		git2go.DeltaTypeChange, git2go.DeltaUnreadable, git2go.DeltaConflicted:
		return nil
	default:
		return nil
	}
}

// InitialTreeChanges builds the change list for a parentless commit: every
// blob in the tree is an insertion.
func InitialTreeChanges(repo *Repository, tree *Tree) (Changes, error) {
	if tree == nil {
		return nil, nil
	}

	changes := make(Changes, 0)

	err := walkTree(repo, tree, "", func(path string, entry *TreeEntry) error {
		if !entry.IsBlob() {
			return nil
		}

		changes = append(changes, &Change{
			Action: Insert,
			To:     ChangeEntry{Name: path, Hash: entry.Hash()},
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return changes, nil
}

// walkTree recursively walks a tree, calling cb for every entry.
func walkTree(repo *Repository, tree *Tree, prefix string, cb func(path string, entry *TreeEntry) error) error {
	count := tree.EntryCount()

	for i := range count {
		entry := tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		path := entry.Name()
		if prefix != "" {
			path = prefix + "/" + path
		}

		if entry.IsBlob() {
			cbErr := cb(path, entry)
			if cbErr != nil {
				return cbErr
			}

			continue
		}

		if entry.Type() != git2go.ObjectTree {
			continue
		}

		subtree, lookupErr := repo.LookupTree(entry.Hash())
		if lookupErr != nil {
			continue // Skip entries we can't look up.
		}

		walkErr := walkTree(repo, subtree, path, cb)
		subtree.Free()

		if walkErr != nil {
			return walkErr
		}
	}

	return nil
}
