package gitlib

import (
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// Open opens a git repository at the given path.
func Open(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupBlob returns the blob with the given hash.
func (r *Repository) LookupBlob(hash Hash) (*Blob, error) {
	blob, err := r.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup blob %s: %w", hash, err)
	}

	return &Blob{blob: blob}, nil
}

// LookupTree returns the tree with the given hash.
func (r *Repository) LookupTree(hash Hash) (*Tree, error) {
	tree, err := r.repo.LookupTree(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup tree %s: %w", hash, err)
	}

	return &Tree{tree: tree, repo: r}, nil
}

// LogOptions configures commit log iteration.
type LogOptions struct {
	// Since ends the walk at the first commit whose commit time predates it.
	Since *time.Time
	// FirstParent follows only the first parent of merges (git log --first-parent).
	FirstParent bool
}

// Log returns a commit iterator starting from HEAD, oldest commits last.
// Topological order guarantees a commit is never visited before its descendants.
func (r *Repository) Log(opts *LogOptions) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	headRef, headErr := r.repo.Head()
	if headErr != nil {
		walk.Free()

		return nil, fmt.Errorf("get HEAD: %w", headErr)
	}
	defer headRef.Free()

	pushErr := walk.Push(headRef.Target())
	if pushErr != nil {
		walk.Free()

		return nil, fmt.Errorf("push HEAD to revwalk: %w", pushErr)
	}

	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	iter := &CommitIter{walk: walk, repo: r}

	if opts != nil {
		iter.since = opts.Since

		if opts.FirstParent {
			walk.SimplifyFirstParent()
		}
	}

	return iter, nil
}

// DiffTreeToTree computes the diff between two trees. Either tree may be nil.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree) (*git2go.Diff, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	var oldT, newT *git2go.Tree

	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	return diff, nil
}
