package gitlib

import (
	"errors"
	"fmt"
	"io"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrParentNotFound is returned when the requested parent commit is not found.
var ErrParentNotFound = errors.New("parent commit not found")

// Signature is a git author or committer signature.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the commit author signature.
func (c *Commit) Author() Signature {
	sig := c.commit.Author()

	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

// Committer returns the commit committer signature.
func (c *Commit) Committer() Signature {
	sig := c.commit.Committer()

	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

// Message returns the full commit message.
func (c *Commit) Message() string {
	return c.commit.Message()
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() uint {
	return c.commit.ParentCount()
}

// ParentHash returns the hash of the nth parent.
func (c *Commit) ParentHash(n uint) Hash {
	return HashFromOid(c.commit.ParentId(n))
}

// Parent returns the nth parent commit.
func (c *Commit) Parent(n uint) (*Commit, error) {
	parent := c.commit.Parent(n)
	if parent == nil {
		return nil, ErrParentNotFound
	}

	return &Commit{commit: parent, repo: c.repo}, nil
}

// Tree returns the tree associated with this commit.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}

// CommitIter iterates over commits from a revision walk.
type CommitIter struct {
	walk  *git2go.RevWalk
	repo  *Repository
	since *time.Time
}

// Next returns the next commit, or io.EOF when the walk is exhausted.
// The caller owns the returned commit and must Free it.
func (ci *CommitIter) Next() (*Commit, error) {
	oid := new(git2go.Oid)

	walkErr := ci.walk.Next(oid)
	if walkErr != nil {
		if git2go.IsErrorCode(walkErr, git2go.ErrorCodeIterOver) {
			return nil, io.EOF
		}

		return nil, fmt.Errorf("advance revwalk: %w", walkErr)
	}

	commit, lookupErr := ci.repo.repo.LookupCommit(oid)
	if lookupErr != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", oid.String(), lookupErr)
	}

	// The walk sorts by commit time, so the cutoff compares commit time too;
	// author dates are not monotonic under rebases. Once a commit predates
	// the cutoff, everything after it does too.
	if ci.since != nil && commit.Committer().When.Before(*ci.since) {
		commit.Free()

		return nil, io.EOF
	}

	return &Commit{commit: commit, repo: ci.repo}, nil
}

// ForEach calls the callback for each commit, freeing each one after use.
func (ci *CommitIter) ForEach(cb func(*Commit) error) error {
	for {
		commit, err := ci.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		cbErr := cb(commit)
		commit.Free()

		if cbErr != nil {
			return cbErr
		}
	}
}

// Close releases the walk resources.
func (ci *CommitIter) Close() {
	if ci.walk != nil {
		ci.walk.Free()
		ci.walk = nil
	}
}
