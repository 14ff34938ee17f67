package gitlib_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revisar/pkg/gitlib"
)

// testRepo wraps a throwaway repository for integration testing.
type testRepo struct {
	t       *testing.T
	path    string
	native  *git2go.Repository
	cleanup func()
}

// newTestRepo creates a new test repository.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	return &testRepo{
		t:      t,
		path:   dir,
		native: repo,
		cleanup: func() {
			repo.Free()
		},
	}
}

// createFile creates a file in the working directory.
func (tr *testRepo) createFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)
	dir := filepath.Dir(path)

	if dir != tr.path {
		err := os.MkdirAll(dir, 0o755)
		require.NoError(tr.t, err)
	}

	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(tr.t, err)
}

// deleteFile removes a file from the working directory.
func (tr *testRepo) deleteFile(name string) {
	tr.t.Helper()

	err := os.Remove(filepath.Join(tr.path, name))
	require.NoError(tr.t, err)
}

// commit stages all files and creates a commit.
func (tr *testRepo) commit(message string) gitlib.Hash {
	return tr.commitAt(message, time.Now())
}

// commitAt stages all files and creates a commit with the given author and
// committer time.
func (tr *testRepo) commitAt(message string, when time.Time) gitlib.Hash {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	err = index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil)
	require.NoError(tr.t, err)

	err = index.Write()
	require.NoError(tr.t, err)

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  when,
	}

	var parents []*git2go.Commit

	head, err := tr.native.Head()
	if err == nil {
		headCommit, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return gitlib.HashFromOid(oid)
}

// Repository Tests.

func TestOpen(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("test.txt", "content")
	tr.commit("initial")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	assert.Equal(t, tr.path, repo.Path())
}

func TestOpenNotFound(t *testing.T) {
	repo, err := gitlib.Open("/nonexistent/path/to/repo")

	assert.Nil(t, repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open repository")
}

func TestRepositoryHead(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("test.txt", "hello")
	expectedHash := tr.commit("initial")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, expectedHash, head)
}

// Commit Tests.

func TestLookupCommit(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("file.go", "package main")
	commitHash := tr.commit("add file")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, commitHash, commit.Hash())
	assert.Contains(t, commit.Message(), "add file")
	assert.Equal(t, "Test User", commit.Author().Name)
	assert.Equal(t, "test@example.com", commit.Author().Email)
	assert.Equal(t, "Test User", commit.Committer().Name)
}

func TestLookupCommitNotFound(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("test.txt", "x")
	tr.commit("init")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	invalidHash := gitlib.NewHash("1234567890123456789012345678901234567890")
	commit, err := repo.LookupCommit(invalidHash)

	assert.Nil(t, commit)
	assert.Error(t, err)
}

func TestCommitParent(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("first.txt", "1")
	firstHash := tr.commit("first")

	tr.createFile("second.txt", "2")
	secondHash := tr.commit("second")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(secondHash)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, uint(1), commit.NumParents())
	assert.Equal(t, firstHash, commit.ParentHash(0))

	parent, err := commit.Parent(0)
	require.NoError(t, err)

	defer parent.Free()

	assert.Equal(t, firstHash, parent.Hash())
}

func TestCommitParentNotFound(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("only.txt", "x")
	commitHash := tr.commit("only commit")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	assert.Equal(t, uint(0), commit.NumParents())

	parent, err := commit.Parent(0)
	assert.Nil(t, parent)
	assert.ErrorIs(t, err, gitlib.ErrParentNotFound)
}

// Log Tests.

func TestLogNewestFirst(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	tr.createFile("a.txt", "a")
	first := tr.commitAt("first", base)

	tr.createFile("b.txt", "b")
	second := tr.commitAt("second", base.Add(10*time.Minute))

	tr.createFile("c.txt", "c")
	third := tr.commitAt("third", base.Add(20*time.Minute))

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	iter, err := repo.Log(nil)
	require.NoError(t, err)

	defer iter.Close()

	var hashes []gitlib.Hash

	for {
		commit, nextErr := iter.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		require.NoError(t, nextErr)

		hashes = append(hashes, commit.Hash())
		commit.Free()
	}

	assert.Equal(t, []gitlib.Hash{third, second, first}, hashes)

	// The iterator stays exhausted.
	commit, nextErr := iter.Next()
	assert.Nil(t, commit)
	assert.ErrorIs(t, nextErr, io.EOF)
}

func TestLogSinceCutoff(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	base := time.Now().Add(-2 * time.Hour).Truncate(time.Second)

	tr.createFile("old.txt", "old")
	tr.commitAt("old commit", base)

	tr.createFile("mid.txt", "mid")
	mid := tr.commitAt("mid commit", base.Add(time.Hour))

	tr.createFile("new.txt", "new")
	newest := tr.commitAt("new commit", base.Add(90*time.Minute))

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	// The cutoff lands between the first and second commit. Cutoff times
	// compare against commit time, so the first commit ends the walk.
	since := base.Add(30 * time.Minute)

	iter, err := repo.Log(&gitlib.LogOptions{Since: &since})
	require.NoError(t, err)

	defer iter.Close()

	var hashes []gitlib.Hash

	forEachErr := iter.ForEach(func(commit *gitlib.Commit) error {
		hashes = append(hashes, commit.Hash())

		return nil
	})
	require.NoError(t, forEachErr)

	assert.Equal(t, []gitlib.Hash{newest, mid}, hashes)
}

// Change Tests.

func TestTreeDiffActions(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("kept.txt", "one")
	tr.createFile("removed.txt", "two")
	tr.commit("initial")

	tr.createFile("kept.txt", "one changed")
	tr.deleteFile("removed.txt")
	tr.createFile("added.txt", "three")
	secondHash := tr.commit("rework")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(secondHash)
	require.NoError(t, err)

	defer commit.Free()

	parent, err := commit.Parent(0)
	require.NoError(t, err)

	defer parent.Free()

	parentTree, err := parent.Tree()
	require.NoError(t, err)

	defer parentTree.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	changes, err := gitlib.TreeDiff(repo, parentTree, tree)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	actions := make(map[string]gitlib.ChangeAction, len(changes))

	for _, change := range changes {
		switch change.Action {
		case gitlib.Delete:
			actions[change.From.Name] = change.Action
		case gitlib.Insert, gitlib.Modify:
			actions[change.To.Name] = change.Action
		}
	}

	assert.Equal(t, gitlib.Insert, actions["added.txt"])
	assert.Equal(t, gitlib.Delete, actions["removed.txt"])
	assert.Equal(t, gitlib.Modify, actions["kept.txt"])
}

func TestTreeDiffEqualTrees(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("same.txt", "same")
	commitHash := tr.commit("initial")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	changes, err := gitlib.TreeDiff(repo, tree, tree)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestInitialTreeChanges(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	tr.createFile("main.go", "package main")
	tr.createFile("sub/util.go", "package sub")
	commitHash := tr.commit("initial")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	changes, err := gitlib.InitialTreeChanges(repo, tree)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	names := make([]string, 0, len(changes))

	for _, change := range changes {
		assert.Equal(t, gitlib.Insert, change.Action)
		assert.False(t, change.To.Hash.IsZero())

		names = append(names, change.To.Name)
	}

	assert.ElementsMatch(t, []string{"main.go", "sub/util.go"}, names)
}

// Blob Tests.

func TestLookupBlob(t *testing.T) {
	tr := newTestRepo(t)
	defer tr.cleanup()

	content := "package main\n\nfunc main() {}\n"

	tr.createFile("main.go", content)
	commitHash := tr.commit("add main")

	repo, err := gitlib.Open(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	commit, err := repo.LookupCommit(commitHash)
	require.NoError(t, err)

	defer commit.Free()

	tree, err := commit.Tree()
	require.NoError(t, err)

	defer tree.Free()

	entry, err := tree.EntryByPath("main.go")
	require.NoError(t, err)

	blob, err := repo.LookupBlob(entry.Hash())
	require.NoError(t, err)

	defer blob.Free()

	assert.Equal(t, []byte(content), blob.Contents())
	assert.Equal(t, int64(len(content)), blob.Size())
	assert.False(t, blob.IsBinary())
}
