package mining

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revisar/internal/config"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

func testProviders(t *testing.T) observability.Providers {
	t.Helper()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	return providers
}

func TestNewMiner(t *testing.T) {
	cfg := config.MiningConfig{
		Workers:          2,
		MaxFileSize:      config.DefaultMaxFileSize,
		MaxFragmentNodes: config.DefaultMaxFragmentNodes,
	}

	miner, err := NewMiner(cfg, syntax.NewParser(), testProviders(t))
	require.NoError(t, err)
	assert.NotNil(t, miner)
}

func TestMiner_AllowedLanguage(t *testing.T) {
	all := &Miner{cfg: config.MiningConfig{}}
	assert.True(t, all.allowedLanguage("java"))
	assert.True(t, all.allowedLanguage("go"))

	restricted := &Miner{cfg: config.MiningConfig{Languages: []string{"Java", "python"}}}
	assert.True(t, restricted.allowedLanguage("java"))
	assert.True(t, restricted.allowedLanguage("python"))
	assert.False(t, restricted.allowedLanguage("go"))
}

// commitAll stages everything in the repository's work tree and commits it.
func commitAll(t *testing.T, repo *git2go.Repository, message string, when time.Time) {
	t.Helper()

	index, err := repo.Index()
	require.NoError(t, err)

	defer index.Free()

	require.NoError(t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(t, err)

	tree, err := repo.LookupTree(treeID)
	require.NoError(t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Test User", Email: "test@example.com", When: when}

	var parents []*git2go.Commit

	head, headErr := repo.Head()
	if headErr == nil {
		parent, lookupErr := repo.LookupCommit(head.Target())
		require.NoError(t, lookupErr)

		parents = append(parents, parent)

		defer parent.Free()
		head.Free()
	}

	_, err = repo.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(t, err)
}

func TestMiner_Mine(t *testing.T) {
	dir := t.TempDir()

	native, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	defer native.Free()

	before := "class Account {\n    int balance() {\n        return 1;\n    }\n}\n"
	after := strings.Replace(before, "return 1", "return 2", 1)

	file := filepath.Join(dir, "Account.java")
	require.NoError(t, os.WriteFile(file, []byte(before), 0o644))
	commitAll(t, native, "initial", time.Now().Add(-time.Hour))

	require.NoError(t, os.WriteFile(file, []byte(after), 0o644))
	commitAll(t, native, "fix balance", time.Now())

	cfg := config.MiningConfig{
		Workers:          1,
		MaxFileSize:      config.DefaultMaxFileSize,
		MaxFragmentNodes: config.DefaultMaxFragmentNodes,
	}

	miner, err := NewMiner(cfg, syntax.NewParser(), testProviders(t))
	require.NoError(t, err)

	set, err := miner.Mine(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, 2, set.Stats.Commits)
	// The root commit tallies its inserted file; the second commit sees the
	// modified one.
	assert.GreaterOrEqual(t, set.Stats.FilesSeen, 2)
	require.NotEmpty(t, set.Edits)

	mined := set.Edits[0]
	assert.Equal(t, filepath.Base(dir), mined.Repo)
	assert.Equal(t, "java", mined.Language)
	assert.Contains(t, mined.BeforeText, "1")
	assert.Contains(t, mined.AfterText, "2")
	assert.False(t, mined.AuthorTime.IsZero())
}

func TestRepoIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "project", repoIdentity("/home/user/project"))
	assert.Equal(t, "project", repoIdentity("project/"))
	assert.Equal(t, "project", repoIdentity("./project"))
}
