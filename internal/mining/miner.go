// Package mining walks git revision histories and extracts code edits from
// every commit's file modifications.
package mining

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/revisar/internal/config"
	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/gitlib"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// stageName tags spans, metrics, and log records from this stage.
const stageName = "extract"

// Miner extracts edits from a set of repositories.
type Miner struct {
	cfg     config.MiningConfig
	parser  *syntax.Parser
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.StageMetrics
}

// NewMiner creates a miner with the given configuration and providers.
func NewMiner(cfg config.MiningConfig, parser *syntax.Parser, providers observability.Providers) (*Miner, error) {
	metrics, err := observability.NewStageMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create stage metrics: %w", err)
	}

	return &Miner{
		cfg:     cfg,
		parser:  parser,
		logger:  providers.Logger,
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// repoResult is one repository's mined edits or failure.
type repoResult struct {
	path string
	set  *edit.Set
	err  error
}

// Mine walks every repository's history and returns the merged edit set.
// Repositories are processed concurrently, each on a goroutine locked to its
// OS thread to satisfy libgit2's threading constraints.
func (m *Miner) Mine(ctx context.Context, repoPaths []string) (*edit.Set, error) {
	ctx, span := m.tracer.Start(ctx, "mining.mine",
		trace.WithAttributes(attribute.Int("repos", len(repoPaths))))
	defer span.End()

	done := m.metrics.TrackInflight(ctx, stageName)
	defer done()

	started := time.Now()

	jobs := make(chan string)
	results := make(chan repoResult)

	workers := m.cfg.Workers
	if workers > len(repoPaths) {
		workers = len(repoPaths)
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)

		go func() {
			// libgit2 handles must stay on one OS thread.
			runtime.LockOSThread()

			defer runtime.UnlockOSThread()
			defer wg.Done()

			for path := range jobs {
				set, err := m.mineRepo(ctx, path)
				results <- repoResult{path: path, set: set, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)

		for _, path := range repoPaths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	merged := edit.NewSet()

	var firstErr error

	for result := range results {
		if result.err != nil {
			m.logger.ErrorContext(ctx, "repository mining failed",
				slog.String("repo", result.path), slog.Any("error", result.err))

			if firstErr == nil {
				firstErr = fmt.Errorf("mine %s: %w", result.path, result.err)
			}

			continue
		}

		merged.Merge(result.set)
		m.logger.InfoContext(ctx, "repository mined",
			slog.String("repo", result.path),
			slog.Int("edits", result.set.Len()),
			slog.Int("commits", result.set.Stats.Commits),
			slog.String("scanned", humanize.Bytes(result.set.Stats.BytesScanned)))
	}

	status := observability.StatusOK
	if firstErr != nil {
		status = observability.StatusError

		span.RecordError(firstErr)
		span.SetStatus(codes.Error, firstErr.Error())
	}

	m.metrics.RecordStage(ctx, stageName, status, time.Since(started))

	if firstErr != nil {
		return merged, firstErr
	}

	m.logger.InfoContext(ctx, "mining finished",
		slog.Int("edits", merged.Len()),
		slog.Int("duplicates", merged.Stats.Duplicates),
		slog.Duration("elapsed", time.Since(started)))

	return merged, nil
}

// mineRepo walks one repository's history. Runs on an OS-thread-locked
// goroutine.
func (m *Miner) mineRepo(ctx context.Context, path string) (*edit.Set, error) {
	repo, err := gitlib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	defer repo.Free()

	opts := &gitlib.LogOptions{FirstParent: m.cfg.FirstParent}
	if !m.cfg.Since.IsZero() {
		since := m.cfg.Since
		opts.Since = &since
	}

	iter, err := repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	repoName := repoIdentity(path)
	extractor := edit.NewExtractor(m.parser, m.cfg.MaxFragmentNodes)
	set := edit.NewSet()

	forEachErr := iter.ForEach(func(commit *gitlib.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		set.Stats.Commits++

		return m.mineCommit(ctx, repo, commit, repoName, extractor, set)
	})
	if forEachErr != nil {
		return nil, fmt.Errorf("iterate commits: %w", forEachErr)
	}

	return set, nil
}

// mineCommit extracts edits from one commit's modified files. Root commits
// have no before version, so their files are only tallied.
func (m *Miner) mineCommit(
	ctx context.Context,
	repo *gitlib.Repository,
	commit *gitlib.Commit,
	repoName string,
	extractor *edit.Extractor,
	set *edit.Set,
) error {
	if commit.NumParents() == 0 {
		return m.mineInitial(repo, commit, set)
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return fmt.Errorf("lookup parent of %s: %w", commit.Hash(), err)
	}
	defer parent.Free()

	parentTree, err := parent.Tree()
	if err != nil {
		return fmt.Errorf("parent tree of %s: %w", commit.Hash(), err)
	}
	defer parentTree.Free()

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("tree of %s: %w", commit.Hash(), err)
	}
	defer tree.Free()

	changes, err := gitlib.TreeDiff(repo, parentTree, tree)
	if err != nil {
		return fmt.Errorf("diff trees of %s: %w", commit.Hash(), err)
	}

	for _, change := range changes {
		if change.Action != gitlib.Modify {
			continue
		}

		m.mineChange(ctx, repo, commit, change, repoName, extractor, set)
	}

	return nil
}

// mineInitial counts the files a root commit introduces. Inserted files carry
// no before fragment to pair against, so nothing is extracted from them.
func (m *Miner) mineInitial(repo *gitlib.Repository, commit *gitlib.Commit, set *edit.Set) error {
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("tree of %s: %w", commit.Hash(), err)
	}
	defer tree.Free()

	changes, err := gitlib.InitialTreeChanges(repo, tree)
	if err != nil {
		return fmt.Errorf("initial tree of %s: %w", commit.Hash(), err)
	}

	for _, change := range changes {
		if change.Action == gitlib.Insert {
			set.Stats.FilesSeen++
		}
	}

	return nil
}

// mineChange extracts edits from a single modified file. Extraction failures
// are counted, not propagated; one odd file must not abort the walk.
func (m *Miner) mineChange(
	ctx context.Context,
	repo *gitlib.Repository,
	commit *gitlib.Commit,
	change *gitlib.Change,
	repoName string,
	extractor *edit.Extractor,
	set *edit.Set,
) {
	set.Stats.FilesSeen++

	if change.From.Size > int64(m.cfg.MaxFileSize) || change.To.Size > int64(m.cfg.MaxFileSize) {
		set.Stats.FilesSkipped++

		return
	}

	before, beforeErr := repo.LookupBlob(change.From.Hash)
	if beforeErr != nil {
		set.Stats.FilesSkipped++

		return
	}
	defer before.Free()

	after, afterErr := repo.LookupBlob(change.To.Hash)
	if afterErr != nil {
		set.Stats.FilesSkipped++

		return
	}
	defer after.Free()

	if before.IsBinary() || after.IsBinary() {
		set.Stats.FilesSkipped++

		return
	}

	lang := syntax.DetectLanguage(change.To.Name, after.Contents())
	if lang == "" || !m.allowedLanguage(lang) {
		set.Stats.FilesSkipped++

		return
	}

	set.Stats.BytesScanned += uint64(before.Size()) + uint64(after.Size())

	edits, err := extractor.Extract(ctx, before.Contents(), after.Contents(), change.To.Name, lang)
	if err != nil {
		set.Stats.ParseErrors++

		m.logger.DebugContext(ctx, "extraction failed",
			slog.String("repo", repoName),
			slog.String("file", change.To.Name),
			slog.Any("error", err))

		return
	}

	author := commit.Author()

	for _, mined := range edits {
		mined.Repo = repoName
		mined.Commit = commit.Hash().String()
		mined.AuthorTime = author.When
		set.Append(mined)
	}
}

// allowedLanguage reports whether the configured language filter admits lang.
func (m *Miner) allowedLanguage(lang string) bool {
	if len(m.cfg.Languages) == 0 {
		return true
	}

	for _, allowed := range m.cfg.Languages {
		if strings.EqualFold(allowed, lang) {
			return true
		}
	}

	return false
}

// repoIdentity derives a short repository name from its path.
func repoIdentity(path string) string {
	name := filepath.Base(filepath.Clean(path))
	if name == "." || name == string(filepath.Separator) {
		return path
	}

	return name
}
