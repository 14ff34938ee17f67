package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/revisar/internal/mining"
	"github.com/Sumatoshi-tech/revisar/pkg/cluster"
	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
	"github.com/Sumatoshi-tech/revisar/pkg/template"
)

// Tool name constants.
const (
	ToolNameMine     = "revisar_mine"
	ToolNameClusters = "revisar_clusters"
	ToolNameApply    = "revisar_apply"
)

// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	// ErrNoRepos indicates the repos parameter is empty.
	ErrNoRepos = errors.New("repos parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates a repository path is not absolute.
	ErrRepoPathNotAbsolute = errors.New("repository paths must be absolute")
	// ErrRepoNotFound indicates a repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
	// ErrTemplateNotFound indicates no template carries the requested ID.
	ErrTemplateNotFound = errors.New("template not found")
)

// MineInput is the input schema for the revisar_mine tool.
type MineInput struct {
	Repos []string `json:"repos" jsonschema:"absolute paths to git repositories to mine"`
}

// ClustersInput is the input schema for the revisar_clusters tool.
type ClustersInput struct {
	Dir string `json:"dir,omitempty" jsonschema:"artifact directory (default: configured output dir)"`
}

// ApplyInput is the input schema for the revisar_apply tool.
type ApplyInput struct {
	Code       string `json:"code"          jsonschema:"source code to rewrite"`
	TemplateID int    `json:"template_id"   jsonschema:"ID of the template to apply"`
	Dir        string `json:"dir,omitempty" jsonschema:"artifact directory (default: configured output dir)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// store opens the artifact store for a directory, falling back to the
// configured output directory.
func (s *Server) store(dir string) (*persist.Store, error) {
	if dir == "" {
		dir = s.deps.Config.Output.Dir
	}

	codec, err := persist.CodecFor(s.deps.Config.Output.Format())
	if err != nil {
		return nil, err
	}

	return persist.NewStore(dir, codec), nil
}

// mineResult is the structured output of the revisar_mine tool.
type mineResult struct {
	Edits    int        `json:"edits"`
	Stats    edit.Stats `json:"stats"`
	Artifact string     `json:"artifact"`
}

func (s *Server) handleMine(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input MineInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Repos) == 0 {
		return errorResult(ErrNoRepos)
	}

	for _, repoPath := range input.Repos {
		if !filepath.IsAbs(repoPath) {
			return errorResult(fmt.Errorf("%w: %s", ErrRepoPathNotAbsolute, repoPath))
		}

		if _, statErr := os.Stat(repoPath); statErr != nil {
			return errorResult(fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath))
		}
	}

	miner, err := mining.NewMiner(s.deps.Config.Mining, s.deps.Parser, s.deps.Providers)
	if err != nil {
		return errorResult(err)
	}

	set, err := miner.Mine(ctx, input.Repos)
	if err != nil {
		return errorResult(err)
	}

	store, err := s.store("")
	if err != nil {
		return errorResult(err)
	}

	if saveErr := store.Save(persist.EditsArtifact, set); saveErr != nil {
		return errorResult(saveErr)
	}

	return jsonResult(mineResult{
		Edits:    set.Len(),
		Stats:    set.Stats,
		Artifact: store.Path(persist.EditsArtifact),
	})
}

// groupSummary is one group in the revisar_clusters tool output.
type groupSummary struct {
	ID       int    `json:"id"`
	Size     int    `json:"size"`
	Repos    int    `json:"repos"`
	Language string `json:"language"`
	Example  string `json:"example"`
}

// clustersResult is the structured output of the revisar_clusters tool.
type clustersResult struct {
	Groups   []groupSummary `json:"groups"`
	Stats    cluster.Stats  `json:"stats"`
	Artifact string         `json:"artifact"`
}

func (s *Server) handleClusters(
	_ context.Context, _ *mcpsdk.CallToolRequest, input ClustersInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	store, err := s.store(input.Dir)
	if err != nil {
		return errorResult(err)
	}

	var set edit.Set
	if loadErr := store.Load(persist.EditsArtifact, &set); loadErr != nil {
		return errorResult(loadErr)
	}

	result := cluster.Cluster(set.Edits, cluster.Options{
		Threshold: s.deps.Config.Cluster.Threshold,
		MinSize:   s.deps.Config.Cluster.MinSize,
	})

	if saveErr := store.Save(persist.ClustersArtifact, result); saveErr != nil {
		return errorResult(saveErr)
	}

	summaries := make([]groupSummary, 0, len(result.Groups))
	for _, group := range result.Groups {
		summaries = append(summaries, groupSummary{
			ID:       group.ID,
			Size:     len(group.Members),
			Repos:    group.Repos,
			Language: group.Exemplar.Language,
			Example:  group.Exemplar.BeforeText,
		})
	}

	return jsonResult(clustersResult{
		Groups:   summaries,
		Stats:    result.Stats,
		Artifact: store.Path(persist.ClustersArtifact),
	})
}

// applyResult is the structured output of the revisar_apply tool.
type applyResult struct {
	Rewritten string `json:"rewritten"`
	Count     int    `json:"count"`
	Language  string `json:"language"`
}

func (s *Server) handleApply(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input ApplyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Code == "" {
		return errorResult(ErrEmptyCode)
	}

	if len(input.Code) > MaxCodeInputBytes {
		return errorResult(fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(input.Code), MaxCodeInputBytes))
	}

	store, err := s.store(input.Dir)
	if err != nil {
		return errorResult(err)
	}

	var set template.Set
	if loadErr := store.Load(persist.TemplatesArtifact, &set); loadErr != nil {
		return errorResult(loadErr)
	}

	var tpl *template.Template

	for _, candidate := range set.Templates {
		if candidate.ID == input.TemplateID {
			tpl = candidate

			break
		}
	}

	if tpl == nil {
		return errorResult(fmt.Errorf("%w: id %d", ErrTemplateNotFound, input.TemplateID))
	}

	rewritten, count, applyErr := template.Apply(ctx, tpl, s.deps.Parser, []byte(input.Code))
	if applyErr != nil {
		return errorResult(applyErr)
	}

	return jsonResult(applyResult{
		Rewritten: string(rewritten),
		Count:     count,
		Language:  tpl.Language,
	})
}
