package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/revisar/pkg/cluster"
	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
	"github.com/Sumatoshi-tech/revisar/pkg/template"
)

// Sentinel errors for artifact display.
var (
	ErrUnknownArtifact = errors.New("unknown artifact")
	ErrUnknownOutput   = errors.New("unknown output format")
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"

	defaultShowLimit = 20
	snippetMaxRunes  = 60
)

// NewShowCommand creates the artifact inspection command.
func NewShowCommand(globals *Globals) *cobra.Command {
	var (
		outputDir string
		format    string
		limit     int
	)

	cmd := &cobra.Command{
		Use:       "show <edits|clusters|templates>",
		Short:     "Display a stored pipeline artifact",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{persist.EditsArtifact, persist.ClustersArtifact, persist.TemplatesArtifact},
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			store, err := storeFor(cfg, outputDir)
			if err != nil {
				return err
			}

			switch args[0] {
			case persist.EditsArtifact:
				var set edit.Set
				if loadErr := store.Load(persist.EditsArtifact, &set); loadErr != nil {
					return loadErr
				}

				return showEdits(os.Stdout, &set, format, limit)
			case persist.ClustersArtifact:
				var result cluster.Result
				if loadErr := store.Load(persist.ClustersArtifact, &result); loadErr != nil {
					return loadErr
				}

				return showClusters(os.Stdout, &result, format, limit)
			case persist.TemplatesArtifact:
				var set template.Set
				if loadErr := store.Load(persist.TemplatesArtifact, &set); loadErr != nil {
					return loadErr
				}

				return showTemplates(os.Stdout, &set, format, limit)
			default:
				return fmt.Errorf("%w: %s", ErrUnknownArtifact, args[0])
			}
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json or yaml")
	cmd.Flags().IntVar(&limit, "limit", defaultShowLimit, "maximum rows in table output, 0 for all")

	return cmd
}

func showEdits(out io.Writer, set *edit.Set, format string, limit int) error {
	switch format {
	case formatJSON, formatYAML:
		return encodeArtifact(out, set, format)
	case formatTable:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOutput, format)
	}

	printHeading(out, "Mined edits")

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Repo", "Commit", "File", "Lang", "Before", "After"})

	for _, e := range capRows(set.Edits, limit) {
		tbl.AppendRow(table.Row{
			e.Repo, shortCommit(e.Commit), e.File, e.Language,
			snippet(e.BeforeText), snippet(e.AfterText),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d edits, %d commits, %d parse errors",
		len(set.Edits), set.Stats.Commits, set.Stats.ParseErrors)})
	fmt.Fprintln(out, tbl.Render())

	return nil
}

func showClusters(out io.Writer, result *cluster.Result, format string, limit int) error {
	switch format {
	case formatJSON, formatYAML:
		return encodeArtifact(out, result, format)
	case formatTable:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOutput, format)
	}

	printHeading(out, "Edit clusters")

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"ID", "Size", "Repos", "Lang", "Exemplar before", "Exemplar after"})

	for _, group := range capRows(result.Groups, limit) {
		tbl.AppendRow(table.Row{
			group.ID, len(group.Members), group.Repos, group.Exemplar.Language,
			snippet(group.Exemplar.BeforeText), snippet(group.Exemplar.AfterText),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d groups from %d edits, %d dropped",
		result.Stats.Groups, result.Stats.Edits, result.Stats.Dropped)})
	fmt.Fprintln(out, tbl.Render())

	return nil
}

func showTemplates(out io.Writer, set *template.Set, format string, limit int) error {
	switch format {
	case formatJSON, formatYAML:
		return encodeArtifact(out, set, format)
	case formatTable:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOutput, format)
	}

	printHeading(out, "Transformation templates")

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"ID", "Lang", "Holes", "Support", "Repos", "Rewrite"})

	for _, tpl := range capRows(set.Templates, limit) {
		tbl.AppendRow(table.Row{
			tpl.ID, tpl.Language, tpl.HoleCount, tpl.Support, tpl.Repos, snippet(tpl.Rewrite),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d templates", len(set.Templates))})
	fmt.Fprintln(out, tbl.Render())

	return nil
}

func encodeArtifact(out io.Writer, artifact any, format string) error {
	if format == formatYAML {
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()

		return encoder.Encode(artifact)
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(artifact)
}

func printHeading(out io.Writer, heading string) {
	color.New(color.FgCyan, color.Bold).Fprintf(out, "%s\n", heading)
}

func capRows[T any](rows []T, limit int) []T {
	if limit <= 0 || limit >= len(rows) {
		return rows
	}

	return rows[:limit]
}

func shortCommit(commit string) string {
	const short = 8
	if len(commit) > short {
		return commit[:short]
	}

	return commit
}

// snippet flattens a fragment to a single bounded line for table cells.
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)

	if len(runes) > snippetMaxRunes {
		return string(runes[:snippetMaxRunes-1]) + "…"
	}

	return flat
}
