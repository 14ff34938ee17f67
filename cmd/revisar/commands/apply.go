package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/internal/config"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
	"github.com/Sumatoshi-tech/revisar/pkg/template"
	"github.com/Sumatoshi-tech/revisar/pkg/textutil"
)

// Sentinel errors for the apply command.
var (
	// ErrTemplateNotFound indicates no template carries the requested ID.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrLanguageMismatch indicates a target file's language differs from the
	// template's.
	ErrLanguageMismatch = errors.New("file language does not match template")
)

// NewApplyCommand creates the template application command.
func NewApplyCommand(globals *Globals) *cobra.Command {
	var (
		outputDir   string
		templateSet string
		templateID  int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "apply <file>...",
		Short: "Rewrite files with a synthesized template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			set, err := loadTemplateSet(cfg, outputDir, templateSet)
			if err != nil {
				return err
			}

			tpl := findTemplate(set, templateID)
			if tpl == nil {
				return fmt.Errorf("%w: id %d", ErrTemplateNotFound, templateID)
			}

			parser := syntax.NewParser()
			total := 0

			for _, path := range args {
				count, applyErr := applyToFile(cobraCmd, tpl, parser, path, dryRun)
				if applyErr != nil {
					return applyErr
				}

				total += count

				if !globals.Quiet {
					reportApplied(path, count, dryRun)
				}
			}

			if !globals.Quiet {
				fmt.Fprintf(os.Stdout, "%d sites across %d files\n", total, len(args))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().StringVar(&templateSet, "template-set", "", "JSON template set file (default: templates artifact)")
	cmd.Flags().IntVar(&templateID, "id", 0, "ID of the template to apply")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report matches without writing files")

	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// loadTemplateSet reads templates from an explicit JSON file, validating it
// against the template set schema first, or from the artifact store.
func loadTemplateSet(cfg *config.Config, outputDir, path string) (*template.Set, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template set: %w", err)
		}

		if validateErr := template.ValidateJSON(data); validateErr != nil {
			return nil, validateErr
		}

		var set template.Set
		if unmarshalErr := json.Unmarshal(data, &set); unmarshalErr != nil {
			return nil, fmt.Errorf("decode template set: %w", unmarshalErr)
		}

		return &set, nil
	}

	store, err := storeFor(cfg, outputDir)
	if err != nil {
		return nil, err
	}

	var set template.Set
	if loadErr := store.Load(persist.TemplatesArtifact, &set); loadErr != nil {
		return nil, loadErr
	}

	return &set, nil
}

// findTemplate returns the template with the given ID, or nil.
func findTemplate(set *template.Set, id int) *template.Template {
	for _, tpl := range set.Templates {
		if tpl.ID == id {
			return tpl
		}
	}

	return nil
}

// applyToFile rewrites one file in place, or only counts matches on dry runs.
func applyToFile(cobraCmd *cobra.Command, tpl *template.Template, parser *syntax.Parser, path string, dryRun bool) (int, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	if textutil.IsBinary(src) {
		return 0, fmt.Errorf("%w: %s is binary", ErrLanguageMismatch, path)
	}

	lang := syntax.DetectLanguage(path, src)
	if lang != tpl.Language {
		return 0, fmt.Errorf("%w: %s is %q, template is %q", ErrLanguageMismatch, path, lang, tpl.Language)
	}

	rewritten, count, err := template.Apply(cobraCmd.Context(), tpl, parser, src)
	if err != nil {
		return 0, fmt.Errorf("apply to %s: %w", path, err)
	}

	if count == 0 {
		return 0, nil
	}

	if dryRun {
		fmt.Fprint(cobraCmd.OutOrStdout(), patchText(src, rewritten))

		return count, nil
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return 0, fmt.Errorf("stat %s: %w", path, statErr)
	}

	if writeErr := os.WriteFile(path, rewritten, info.Mode().Perm()); writeErr != nil {
		return 0, fmt.Errorf("write %s: %w", path, writeErr)
	}

	return count, nil
}

// patchText renders the pending rewrite as a unified-style patch.
func patchText(src, rewritten []byte) string {
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(string(src), string(rewritten))

	return dmp.PatchToText(patches)
}

// reportApplied prints one file's outcome, coloring rewrites green.
func reportApplied(path string, count int, dryRun bool) {
	switch {
	case count == 0:
		fmt.Fprintf(os.Stdout, "%s: no matches\n", path)
	case dryRun:
		color.New(color.FgYellow).Fprintf(os.Stdout, "%s: %d sites (dry run)\n", path, count)
	default:
		color.New(color.FgGreen).Fprintf(os.Stdout, "%s: %d sites rewritten\n", path, count)
	}
}
