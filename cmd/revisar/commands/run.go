package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/internal/mining"
	"github.com/Sumatoshi-tech/revisar/pkg/cluster"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// NewRunCommand creates the full-pipeline command: extract, cluster, and
// generalize in one invocation.
func NewRunCommand(globals *Globals) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "run <repo>...",
		Short: "Run the full mining pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			providers, err := globals.Observability(observability.ModeCLI)
			if err != nil {
				return err
			}
			defer shutdownProviders(providers)

			store, err := storeFor(cfg, outputDir)
			if err != nil {
				return err
			}

			miner, err := mining.NewMiner(cfg.Mining, syntax.NewParser(), providers)
			if err != nil {
				return err
			}

			set, err := miner.Mine(cobraCmd.Context(), args)
			if err != nil {
				return err
			}

			if saveErr := store.Save(persist.EditsArtifact, set); saveErr != nil {
				return saveErr
			}

			result := cluster.Cluster(set.Edits, cluster.Options{
				Threshold: cfg.Cluster.Threshold,
				MinSize:   cfg.Cluster.MinSize,
			})

			if saveErr := store.Save(persist.ClustersArtifact, result); saveErr != nil {
				return saveErr
			}

			templates, skipped := synthesizeAll(providers.Logger, result.Groups, cfg.Generalize.MaxHoles)

			if saveErr := store.Save(persist.TemplatesArtifact, templates); saveErr != nil {
				return saveErr
			}

			if !globals.Quiet {
				fmt.Fprintf(os.Stdout, "%d edits -> %d groups -> %d templates (%d groups skipped)\n",
					set.Len(), result.Stats.Groups, len(templates.Templates), skipped)
				fmt.Fprintf(os.Stdout, "artifacts in %s\n", filepath.Dir(store.Path(persist.EditsArtifact)))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifact output directory")

	return cmd
}
