package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/pkg/cluster"
	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
)

// NewClusterCommand creates the edit clustering command.
func NewClusterCommand(globals *Globals) *cobra.Command {
	var (
		outputDir string
		threshold float64
		minSize   int
	)

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group mined edits into clusters of similar changes",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			if cobraCmd.Flags().Changed("threshold") {
				cfg.Cluster.Threshold = threshold
			}

			if minSize > 0 {
				cfg.Cluster.MinSize = minSize
			}

			store, err := storeFor(cfg, outputDir)
			if err != nil {
				return err
			}

			var set edit.Set
			if loadErr := store.Load(persist.EditsArtifact, &set); loadErr != nil {
				return loadErr
			}

			result := cluster.Cluster(set.Edits, cluster.Options{
				Threshold: cfg.Cluster.Threshold,
				MinSize:   cfg.Cluster.MinSize,
			})

			if saveErr := store.Save(persist.ClustersArtifact, result); saveErr != nil {
				return saveErr
			}

			if !globals.Quiet {
				fmt.Fprintf(os.Stdout, "%d groups from %d edits (%d below min size, %d clustered)\n",
					result.Stats.Groups, result.Stats.Edits,
					result.Stats.Dropped, result.Stats.Clustered)
				fmt.Fprintf(os.Stdout, "saved %s\n", store.Path(persist.ClustersArtifact))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().Float64Var(&threshold, "threshold", cluster.DefaultThreshold, "maximum distance to a group exemplar")
	cmd.Flags().IntVar(&minSize, "min-size", 0, "drop groups with fewer members")

	return cmd
}
