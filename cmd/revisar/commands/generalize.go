package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/pkg/cluster"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
	"github.com/Sumatoshi-tech/revisar/pkg/template"
)

// ErrNoTemplates indicates no cluster could be generalized.
var ErrNoTemplates = errors.New("no cluster produced a usable template")

// NewGeneralizeCommand creates the template synthesis command.
func NewGeneralizeCommand(globals *Globals) *cobra.Command {
	var (
		outputDir string
		maxHoles  int
	)

	cmd := &cobra.Command{
		Use:   "generalize",
		Short: "Synthesize transformation templates from edit clusters",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			if maxHoles > 0 {
				cfg.Generalize.MaxHoles = maxHoles
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

			var clusters cluster.Result
			if loadErr := store.Load(persist.ClustersArtifact, &clusters); loadErr != nil {
				return loadErr
			}

			set, skipped := synthesizeAll(providers.Logger, clusters.Groups, cfg.Generalize.MaxHoles)
			if len(set.Templates) == 0 {
				return fmt.Errorf("%w: %d groups skipped", ErrNoTemplates, skipped)
			}

			if saveErr := store.Save(persist.TemplatesArtifact, set); saveErr != nil {
				return saveErr
			}

			if !globals.Quiet {
				fmt.Fprintf(os.Stdout, "%d templates from %d groups (%d skipped)\n",
					len(set.Templates), len(clusters.Groups), skipped)
				fmt.Fprintf(os.Stdout, "saved %s\n", store.Path(persist.TemplatesArtifact))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().IntVar(&maxHoles, "max-holes", 0, "maximum distinct match holes per template")

	return cmd
}

// synthesizeAll generalizes every group, skipping the unsound and overly
// general ones. Template IDs follow group IDs.
func synthesizeAll(logger *slog.Logger, groups []*cluster.Group, maxHoles int) (*template.Set, int) {
	set := &template.Set{}
	skipped := 0

	for _, group := range groups {
		tpl, err := template.Synthesize(group.Members, maxHoles)
		if err != nil {
			skipped++

			logger.Debug("group not generalizable",
				slog.Int("group", group.ID), slog.Any("error", err))

			continue
		}

		tpl.ID = group.ID
		set.Templates = append(set.Templates, tpl)
	}

	return set, skipped
}
