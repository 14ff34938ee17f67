package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/internal/mining"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// ErrBadSince indicates the --since value parsed as neither date nor duration.
var ErrBadSince = errors.New("invalid --since value (use RFC3339, 2006-01-02, or a duration like 720h)")

// parseSince accepts an RFC3339 timestamp, a plain date, or a duration
// measured back from now.
func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}

	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts, nil
	}

	if dur, err := time.ParseDuration(raw); err == nil {
		return time.Now().Add(-dur), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrBadSince, raw)
}

// NewExtractCommand creates the edit mining command.
func NewExtractCommand(globals *Globals) *cobra.Command {
	var (
		outputDir   string
		languages   []string
		since       string
		firstParent bool
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "extract <repo>...",
		Short: "Mine code edits from git repository histories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			if len(languages) > 0 {
				cfg.Mining.Languages = languages
			}

			if cobraCmd.Flags().Changed("first-parent") {
				cfg.Mining.FirstParent = firstParent
			}

			if workers > 0 {
				cfg.Mining.Workers = workers
			}

			sinceTime, err := parseSince(since)
			if err != nil {
				return err
			}

			if !sinceTime.IsZero() {
				cfg.Mining.Since = sinceTime
			}

			providers, err := globals.Observability(observability.ModeCLI)
			if err != nil {
				return err
			}
			defer shutdownProviders(providers)

			miner, err := mining.NewMiner(cfg.Mining, syntax.NewParser(), providers)
			if err != nil {
				return err
			}

			set, err := miner.Mine(cobraCmd.Context(), args)
			if err != nil {
				return err
			}

			store, err := storeFor(cfg, outputDir)
			if err != nil {
				return err
			}

			if saveErr := store.Save(persist.EditsArtifact, set); saveErr != nil {
				return saveErr
			}

			if !globals.Quiet {
				fmt.Fprintf(os.Stdout, "%d edits from %d commits (%s scanned, %d duplicates collapsed)\n",
					set.Len(), set.Stats.Commits,
					humanize.Bytes(set.Stats.BytesScanned), set.Stats.Duplicates)
				fmt.Fprintf(os.Stdout, "saved %s\n", store.Path(persist.EditsArtifact))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "artifact output directory")
	cmd.Flags().StringSliceVarP(&languages, "languages", "l", nil, "restrict mining to these languages")
	cmd.Flags().StringVar(&since, "since", "", "only mine commits after this time")
	cmd.Flags().BoolVar(&firstParent, "first-parent", true, "follow only first parents of merges")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of repositories mined concurrently")

	return cmd
}

// shutdownProviders flushes telemetry, logging failures instead of failing
// the command.
func shutdownProviders(providers observability.Providers) {
	err := providers.Shutdown(context.Background())
	if err != nil {
		providers.Logger.Warn("observability shutdown failed", slog.Any("error", err))
	}
}
