// Package main provides the entry point for the revisar CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/cmd/revisar/commands"
	"github.com/Sumatoshi-tech/revisar/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	globals := &commands.Globals{}

	rootCmd := &cobra.Command{
		Use:   "revisar",
		Short: "Revisar - mine reusable code transformations from git histories",
		Long: `Revisar mines code edits from git revision histories, clusters the
similar ones, and generalizes each cluster into a reusable transformation
template that can be applied to new code.

Pipeline:
  extract     Mine code edits from repository histories
  cluster     Group structurally similar edits
  generalize  Synthesize templates from edit groups
  apply       Rewrite files with a template
  run         All three mining stages in sequence`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "config file (default: .revisar.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&globals.LogJSON, "log-json", false, "JSON-formatted log output")

	rootCmd.AddCommand(commands.NewExtractCommand(globals))
	rootCmd.AddCommand(commands.NewClusterCommand(globals))
	rootCmd.AddCommand(commands.NewGeneralizeCommand(globals))
	rootCmd.AddCommand(commands.NewApplyCommand(globals))
	rootCmd.AddCommand(commands.NewRunCommand(globals))
	rootCmd.AddCommand(commands.NewShowCommand(globals))
	rootCmd.AddCommand(commands.NewRenderCommand(globals))
	rootCmd.AddCommand(commands.NewMCPCommand(globals))
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "revisar %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
