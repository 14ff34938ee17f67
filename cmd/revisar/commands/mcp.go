package commands

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revisar/internal/mcp"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
	"github.com/Sumatoshi-tech/revisar/pkg/version"
)

const metricsReadTimeout = 10 * time.Second

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(globals *Globals) *cobra.Command {
	var (
		debug       bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the mining pipeline as tools that AI agents can
discover and invoke:
  - revisar_mine: Extract code edits from git repositories
  - revisar_clusters: Cluster mined edits and summarize the groups
  - revisar_apply: Apply a synthesized template to a code snippet`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := globals.LoadConfig()
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(globals, debug)
			if err != nil {
				return err
			}

			defer shutdownProviders(providers)

			if metricsAddr != "" {
				if metricsErr := serveMetrics(providers, metricsAddr); metricsErr != nil {
					return metricsErr
				}
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Config:    cfg,
				Parser:    syntax.NewParser(),
				Providers: providers,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9464)")

	return cmd
}

func initMCPObservability(globals *Globals, debug bool) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.Mode = observability.ModeMCP
	// Stdio carries the protocol, so logs must stay structured on stderr.
	cfg.LogJSON = true

	if debug || globals.Verbose {
		cfg.LogLevel = slog.LevelDebug
		cfg.DebugTrace = true
	}

	return observability.Init(cfg)
}

// serveMetrics exposes the Prometheus scrape endpoint in the background.
// Serve errors are logged rather than returned; the MCP session owns the
// process lifetime.
func serveMetrics(providers observability.Providers, addr string) error {
	handler, err := observability.PrometheusHandler()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsReadTimeout}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && serveErr != http.ErrServerClosed {
			providers.Logger.Warn("metrics server failed", "addr", addr, "error", serveErr)
		}
	}()

	return nil
}
