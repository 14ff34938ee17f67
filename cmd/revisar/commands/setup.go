// Package commands implements CLI command handlers for revisar.
package commands

import (
	"log/slog"
	"os"

	"github.com/Sumatoshi-tech/revisar/internal/config"
	"github.com/Sumatoshi-tech/revisar/pkg/observability"
	"github.com/Sumatoshi-tech/revisar/pkg/persist"
	"github.com/Sumatoshi-tech/revisar/pkg/version"
)

// Globals holds flags shared by every revisar command.
type Globals struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogJSON    bool
}

// LoadConfig loads the revisar configuration honoring the --config flag.
func (g *Globals) LoadConfig() (*config.Config, error) {
	return config.LoadConfig(g.ConfigPath)
}

// Observability initializes providers for the given application mode.
// OTLP export is driven by the standard OTEL_EXPORTER_OTLP_* env vars.
func (g *Globals) Observability(mode observability.AppMode) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.Mode = mode
	cfg.LogJSON = g.LogJSON
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"

	switch {
	case g.Verbose:
		cfg.LogLevel = slog.LevelDebug
	case g.Quiet:
		cfg.LogLevel = slog.LevelError
	}

	return observability.Init(cfg)
}

// storeFor opens the artifact store for the configured output, with an
// optional directory override from a command flag.
func storeFor(cfg *config.Config, dirOverride string) (*persist.Store, error) {
	dir := cfg.Output.Dir
	if dirOverride != "" {
		dir = dirOverride
	}

	codec, err := persist.CodecFor(cfg.Output.Format())
	if err != nil {
		return nil, err
	}

	return persist.NewStore(dir, codec), nil
}
