package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	// An explicit path that does not exist is an error; load without one
	// falls back to defaults when no file is found in the search path.
	require.Error(t, err)

	cfg, err = LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultMiningWorkers, cfg.Mining.Workers)
	assert.Equal(t, DefaultMaxFileSize, cfg.Mining.MaxFileSize)
	assert.Equal(t, DefaultMaxFragmentNodes, cfg.Mining.MaxFragmentNodes)
	assert.True(t, cfg.Mining.FirstParent)
	assert.Empty(t, cfg.Mining.Languages)
	assert.InDelta(t, DefaultClusterThreshold, cfg.Cluster.Threshold, 1e-9)
	assert.Equal(t, DefaultClusterMinSize, cfg.Cluster.MinSize)
	assert.Equal(t, DefaultMaxHoles, cfg.Generalize.MaxHoles)
	assert.Equal(t, DefaultOutputDir, cfg.Output.Dir)
	assert.False(t, cfg.Output.Compress)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "revisar.yaml")

	content := `
mining:
  workers: 2
  languages: [java, go]
cluster:
  threshold: 0.2
output:
  dir: /tmp/out
  compress: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Mining.Workers)
	assert.Equal(t, []string{"java", "go"}, cfg.Mining.Languages)
	assert.InDelta(t, 0.2, cfg.Cluster.Threshold, 1e-9)
	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.True(t, cfg.Output.Compress)

	// Unset keys keep their defaults.
	assert.Equal(t, DefaultMaxFragmentNodes, cfg.Mining.MaxFragmentNodes)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("REVISAR_MINING_WORKERS", "8")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Mining.Workers)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "revisar.yaml")

	require.NoError(t, os.WriteFile(path, []byte("cluster:\n  threshold: 1.5\n"), 0o600))

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			Mining: MiningConfig{
				Workers:          DefaultMiningWorkers,
				MaxFileSize:      DefaultMaxFileSize,
				MaxFragmentNodes: DefaultMaxFragmentNodes,
			},
			Cluster:    ClusterConfig{Threshold: DefaultClusterThreshold, MinSize: DefaultClusterMinSize},
			Generalize: GeneralizeConfig{MaxHoles: DefaultMaxHoles},
			Output:     OutputConfig{Dir: DefaultOutputDir},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero workers", func(c *Config) { c.Mining.Workers = 0 }, ErrInvalidWorkers},
		{"zero file size", func(c *Config) { c.Mining.MaxFileSize = 0 }, ErrInvalidMaxFileSize},
		{"zero fragment nodes", func(c *Config) { c.Mining.MaxFragmentNodes = 0 }, ErrInvalidFragmentNodes},
		{"threshold too high", func(c *Config) { c.Cluster.Threshold = 1.1 }, ErrInvalidThreshold},
		{"threshold zero", func(c *Config) { c.Cluster.Threshold = 0 }, ErrInvalidThreshold},
		{"zero min size", func(c *Config) { c.Cluster.MinSize = 0 }, ErrInvalidMinSize},
		{"zero max holes", func(c *Config) { c.Generalize.MaxHoles = 0 }, ErrInvalidMaxHoles},
		{"empty output dir", func(c *Config) { c.Output.Dir = "" }, ErrEmptyOutputDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOutputConfig_Format(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "json", OutputConfig{}.Format())
	assert.Equal(t, "lz4", OutputConfig{Compress: true}.Format())
}
