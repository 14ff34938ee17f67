// Package config provides configuration loading and validation for revisar.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers       = errors.New("mining workers must be positive")
	ErrInvalidMaxFileSize   = errors.New("mining max file size must be positive")
	ErrInvalidFragmentNodes = errors.New("mining max fragment nodes must be positive")
	ErrInvalidThreshold     = errors.New("cluster threshold must be in (0, 1]")
	ErrInvalidMinSize       = errors.New("cluster min size must be positive")
	ErrInvalidMaxHoles      = errors.New("generalize max holes must be positive")
	ErrEmptyOutputDir       = errors.New("output directory must not be empty")
)

// Default configuration values.
const (
	DefaultMiningWorkers    = 4
	DefaultMaxFileSize      = 1 << 20
	DefaultMaxFragmentNodes = 200
	DefaultClusterThreshold = 0.35
	DefaultClusterMinSize   = 2
	DefaultMaxHoles         = 6
	DefaultOutputDir        = "revisar-out"
)

// Config holds all revisar settings.
type Config struct {
	Mining     MiningConfig     `mapstructure:"mining"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Generalize GeneralizeConfig `mapstructure:"generalize"`
	Output     OutputConfig     `mapstructure:"output"`
}

// MiningConfig tunes the extraction stage.
type MiningConfig struct {
	// Workers is the number of repositories mined concurrently.
	Workers int `mapstructure:"workers"`
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int `mapstructure:"max_file_size"`
	// MaxFragmentNodes skips fragments larger than this many syntax nodes.
	MaxFragmentNodes int `mapstructure:"max_fragment_nodes"`
	// Since limits mining to commits committed after this time.
	Since time.Time `mapstructure:"since"`
	// FirstParent walks only the first-parent chain of merge commits.
	FirstParent bool `mapstructure:"first_parent"`
	// Languages restricts mining to these languages. Empty means all supported.
	Languages []string `mapstructure:"languages"`
}

// ClusterConfig tunes the clustering stage.
type ClusterConfig struct {
	// Threshold is the maximum distance to a group exemplar.
	Threshold float64 `mapstructure:"threshold"`
	// MinSize drops groups with fewer members.
	MinSize int `mapstructure:"min_size"`
}

// GeneralizeConfig tunes template synthesis.
type GeneralizeConfig struct {
	// MaxHoles rejects templates with more distinct match holes.
	MaxHoles int `mapstructure:"max_holes"`
}

// OutputConfig controls artifact storage.
type OutputConfig struct {
	// Dir is the artifact output directory.
	Dir string `mapstructure:"dir"`
	// Compress stores artifacts as LZ4-compressed JSON.
	Compress bool `mapstructure:"compress"`
}

// Format returns the persist codec format name for the output settings.
func (o OutputConfig) Format() string {
	if o.Compress {
		return "lz4"
	}

	return "json"
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Mining.Workers < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Mining.Workers)
	}

	if c.Mining.MaxFileSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFileSize, c.Mining.MaxFileSize)
	}

	if c.Mining.MaxFragmentNodes < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidFragmentNodes, c.Mining.MaxFragmentNodes)
	}

	if c.Cluster.Threshold <= 0 || c.Cluster.Threshold > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, c.Cluster.Threshold)
	}

	if c.Cluster.MinSize < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMinSize, c.Cluster.MinSize)
	}

	if c.Generalize.MaxHoles < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxHoles, c.Generalize.MaxHoles)
	}

	if c.Output.Dir == "" {
		return ErrEmptyOutputDir
	}

	return nil
}
