// Package config provides configuration for the scorecast pipeline and
// server.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration of a training run and the prediction
// server.
type Config struct {
	// Artifact locations
	ArtifactDir string `json:"artifact_dir" yaml:"artifact_dir"` // Directory holding every artifact
	SourcePath  string `json:"source_path" yaml:"source_path"`   // Raw CSV read by ingestion

	// Ingestion
	TestSize float64 `json:"test_size" yaml:"test_size"` // Fraction of rows held out, in (0, 1)
	Seed     uint64  `json:"seed" yaml:"seed"`           // Shuffle seed for split and CV folds

	// Transformation
	TargetColumn       string   `json:"target_column" yaml:"target_column"`
	NumericColumns     []string `json:"numeric_columns" yaml:"numeric_columns"`         // Empty = infer from train dtypes
	CategoricalColumns []string `json:"categorical_columns" yaml:"categorical_columns"` // Empty = infer from train dtypes
	ScaleCategorical   *bool    `json:"scale_categorical" yaml:"scale_categorical"`     // nil = true

	// Training
	Threshold  float64                         `json:"threshold" yaml:"threshold"`     // Minimum test R² of the winner
	CVFolds    int                             `json:"cv_folds" yaml:"cv_folds"`       // Folds for grid search
	Workers    int                             `json:"workers" yaml:"workers"`         // Grid search concurrency (0 = CPU count)
	Candidates []string                        `json:"candidates" yaml:"candidates"`   // Empty = full roster
	Grids      map[string]map[string][]float64 `json:"grids" yaml:"grids"`             // Per-candidate grid overrides
	ReportPlot string                          `json:"report_plot" yaml:"report_plot"` // PNG chart of scores; empty = off

	// Serving
	ServerAddr string `json:"server_addr" yaml:"server_addr"`

	// Logging
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Default configuration values
const (
	DefaultArtifactDir  = "artifacts"
	DefaultSourcePath   = "notebook/data/stud.csv"
	DefaultTestSize     = 0.2
	DefaultSeed         = 42
	DefaultTargetColumn = "math_score"
	DefaultThreshold    = 0.6
	DefaultCVFolds      = 3
	DefaultServerAddr   = ":8080"
	DefaultLogLevel     = "info"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvArtifactDir = "SCORECAST_ARTIFACT_DIR"
	EnvLogLevel    = "SCORECAST_LOG_LEVEL"
)

// NewConfig creates a configuration with default values.
func NewConfig() Config {
	scale := true
	return Config{
		ArtifactDir:      DefaultArtifactDir,
		SourcePath:       DefaultSourcePath,
		TestSize:         DefaultTestSize,
		Seed:             DefaultSeed,
		TargetColumn:     DefaultTargetColumn,
		ScaleCategorical: &scale,
		Threshold:        DefaultThreshold,
		CVFolds:          DefaultCVFolds,
		ServerAddr:       DefaultServerAddr,
		LogLevel:         DefaultLogLevel,
	}
}

// Validate returns an error describing the first invalid setting.
func (c *Config) Validate() error {
	if c.ArtifactDir == "" {
		return fmt.Errorf("ArtifactDir must not be empty")
	}
	if c.TestSize <= 0 || c.TestSize >= 1 || math.IsNaN(c.TestSize) {
		return fmt.Errorf("TestSize must be between 0 and 1 (exclusive), got %v", c.TestSize)
	}
	if c.TargetColumn == "" {
		return fmt.Errorf("TargetColumn must not be empty")
	}
	if math.IsNaN(c.Threshold) || c.Threshold > 1 {
		return fmt.Errorf("Threshold must be at most 1, got %v", c.Threshold)
	}
	if c.CVFolds < 2 {
		return fmt.Errorf("CVFolds must be at least 2, got %d", c.CVFolds)
	}
	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	seen := make(map[string]string)
	for _, col := range c.NumericColumns {
		seen[col] = "numeric"
	}
	for _, col := range c.CategoricalColumns {
		if seen[col] != "" {
			return fmt.Errorf("column %q listed as both numeric and categorical", col)
		}
		seen[col] = "categorical"
	}
	if seen[c.TargetColumn] != "" {
		return fmt.Errorf("target column %q must not be listed as a feature", c.TargetColumn)
	}

	for name, grid := range c.Grids {
		for param, values := range grid {
			if len(values) == 0 {
				return fmt.Errorf("grid %s.%s has no values", name, param)
			}
		}
	}
	return nil
}

// WithDefaults returns a copy with default values filled in for zero
// values. Threshold 0 is kept: it means "accept any model".
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.ArtifactDir == "" {
		c.ArtifactDir = defaults.ArtifactDir
	}
	if c.SourcePath == "" {
		c.SourcePath = defaults.SourcePath
	}
	if c.TestSize == 0 {
		c.TestSize = defaults.TestSize
	}
	if c.TargetColumn == "" {
		c.TargetColumn = defaults.TargetColumn
	}
	if c.ScaleCategorical == nil {
		c.ScaleCategorical = defaults.ScaleCategorical
	}
	if c.CVFolds == 0 {
		c.CVFolds = defaults.CVFolds
	}
	if c.ServerAddr == "" {
		c.ServerAddr = defaults.ServerAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	return c
}

// ScaleCategoricalEnabled reports whether one-hot columns are scaled.
func (c *Config) ScaleCategoricalEnabled() bool {
	return c.ScaleCategorical == nil || *c.ScaleCategorical
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	lv, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return lv
}

// Path joins name onto the artifact directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.ArtifactDir, name)
}

// Load returns the configuration from filename, or the defaults when
// filename is empty, with environment overrides applied and validated.
func Load(filename string) (Config, error) {
	cfg := NewConfig()
	if filename != "" {
		var err error
		if cfg, err = LoadFromFile(filename); err != nil {
			return Config{}, err
		}
	}
	cfg = cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON or YAML file. Unset fields
// take their defaults. Threshold and Seed can be zero, so both start from
// the defaults and are only replaced when the file sets them.
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config file %s", filename)
	}

	config := Config{Threshold: DefaultThreshold, Seed: DefaultSeed}
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, errors.Newf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, errors.Wrapf(err, "parsing config file %s", filename)
	}

	return config.WithDefaults(), nil
}

// ApplyEnv returns a copy with SCORECAST_* environment overrides applied.
func (c Config) ApplyEnv() Config {
	if val := os.Getenv(EnvArtifactDir); val != "" {
		c.ArtifactDir = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}
	return c
}
