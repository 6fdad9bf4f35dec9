// Package config loads and validates ferrex's on-disk configuration.
//
// Configuration is layered in order of increasing precedence:
//  1. Hardcoded defaults
//  2. Project config (.ferrex.yaml or .ferrex.yml in the directory given to Load)
//  3. Environment variables (FERREX_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is ferrex's complete on-disk configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index" json:"index"`
	Levels  LevelsConfig  `yaml:"levels" json:"levels"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IndexConfig configures where the index lives and the initial size of its
// memory-mapped store.
type IndexConfig struct {
	// Path is the directory holding the kvstore database file and lock file.
	Path string `yaml:"path" json:"path"`

	// SizeMB sizes the initial memory-map bbolt allocates for the store,
	// passed through to pkg/kvstore.OpenWithSize. bbolt grows the mapping
	// on demand regardless, so this is a performance hint rather than a
	// hard ceiling.
	SizeMB int `yaml:"size_mb" json:"size_mb"`

	// FilterableFields are the field names eligible for filter-string
	// predicates at search time (settings update, spec.md §6 "settings").
	// Empty means no field is filterable until settings are applied.
	FilterableFields []string `yaml:"filterable_fields" json:"filterable_fields"`
}

// LevelsConfig holds the positional level pyramid parameters (spec.md §4.4).
// Load reads and validates them; no command passes them to pkg/index, whose
// Index.GroupSize and Index.MinLevelSize default to 4 and 5.
type LevelsConfig struct {
	// GroupSize is G: level k groups G^k consecutive level-0 entries.
	GroupSize int `yaml:"group_size" json:"group_size"`

	// MinLevelSize is M: level k is built only while the number of level-0
	// entries divided by G^k is at least M.
	MinLevelSize int `yaml:"min_level_size" json:"min_level_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a Config populated with ferrex's defaults.
func NewConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Path:             "./ferrex-index",
			SizeMB:           1024,
			FilterableFields: nil,
		},
		Levels: LevelsConfig{
			GroupSize:    4,
			MinLevelSize: 5,
		},
		Logging: LoggingConfig{
			Level:     "info",
			FilePath:  "",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// Load loads configuration, applying project config and environment
// overrides on top of the defaults. dir is the directory to search for
// a .ferrex.yaml / .ferrex.yml project file.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .ferrex.yaml or .ferrex.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".ferrex.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".ferrex.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if other.Index.SizeMB != 0 {
		c.Index.SizeMB = other.Index.SizeMB
	}
	if len(other.Index.FilterableFields) > 0 {
		c.Index.FilterableFields = other.Index.FilterableFields
	}

	if other.Levels.GroupSize != 0 {
		c.Levels.GroupSize = other.Levels.GroupSize
	}
	if other.Levels.MinLevelSize != 0 {
		c.Levels.MinLevelSize = other.Levels.MinLevelSize
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies FERREX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FERREX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("FERREX_INDEX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.SizeMB = n
		}
	}
	if v := os.Getenv("FERREX_LEVELS_GROUP_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Levels.GroupSize = n
		}
	}
	if v := os.Getenv("FERREX_LEVELS_MIN_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Levels.MinLevelSize = n
		}
	}
	if v := os.Getenv("FERREX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Index.Path == "" {
		return fmt.Errorf("index.path must not be empty")
	}
	if c.Index.SizeMB <= 0 {
		return fmt.Errorf("index.size_mb must be positive, got %d", c.Index.SizeMB)
	}
	if c.Levels.GroupSize < 2 {
		return fmt.Errorf("levels.group_size must be at least 2, got %d", c.Levels.GroupSize)
	}
	if c.Levels.MinLevelSize < 1 {
		return fmt.Errorf("levels.min_level_size must be at least 1, got %d", c.Levels.MinLevelSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
