package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment" yaml:"environment"`
	Storage     StorageConfig  `toml:"storage" yaml:"storage"`
	Logging     LoggingConfig  `toml:"logging" yaml:"logging"`
	Chunking    ChunkingConfig `toml:"chunking" yaml:"chunking"`
	Cache       CacheConfig    `toml:"cache" yaml:"cache"`
	Index       IndexConfig    `toml:"index" yaml:"index"`
	Search      SearchConfig   `toml:"search" yaml:"search"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Output []string `toml:"output" yaml:"output"` // "stdout", "file"
}

// ChunkingConfig holds the default chunking parameters applied when an
// ingest call does not specify its own.
type ChunkingConfig struct {
	Size    int    `toml:"size" yaml:"size" validate:"gt=0"`
	Overlap int    `toml:"overlap" yaml:"overlap" validate:"gte=0"`
	Mode    string `toml:"mode" yaml:"mode" validate:"oneof=fixed structure"`
}

// CacheConfig configures the two cache tiers independently.
type CacheConfig struct {
	Metadata CacheTierConfig `toml:"metadata" yaml:"metadata"`
	Chunks   CacheTierConfig `toml:"chunks" yaml:"chunks"`
}

type CacheTierConfig struct {
	MaxEntries int           `toml:"max_entries" yaml:"max_entries" validate:"gt=0"`
	TTL        time.Duration `toml:"ttl" yaml:"ttl" validate:"gt=0"`
}

// IndexConfig configures the inverted index builder and its refresher.
type IndexConfig struct {
	// RefreshInterval rate-limits full rebuilds: a rebuild requested
	// within this window of the last completed rebuild is a no-op.
	RefreshInterval time.Duration `toml:"refresh_interval" yaml:"refresh_interval" validate:"gt=0"`

	// Workers bounds the rebuild fan-out pool. Zero means auto
	// (2 x GOMAXPROCS, capped at 8).
	Workers int `toml:"workers" yaml:"workers" validate:"gte=0"`

	// Schedule is a cron expression for periodic background rebuilds.
	// Empty disables the scheduled refresh.
	Schedule string `toml:"schedule" yaml:"schedule"`
}

// SearchConfig contains default query behavior.
type SearchConfig struct {
	TopK     int     `toml:"top_k" yaml:"top_k" validate:"gt=0"`
	MinScore float64 `toml:"min_score" yaml:"min_score" validate:"gte=0"`
}

// DefaultConfig returns the built-in configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/recall",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
			Mode:    "structure",
		},
		Cache: CacheConfig{
			Metadata: CacheTierConfig{MaxEntries: 256, TTL: 10 * time.Minute},
			Chunks:   CacheTierConfig{MaxEntries: 64, TTL: 5 * time.Minute},
		},
		Index: IndexConfig{
			RefreshInterval: 30 * time.Second,
			Schedule:        "@every 1m",
		},
		Search: SearchConfig{
			TopK: 3,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 ->
// file2 -> ... -> env. Later files override earlier ones. TOML and YAML
// files are recognized by extension.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		default:
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies RECALL_* environment variables on top of the
// loaded configuration.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RECALL_ENV"); env != "" {
		config.Environment = env
	}
	if path := os.Getenv("RECALL_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("RECALL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("RECALL_LOG_OUTPUT"); output != "" {
		config.Logging.Output = strings.Split(output, ",")
	}
	if size := os.Getenv("RECALL_CHUNK_SIZE"); size != "" {
		if v, err := strconv.Atoi(size); err == nil {
			config.Chunking.Size = v
		}
	}
	if overlap := os.Getenv("RECALL_CHUNK_OVERLAP"); overlap != "" {
		if v, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.Overlap = v
		}
	}
	if interval := os.Getenv("RECALL_INDEX_REFRESH_INTERVAL"); interval != "" {
		if v, err := time.ParseDuration(interval); err == nil {
			config.Index.RefreshInterval = v
		}
	}
}

// Validate checks structural constraints on the configuration.
func Validate(config *Config) error {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// Cross-field constraint validator tags can't express cleanly
	if config.Chunking.Overlap >= config.Chunking.Size {
		return fmt.Errorf("invalid configuration: chunk overlap (%d) must be smaller than chunk size (%d)",
			config.Chunking.Overlap, config.Chunking.Size)
	}
	return nil
}
