// Package config loads the kektorsnb YAML configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sanonone/kektorsnb/pkg/engine"
	"gopkg.in/yaml.v3"
)

// Config is the full server, loader and driver configuration.
type Config struct {
	// DataDir holds the transaction log and snapshots. Empty runs in memory.
	DataDir              string        `yaml:"data_dir"`
	AofFilename          string        `yaml:"aof_filename" validate:"required_with=DataDir"`
	SyncEveryCommit      bool          `yaml:"sync_every_commit"`
	AutoSaveInterval     time.Duration `yaml:"auto_save_interval" validate:"gte=0"`
	AutoSaveThreshold    int64         `yaml:"auto_save_threshold" validate:"gte=0"`
	AofRewritePercentage int           `yaml:"aof_rewrite_percentage" validate:"gte=0"`

	HTTPAddr  string `yaml:"http_addr" validate:"required"`
	AuthToken string `yaml:"auth_token"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	// Tuning is passed to the operation dispatcher, e.g. "ic13.maxHops": "4".
	Tuning map[string]string `yaml:"tuning"`

	Loader LoaderConfig `yaml:"loader"`
	Driver DriverConfig `yaml:"driver"`
}

// LoaderConfig configures the CSV bulk loader.
type LoaderConfig struct {
	BatchSize int `yaml:"batch_size" validate:"gt=0"`
}

// DriverConfig configures the workload driver.
type DriverConfig struct {
	Workers int `yaml:"workers" validate:"gt=0"`
}

// DefaultConfig returns a working configuration persisting under ./data.
func DefaultConfig() Config {
	opts := engine.DefaultOptions("data")
	return Config{
		DataDir:              opts.DataDir,
		AofFilename:          opts.AofFilename,
		AutoSaveInterval:     opts.AutoSaveInterval,
		AutoSaveThreshold:    opts.AutoSaveThreshold,
		AofRewritePercentage: opts.AofRewritePercentage,

		HTTPAddr: ":9091",

		LogLevel:  "info",
		LogFormat: "text",

		Tuning: map[string]string{},

		Loader: LoaderConfig{BatchSize: 50000},
		Driver: DriverConfig{Workers: 4},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the YAML file at path over the defaults using strict parsing.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
			return cfg, fmt.Errorf("YAML syntax error in config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EngineOptions maps the persistence settings onto engine options.
func (c Config) EngineOptions() engine.Options {
	if c.DataDir == "" {
		return engine.InMemoryOptions()
	}
	opts := engine.DefaultOptions(c.DataDir)
	opts.AofFilename = c.AofFilename
	opts.SyncEveryCommit = c.SyncEveryCommit
	opts.AutoSaveInterval = c.AutoSaveInterval
	opts.AutoSaveThreshold = c.AutoSaveThreshold
	opts.AofRewritePercentage = c.AofRewritePercentage
	return opts
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
