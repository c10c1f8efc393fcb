// Package config loads and validates the orchestrator's daemon
// configuration from a YAML file, with environment-variable overrides for
// deployment-specific values.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"grabby-orchestrator/internal/errkind"
)

// Config is the full set of daemon settings.
type Config struct {
	DataDir           string `yaml:"data_dir"`
	DatabasePath      string `yaml:"database_path"`
	QueueStoreURL     string `yaml:"queue_store_url"`
	TotalBandwidthBps int64  `yaml:"total_bandwidth_bps"`
	MaxConcurrent     int    `yaml:"max_concurrent_downloads"`
	RetryBaseSeconds  int    `yaml:"retry_base_seconds"`
	RetryMaxSeconds   int    `yaml:"retry_max_seconds"`
	RetryMaxAttempts  int    `yaml:"retry_max_attempts"`
	ControlAddr       string `yaml:"control_addr"`
	RipmeJarPath      string `yaml:"ripme_jar_path"`
	LogLevel          string `yaml:"log_level"`

	DefaultItemBandwidthBps int64 `yaml:"default_item_bandwidth_bps"`
	GraceSecondsOnCancel    int   `yaml:"grace_seconds_on_cancel"`
	HardItemTimeoutSeconds  int   `yaml:"hard_item_timeout_seconds"`
	EventHistoryCapacity    int   `yaml:"event_history_capacity"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir:           "./data",
		DatabasePath:      "./data/orchestrator.db",
		QueueStoreURL:     "",
		TotalBandwidthBps: 0,
		MaxConcurrent:     4,
		RetryBaseSeconds:  1,
		RetryMaxSeconds:   300,
		RetryMaxAttempts:  3,
		ControlAddr:       "127.0.0.1:8732",
		LogLevel:          "info",

		DefaultItemBandwidthBps: 1 << 20,
		GraceSecondsOnCancel:    5,
		HardItemTimeoutSeconds:  3600,
		EventHistoryCapacity:    1000,
	}
}

// Load reads a YAML config file at path, falling back to defaults for any
// field the file doesn't set, then applies GRABBY_-prefixed environment
// variable overrides. A missing file is not an error: defaults are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, errkind.Wrap(errkind.ConfigurationInvalid, "read config file", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errkind.Wrap(errkind.ConfigurationInvalid, "parse config file", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRABBY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GRABBY_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("GRABBY_QUEUE_STORE_URL"); v != "" {
		cfg.QueueStoreURL = v
	}
	if v := os.Getenv("GRABBY_CONTROL_ADDR"); v != "" {
		cfg.ControlAddr = v
	}
	if v := os.Getenv("GRABBY_TOTAL_BANDWIDTH_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TotalBandwidthBps = n
		}
	}
	if v := os.Getenv("GRABBY_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv("GRABBY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GRABBY_DEFAULT_ITEM_BANDWIDTH_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DefaultItemBandwidthBps = n
		}
	}
	if v := os.Getenv("GRABBY_GRACE_SECONDS_ON_CANCEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GraceSecondsOnCancel = n
		}
	}
	if v := os.Getenv("GRABBY_HARD_ITEM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HardItemTimeoutSeconds = n
		}
	}
	if v := os.Getenv("GRABBY_EVENT_HISTORY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EventHistoryCapacity = n
		}
	}
}

// Validate reports a ConfigurationInvalid error for settings that would
// leave the daemon unable to function.
func (c Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return errkind.New(errkind.ConfigurationInvalid, "max_concurrent_downloads must be positive")
	}
	if c.TotalBandwidthBps < 0 {
		return errkind.New(errkind.ConfigurationInvalid, "total_bandwidth_bps must not be negative")
	}
	if c.RetryMaxAttempts < 0 {
		return errkind.New(errkind.ConfigurationInvalid, "retry_max_attempts must not be negative")
	}
	if c.ControlAddr == "" {
		return errkind.New(errkind.ConfigurationInvalid, "control_addr must not be empty")
	}
	if c.DefaultItemBandwidthBps <= 0 {
		return errkind.New(errkind.ConfigurationInvalid, "default_item_bandwidth_bps must be positive")
	}
	if c.GraceSecondsOnCancel < 0 {
		return errkind.New(errkind.ConfigurationInvalid, "grace_seconds_on_cancel must not be negative")
	}
	if c.HardItemTimeoutSeconds < 0 {
		return errkind.New(errkind.ConfigurationInvalid, "hard_item_timeout_seconds must not be negative")
	}
	if c.EventHistoryCapacity <= 0 {
		return errkind.New(errkind.ConfigurationInvalid, "event_history_capacity must be positive")
	}
	return nil
}
