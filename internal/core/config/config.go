package config

import (
	"time"

	"github.com/vietddude/armctl/internal/control"
)

// EnvBaseURL is consulted when neither the flag nor the file names a controller.
const EnvBaseURL = "PHOSPHOBOT_BASE_URL"

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Controller ControllerConfig      `yaml:"controller"`
	LimitsFile string                `yaml:"limits_file"`
	Logging    LoggingConfig         `yaml:"logging"`
	Journal    control.JournalConfig `yaml:"journal"`
	Metrics    MetricsConfig         `yaml:"metrics"`
}

// ControllerConfig holds connection and retry settings for the arm controller.
type ControllerConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries *int          `yaml:"max_retries"` // nil = default
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Jitter     float64       `yaml:"jitter"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`  // empty = stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is written in node-exporter textfile format on exit.
	Textfile string `yaml:"textfile"`
}
