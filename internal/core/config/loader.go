package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/armctl/internal/control"
	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/infra/rpc"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.UnmarshalStrict([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Relative limits files are resolved against the config file.
	if cfg.LimitsFile != "" && !filepath.IsAbs(cfg.LimitsFile) {
		cfg.LimitsFile = filepath.Join(filepath.Dir(path), cfg.LimitsFile)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOptional is Load for a file that may not exist; a missing file yields
// the defaults.
func LoadOptional(path string) (*AppConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &AppConfig{}
		applyDefaults(cfg)
		return cfg, nil
	}
	return cfg, err
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Controller.Timeout == 0 {
		cfg.Controller.Timeout = control.DefaultTimeout
	}
	if cfg.Controller.MaxRetries == nil {
		n := control.DefaultMaxRetries
		cfg.Controller.MaxRetries = &n
	}
	if cfg.Controller.BaseDelay == 0 {
		cfg.Controller.BaseDelay = rpc.DefaultBaseDelay
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 10
	}
}

// ResolveBaseURL picks the controller URL: flag, then config file, then the
// PHOSPHOBOT_BASE_URL environment variable. An empty result is returned as
// is; Session construction reports it.
func ResolveBaseURL(flag string, cfg *AppConfig) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	if cfg != nil {
		if v := strings.TrimSpace(cfg.Controller.BaseURL); v != "" {
			return v
		}
	}
	return strings.TrimSpace(os.Getenv(EnvBaseURL))
}

// LoadLimitsFile reads an envelope from a YAML or JSON object keyed by axis
// name:
//
//	x_cm: {min: -30, max: 30}
//	grip: {min: 0, max: 100}
//
// All seven axes must be present.
func LoadLimitsFile(path string) (domain.Limits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Limits{}, &domain.Error{
			Kind:    domain.KindConfiguration,
			Message: fmt.Sprintf("read limits file %s", path),
			Err:     err,
		}
	}

	ranges := make(map[string]domain.Range)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &ranges)
	} else {
		err = yaml.UnmarshalStrict(data, &ranges)
	}
	if err != nil {
		return domain.Limits{}, &domain.Error{
			Kind:    domain.KindConfiguration,
			Message: fmt.Sprintf("parse limits file %s", path),
			Err:     err,
		}
	}

	return domain.LimitsFromNames(ranges)
}
