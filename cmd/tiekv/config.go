package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the session configuration
type Config struct {
	Prompt string    `yaml:"prompt"`  // Interactive prompt
	LogDir string    `yaml:"log_dir"` // Session log directory, empty for the default
	Ties   []TieSpec `yaml:"ties"`    // Variables to tie before the first prompt
}

// TieSpec describes one variable to tie at startup
type TieSpec struct {
	Name     string `yaml:"name"`      // Variable name
	Path     string `yaml:"path"`      // Database file
	ReadOnly bool   `yaml:"read_only"` // Open the file without write access
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() Config {
	return Config{
		Prompt: "tiekv> ",
	}
}

// LoadConfig reads the config file and applies environment overrides.
//
// The file is looked up in order: the explicit path argument, TIEKV_CONFIG,
// then ~/.tiekv/config.yaml. Only an explicitly named file is required to
// exist, the fallbacks are optional.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("TIEKV_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".tiekv", "config.yaml")
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case explicit || !errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if v := getenv("TIEKV_PROMPT", ""); v != "" {
		cfg.Prompt = v
	}
	if v := getenv("TIEKV_LOG_DIR", ""); v != "" {
		cfg.LogDir = v
	}
	return cfg, nil
}

// getenv retrieves an environment variable with a default fallback
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
