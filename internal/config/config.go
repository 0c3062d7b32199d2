// Package config handles global Vellum configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultSuggestionDistance is the edit-distance ceiling for attaching an
// enum-value suggestion to an invalid-option issue.
const DefaultSuggestionDistance = 2

// DefaultWorkers bounds the discovery and auto-fix worker pools.
const DefaultWorkers = 8

// Config is the global Vellum configuration from config.toml.
type Config struct {
	// Vault is the default vault root, used when --vault and VLM_VAULT are
	// both absent.
	Vault string `toml:"vault"`

	// Editor is the editor used for opening files (defaults to $EDITOR).
	Editor string `toml:"editor"`

	// ExcludedDirectories are extra directory names skipped during scans.
	ExcludedDirectories []string `toml:"excluded_directories"`

	// SuggestionDistance overrides the edit-distance ceiling for
	// invalid-option suggestions. Zero means the default.
	SuggestionDistance int `toml:"suggestion_distance"`

	// Workers overrides the worker-pool bound. Zero means the default.
	Workers int `toml:"workers"`
}

// Path returns the config file location: $VLM_CONFIG if set, else
// ~/.config/vellum/config.toml.
func Path() (string, error) {
	if p := os.Getenv("VLM_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vellum", "config.toml"), nil
}

// Load reads the global config. A missing file yields an empty config.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the global config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
