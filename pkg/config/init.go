package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// sampleConfigHeader is prepended to every generated configuration file.
const sampleConfigHeader = `# Cachecore Configuration File
#
# This file configures the object cache core: logging, telemetry, metrics,
# and the cache's own tunables (fragment size, writer concurrency, retry
# cadence, registry sharding, side-buffer merge window).
#
# Environment variables override file values: CACHECORE_CORE_FRAGMENT_SIZE,
# CACHECORE_LOGGING_LEVEL, etc.

`

// InitConfig creates a sample configuration file at the default location.
// It returns the path the file was written to. If a file already exists at
// that path and force is false, InitConfig returns an error.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path. If
// a file already exists there and force is false, InitConfigToPath returns
// an error rather than overwriting it.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := GetDefaultConfig()

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config: %w", err)
	}

	content := append([]byte(sampleConfigHeader), body...)

	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
