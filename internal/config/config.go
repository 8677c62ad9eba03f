package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	pebblestore "github.com/substack/multifeed-storage/internal/storage/pebble"
	logpkg "github.com/substack/multifeed-storage/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir         string `json:"dataDir"`
	Fsync           string `json:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs"`
	LogLevel        string `json:"logLevel"`
	LogFormat       string `json:"logFormat"`
}

// Default returns built-in defaults. DataDir is left empty; callers fall back
// to DefaultDataDir.
func Default() Config {
	return Config{
		Fsync:           "always",
		FsyncIntervalMs: 5,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported; use JSON")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := c.FsyncMode(); err != nil {
		return err
	}
	if _, err := logpkg.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if c.FsyncIntervalMs < 0 {
		return fmt.Errorf("config: negative fsyncIntervalMs")
	}
	return nil
}

// FsyncMode maps Fsync onto the storage policy.
func (c Config) FsyncMode() (pebblestore.FsyncMode, error) {
	return pebblestore.ParseFsyncMode(c.Fsync)
}

// FsyncInterval is FsyncIntervalMs as a duration.
func (c Config) FsyncInterval() time.Duration {
	return time.Duration(c.FsyncIntervalMs) * time.Millisecond
}

// Log returns the logging section.
func (c Config) Log() *logpkg.Config {
	return &logpkg.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// ResolvedDataDir returns DataDir, or DefaultDataDir when unset.
func (c Config) ResolvedDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return DefaultDataDir()
}
