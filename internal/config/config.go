// Package config loads the optional ~/.datasmith/config.toml server
// defaults file. Repurposed from the teacher's internal/parser/toml
// (decode-a-TOML-document-into-a-struct pattern) for an application
// config file rather than a user-authored DDL schema.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds server-wide defaults, all independently optional — a
// missing or absent file yields Defaults() unchanged.
type Config struct {
	Server ServerConfig `toml:"server"`
}

// ServerConfig holds the [server] table of config.toml.
type ServerConfig struct {
	DefaultPageSize int    `toml:"default_page_size"`
	FakerLocale     string `toml:"faker_locale"`
	SQLTimeoutSecs  int    `toml:"sql_timeout_seconds"`
	LogRetainLines  int    `toml:"log_retain_lines"`
}

// Defaults returns the configuration used when no config.toml is present
// or a field is left unset in one that is.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			DefaultPageSize: 100,
			FakerLocale:     "en",
			SQLTimeoutSecs:  10,
			LogRetainLines:  200,
		},
	}
}

// DefaultPath returns ~/.datasmith/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".datasmith", "config.toml"), nil
}

// Load reads path and overlays it on top of Defaults(); a missing file is
// not an error — the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %q: %w", path, err)
	}

	if cfg.Server.DefaultPageSize <= 0 {
		cfg.Server.DefaultPageSize = Defaults().Server.DefaultPageSize
	}
	if cfg.Server.SQLTimeoutSecs <= 0 {
		cfg.Server.SQLTimeoutSecs = Defaults().Server.SQLTimeoutSecs
	}
	if cfg.Server.LogRetainLines <= 0 {
		cfg.Server.LogRetainLines = Defaults().Server.LogRetainLines
	}
	if cfg.Server.FakerLocale == "" {
		cfg.Server.FakerLocale = Defaults().Server.FakerLocale
	}

	return cfg, nil
}
