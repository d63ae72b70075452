// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the tracelens
// server.
//
// Configuration comes from a YAML file named by the TRACELENS_CONFIG
// environment variable or a --config flag. When no file is named, the
// defaults apply as-is: the server is designed to run usefully with
// zero configuration. The only substitution performed inside values
// is ${VAR} / ${VAR:-default} path expansion for portability.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the tracelens server configuration.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// Database configures trace storage.
	Database DatabaseConfig `yaml:"database"`

	// Query configures result paging.
	Query QueryConfig `yaml:"query"`

	// StaticDir is an optional directory of browser UI assets served
	// under /static/. Empty disables static serving.
	StaticDir string `yaml:"static_dir"`
}

// DatabaseConfig configures the SQLite trace store.
type DatabaseConfig struct {
	// Path is the SQLite database file. The parent directory is
	// created on startup if missing.
	Path string `yaml:"path"`

	// PoolSize is the connection pool size. Zero means the pool
	// default.
	PoolSize int `yaml:"pool_size"`
}

// QueryConfig configures paging limits for list and search.
type QueryConfig struct {
	// DefaultLimit applies when a request names no limit.
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the server-side clamp on caller-supplied limits.
	MaxLimit int `yaml:"max_limit"`
}

// Default returns the zero-configuration defaults: listen on all
// interfaces at :8000, store under ~/.config/tracelens.
func Default() *Config {
	return &Config{
		ListenAddr: "0.0.0.0:8000",
		Database: DatabaseConfig{
			Path: "${HOME}/.config/tracelens/logs.db",
		},
		Query: QueryConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
		},
	}
}

// Load loads configuration from the file named by TRACELENS_CONFIG,
// or returns the defaults when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv("TRACELENS_CONFIG")
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific YAML file, merged over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("listen_addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}
	if c.Query.DefaultLimit <= 0 {
		errs = append(errs, fmt.Errorf("query.default_limit must be positive"))
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		errs = append(errs, fmt.Errorf("query.max_limit must be >= query.default_limit"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the database parent directory (and the static
// directory if configured) so startup does not depend on manual setup.
func (c *Config) EnsurePaths() error {
	dirs := []string{filepath.Dir(c.Database.Path)}
	if c.StaticDir != "" {
		dirs = append(dirs, c.StaticDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path-valued fields.
func (c *Config) expandVariables() {
	c.Database.Path = expandVars(c.Database.Path)
	c.StaticDir = expandVars(c.StaticDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
