// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// clientConfig is the viewer's configuration, read from
// ~/.config/tracelens/client.jsonc. The file is JSONC so users can
// annotate their settings; a missing file means defaults.
type clientConfig struct {
	// Server is the tracelens server base URL.
	Server string `json:"server"`

	// Color is "auto", "always", or "never". Auto enables color only
	// on a terminal.
	Color string `json:"color"`
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		Server: "http://127.0.0.1:8000",
		Color:  "auto",
	}
}

// loadClientConfig reads the config at path, or the default location
// when path is empty. A missing file is not an error.
func loadClientConfig(path string) (*clientConfig, error) {
	cfg := defaultClientConfig()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".config", "tracelens", "client.jsonc")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading client config %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing client config %s: %w", path, err)
	}

	switch cfg.Color {
	case "auto", "always", "never":
	default:
		return nil, fmt.Errorf("client config %s: color must be auto, always, or never, got %q", path, cfg.Color)
	}
	return cfg, nil
}
