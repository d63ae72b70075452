// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadClientConfigParsesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.jsonc")
	content := `{
	// local dev server
	"server": "http://dev.example:8000",
	"color": "never", // piping into less
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadClientConfig(path)
	if err != nil {
		t.Fatalf("loadClientConfig: %v", err)
	}
	if cfg.Server != "http://dev.example:8000" || cfg.Color != "never" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadClientConfigMissingFileMeansDefaults(t *testing.T) {
	cfg, err := loadClientConfig(filepath.Join(t.TempDir(), "absent.jsonc"))
	if err != nil {
		t.Fatalf("loadClientConfig: %v", err)
	}
	if cfg.Server != "http://127.0.0.1:8000" || cfg.Color != "auto" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadClientConfigRejectsBadColorMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.jsonc")
	if err := os.WriteFile(path, []byte(`{"color": "sometimes"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadClientConfig(path); err == nil {
		t.Fatal("accepted invalid color mode")
	}
}
