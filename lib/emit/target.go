// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tracelens/tracelens/lib/clock"
)

// TargetKind identifies the delivery mode a target string resolved to.
type TargetKind int

const (
	// KindConsole writes one JSON record per line to standard output.
	KindConsole TargetKind = iota

	// KindRemote posts batches to an HTTP ingest endpoint.
	KindRemote

	// KindLocalFile appends one JSON record per line to a file.
	KindLocalFile
)

// Target is a resolved delivery destination. Exactly one of Endpoint
// or Path is set, matching Kind.
type Target struct {
	Kind     TargetKind
	Endpoint string
	Path     string
}

// timestampPlaceholder in a file target is substituted with the
// resolution-time clock reading, so repeated runs land in distinct
// files without the caller formatting anything.
const timestampPlaceholder = "<YYYYMMDD_HHMMSS>"

// ResolveTarget turns a target string into a Target. Resolution runs
// once, at buffer construction.
//
// Priority: the explicit argument, then the TRACELENS_TARGET
// environment variable, then the console. An empty string or "-"
// means console; an http:// or https:// URL means remote; anything
// else is a file path. File paths get "~" expanded, the timestamp
// placeholder substituted, and parent directories created.
func ResolveTarget(explicit string, clk clock.Clock) (Target, error) {
	spec := explicit
	if spec == "" {
		spec = os.Getenv("TRACELENS_TARGET")
	}
	if spec == "" || spec == "-" {
		return Target{Kind: KindConsole}, nil
	}
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		return Target{Kind: KindRemote, Endpoint: spec}, nil
	}

	path, err := expandHome(spec)
	if err != nil {
		return Target{}, err
	}
	if strings.Contains(path, timestampPlaceholder) {
		stamp := clk.Now().Format("20060102_150405")
		path = strings.ReplaceAll(path, timestampPlaceholder, stamp)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Target{}, fmt.Errorf("emit: creating sink directory %s: %w", dir, err)
		}
	}
	return Target{Kind: KindLocalFile, Path: path}, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("emit: expanding %q: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
