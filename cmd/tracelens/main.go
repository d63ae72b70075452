// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

// tracelens is the terminal viewer for a tracelens server: it lists
// recent traces, renders one trace as a span tree, and searches the
// stored rows.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tracelens/tracelens/lib/process"
	"github.com/tracelens/tracelens/lib/version"
)

const usage = `tracelens - browse traces on a tracelens server

Usage:
  tracelens list [--limit N]
  tracelens show <trace-id>
  tracelens search [--level L] [--event SUBSTR] [--since TS] [--until TS] [--limit N]
  tracelens version

Global flags:
  --server URL   server base URL (default from client config, else http://127.0.0.1:8000)

The client configuration lives at ~/.config/tracelens/client.jsonc and
may contain comments.`

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("a subcommand is required")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	case "version", "--version":
		version.Print("tracelens")
		return nil
	}

	cfg, err := loadClientConfig("")
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch command {
	case "list":
		return runList(ctx, cfg, rest)
	case "show":
		return runShow(ctx, cfg, rest)
	case "search":
		return runSearch(ctx, cfg, rest)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
