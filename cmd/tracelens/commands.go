// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// commandFlags builds the flag set shared by every subcommand:
// server selection and color mode, defaulted from the client config.
func commandFlags(name string, cfg *clientConfig) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.StringVar(&cfg.Server, "server", cfg.Server, "tracelens server base URL")
	flags.StringVar(&cfg.Color, "color", cfg.Color, "color output: auto, always, never")
	return flags
}

func runList(ctx context.Context, cfg *clientConfig, args []string) error {
	flags := commandFlags("list", cfg)
	limit := flags.IntP("limit", "n", 0, "maximum traces to list (server default when 0)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	client := NewClient(cfg.Server)
	summaries, err := client.ListTraces(ctx, *limit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no traces stored")
		return nil
	}
	newRenderer(os.Stdout, cfg.Color).traceTable(summaries)
	return nil
}

func runShow(ctx context.Context, cfg *clientConfig, args []string) error {
	flags := commandFlags("show", cfg)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: tracelens show <trace-id>")
	}
	traceID := flags.Arg(0)

	client := NewClient(cfg.Server)
	tree, err := client.GetTrace(ctx, traceID)
	if errors.Is(err, ErrTraceNotFound) {
		return fmt.Errorf("trace %s: not found on %s", traceID, cfg.Server)
	}
	if err != nil {
		return err
	}
	newRenderer(os.Stdout, cfg.Color).tree(tree)
	return nil
}

func runSearch(ctx context.Context, cfg *clientConfig, args []string) error {
	flags := commandFlags("search", cfg)
	var params SearchParams
	flags.StringVar(&params.Level, "level", "", "exact severity level match")
	flags.StringVar(&params.EventSubstring, "event", "", "event name substring match")
	flags.StringVar(&params.Since, "since", "", "inclusive lower ISO-8601 timestamp bound")
	flags.StringVar(&params.Until, "until", "", "inclusive upper ISO-8601 timestamp bound")
	flags.IntVarP(&params.Limit, "limit", "n", 0, "maximum rows (server default when 0)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	client := NewClient(cfg.Server)
	result, err := client.Search(ctx, params)
	if err != nil {
		return err
	}
	newRenderer(os.Stdout, cfg.Color).searchResults(result)
	return nil
}
