// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"sort"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

// titleAttrs are the attr keys consulted, in order, for a span's
// display title before falling back to the first row's event name and
// finally the span id itself.
var titleAttrs = []string{"code.function", "function"}

// reconstructTree assembles the rows of one trace into a rooted
// forest. The rows must already be in storage order (timestamp, then
// insertion id) as returned by Store.RowsForTrace.
//
// Parent resolution uses only each span's first row; divergent parent
// fields on later rows are producer inconsistency and are ignored. A
// span whose recorded parent has no rows in this trace becomes a
// root, so partially delivered traces degrade instead of erroring.
func reconstructTree(traceID string, rows []trace.Row) *trace.Tree {
	tree := &trace.Tree{
		TraceID:  traceID,
		Roots:    []string{},
		Children: map[string][]string{},
		Parents:  map[string]string{},
		Titles:   map[string]string{},
		Logs:     map[string][]trace.LogEntry{},
	}

	// First pass: group rows by span in first-seen order, recording
	// each span's first row for parent and title derivation.
	var spanOrder []string
	firstRow := map[string]trace.Row{}
	for _, row := range rows {
		if _, seen := firstRow[row.SpanID]; !seen {
			spanOrder = append(spanOrder, row.SpanID)
			firstRow[row.SpanID] = row
		}
		tree.Logs[row.SpanID] = append(tree.Logs[row.SpanID], trace.LogEntry{
			TS:     row.TS,
			Level:  row.Level,
			Logger: row.Logger,
			Event:  row.Event,
			Attrs:  row.Attrs,
		})
	}

	// Second pass: adjacency. Every span gets a Children entry even
	// when it is a leaf.
	for _, spanID := range spanOrder {
		first := firstRow[spanID]
		tree.Parents[spanID] = first.ParentSpanID
		tree.Titles[spanID] = deriveTitle(first, spanID)
		tree.Children[spanID] = []string{}
	}
	for _, spanID := range spanOrder {
		parent := tree.Parents[spanID]
		if parent != "" {
			if _, present := firstRow[parent]; present {
				tree.Children[parent] = append(tree.Children[parent], spanID)
				continue
			}
		}
		tree.Roots = append(tree.Roots, spanID)
	}

	// Order siblings (and roots) by each span's first timestamp.
	// Stable sort keeps first-seen order as the tie-break, matching
	// the storage order's insertion-id tie-break.
	byFirstTS := func(spans []string) {
		sort.SliceStable(spans, func(i, j int) bool {
			return firstRow[spans[i]].TS < firstRow[spans[j]].TS
		})
	}
	byFirstTS(tree.Roots)
	for _, children := range tree.Children {
		byFirstTS(children)
	}

	return tree
}

// deriveTitle picks a human label for a span from its first row:
// an explicit function name in attrs, else the event name, else the
// span id. Never empty.
func deriveTitle(first trace.Row, spanID string) string {
	var attrs map[string]any
	if err := json.Unmarshal(first.Attrs, &attrs); err == nil {
		for _, key := range titleAttrs {
			if name, ok := attrs[key].(string); ok && name != "" {
				return name
			}
		}
	}
	if first.Event != "" {
		return first.Event
	}
	return spanID
}
