// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace defines the wire types exchanged between emitters,
// the trace server, and query clients.
//
// Trace and span identifiers are fixed-width lowercase hex strings
// (32 characters for a trace id, 16 for a span id) produced by the
// external tracing-context provider. The server treats them as opaque
// correlation keys: it never generates, parses, or range-validates
// them, it only requires them to be present and non-empty on every
// stored row.
package trace

import "encoding/json"

// Row is the canonical stored log row. TS is an ISO-8601 string, so
// lexicographic order is chronological order; an empty TS means the
// producer supplied no timestamp and sorts first. Attrs carries every
// field the ingest normalizer did not recognize as standard, verbatim,
// as a serialized JSON object.
type Row struct {
	ID           int64           `json:"id"`
	TS           string          `json:"ts"`
	Level        string          `json:"level"`
	Logger       string          `json:"logger"`
	Event        string          `json:"event"`
	Attrs        json.RawMessage `json:"attrs"`
	TraceID      string          `json:"trace_id"`
	SpanID       string          `json:"span_id"`
	ParentSpanID string          `json:"parent_span_id"`
}

// IngestResponse reports how many rows of a batch were actually
// stored. Records rejected by the normalizer are counted out, not
// errored.
type IngestResponse struct {
	Ingested int `json:"ingested"`
}

// Summary is one entry in the trace listing: per-trace aggregate of
// earliest and latest timestamp plus row count.
type Summary struct {
	TraceID string `json:"trace_id"`
	StartTS string `json:"start_ts"`
	EndTS   string `json:"end_ts"`
	Events  int64  `json:"events"`
}

// ListResponse is the trace listing, most recently active first.
type ListResponse struct {
	Traces []Summary `json:"traces"`
}

// LogEntry is one log row inside a reconstructed trace, with attrs
// already parsed back to an object.
type LogEntry struct {
	TS     string          `json:"ts"`
	Level  string          `json:"level"`
	Logger string          `json:"logger"`
	Event  string          `json:"event"`
	Attrs  json.RawMessage `json:"attrs"`
}

// Tree is the reconstructed span forest for one trace.
//
// Invariant: every span id with at least one row appears exactly once
// as a key in Children, Titles, and Logs, and exactly once either in
// Roots or in some parent's child list — never both.
type Tree struct {
	TraceID string `json:"trace_id"`

	// Roots lists spans with no parent, or whose recorded parent has
	// no rows in this trace (partially delivered traces degrade to
	// extra roots instead of errors).
	Roots []string `json:"roots"`

	// Children maps a span id to its child span ids, ordered by each
	// child's first timestamp.
	Children map[string][]string `json:"children"`

	// Parents maps a span id to its recorded parent span id ("" for
	// none). The parent on a span's first row is authoritative;
	// divergent parents on later rows are ignored.
	Parents map[string]string `json:"parent_for_span"`

	// Titles maps a span id to its display title: the function name
	// from the span's first row's attrs, else that row's event name,
	// else the span id itself. Never empty.
	Titles map[string]string `json:"title_for_span"`

	// Logs maps a span id to its rows in timestamp order (insertion
	// order breaking ties).
	Logs map[string][]LogEntry `json:"logs_by_span"`
}

// SearchResponse is the filtered full-table search result, newest
// first.
type SearchResponse struct {
	Count   int   `json:"count"`
	Results []Row `json:"results"`
}

// StatusResponse reports server liveness and aggregate store metrics.
type StatusResponse struct {
	BatchesIngested uint64  `json:"batches_ingested"`
	RowsIngested    uint64  `json:"rows_ingested"`
	RowsRejected    uint64  `json:"rows_rejected"`
	RowCount        int64   `json:"row_count"`
	TraceCount      int64   `json:"trace_count"`
	DatabaseBytes   int64   `json:"database_bytes"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}
