// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(StoreConfig{
		Path:     filepath.Join(t.TempDir(), "logs.db"),
		PoolSize: 2,
		Logger:   slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func row(ts, level, event, traceID, spanID, parentID string) trace.Row {
	return trace.Row{
		TS:           ts,
		Level:        level,
		Logger:       "test",
		Event:        event,
		Attrs:        []byte("{}"),
		TraceID:      traceID,
		SpanID:       spanID,
		ParentSpanID: parentID,
	}
}

func TestRowsForTraceOrdersByTimestampThenInsertion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows := []trace.Row{
		row("2026-03-01T12:00:02Z", "info", "late", "t1", "a", ""),
		row("2026-03-01T12:00:01Z", "info", "tied-first", "t1", "a", ""),
		row("2026-03-01T12:00:01Z", "info", "tied-second", "t1", "a", ""),
		row("", "info", "undated", "t1", "a", ""),
	}
	if _, err := store.InsertRows(ctx, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	got, err := store.RowsForTrace(ctx, "t1")
	if err != nil {
		t.Fatalf("RowsForTrace: %v", err)
	}
	wantOrder := []string{"undated", "tied-first", "tied-second", "late"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d rows, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].Event != want {
			t.Fatalf("row %d event = %q, want %q", i, got[i].Event, want)
		}
	}
}

func TestRowsForTraceUnknownIDIsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.RowsForTrace(context.Background(), "no-such-trace")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListTracesOrdersByRecentActivity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows := []trace.Row{
		row("2026-03-01T12:00:00Z", "info", "a", "older", "s1", ""),
		row("2026-03-01T12:00:05Z", "info", "b", "older", "s1", ""),
		row("2026-03-01T12:00:09Z", "info", "c", "newer", "s2", ""),
	}
	if _, err := store.InsertRows(ctx, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	summaries, err := store.ListTraces(ctx, 10)
	if err != nil {
		t.Fatalf("ListTraces: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].TraceID != "newer" || summaries[1].TraceID != "older" {
		t.Fatalf("order = %s, %s", summaries[0].TraceID, summaries[1].TraceID)
	}
	if summaries[1].StartTS != "2026-03-01T12:00:00Z" || summaries[1].EndTS != "2026-03-01T12:00:05Z" {
		t.Fatalf("older summary = %+v", summaries[1])
	}
	if summaries[1].Events != 2 {
		t.Fatalf("older event count = %d", summaries[1].Events)
	}

	limited, err := store.ListTraces(ctx, 1)
	if err != nil {
		t.Fatalf("ListTraces limited: %v", err)
	}
	if len(limited) != 1 || limited[0].TraceID != "newer" {
		t.Fatalf("limited = %+v", limited)
	}
}

func TestSearchConjunctiveFiltersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows := []trace.Row{
		row("2026-03-01T12:00:01Z", "error", "db connect failed", "t1", "a", ""),
		row("2026-03-01T12:00:02Z", "info", "db connect ok", "t1", "a", ""),
		row("2026-03-01T12:00:03Z", "error", "cache miss", "t2", "b", ""),
		row("2026-03-01T12:00:04Z", "error", "db query failed", "t2", "b", ""),
	}
	if _, err := store.InsertRows(ctx, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	results, err := store.Search(ctx, SearchQuery{Level: "error", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("level filter returned %d rows, want 3", len(results))
	}
	if results[0].Event != "db query failed" {
		t.Fatalf("first result = %q, want newest", results[0].Event)
	}

	results, err = store.Search(ctx, SearchQuery{
		Level:          "error",
		EventSubstring: "db",
		Since:          "2026-03-01T12:00:02Z",
		Limit:          10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Event != "db query failed" {
		t.Fatalf("conjunctive filter = %+v", results)
	}
}

func TestSearchEscapesLikeMetacharacters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows := []trace.Row{
		row("2026-03-01T12:00:01Z", "info", "progress 100%", "t1", "a", ""),
		row("2026-03-01T12:00:02Z", "info", "progress 100 pct", "t1", "a", ""),
	}
	if _, err := store.InsertRows(ctx, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	results, err := store.Search(ctx, SearchQuery{EventSubstring: "100%", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Event != "progress 100%" {
		t.Fatalf("results = %+v", results)
	}
}

func TestStatsCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows := []trace.Row{
		row("2026-03-01T12:00:01Z", "info", "a", "t1", "s1", ""),
		row("2026-03-01T12:00:02Z", "info", "b", "t1", "s1", ""),
		row("2026-03-01T12:00:03Z", "info", "c", "t2", "s2", ""),
	}
	if _, err := store.InsertRows(ctx, rows); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.RowCount != 3 || stats.TraceCount != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}
