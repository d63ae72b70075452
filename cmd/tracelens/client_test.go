// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

func TestClientListTraces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/traces" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %s", r.URL.Query().Get("limit"))
		}
		json.NewEncoder(w).Encode(trace.ListResponse{
			Traces: []trace.Summary{{TraceID: "t1", Events: 2}},
		})
	}))
	defer server.Close()

	summaries, err := NewClient(server.URL).ListTraces(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListTraces: %v", err)
	}
	if len(summaries) != 1 || summaries[0].TraceID != "t1" {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestClientGetTraceNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GetTrace(context.Background(), "nope")
	if !errors.Is(err, ErrTraceNotFound) {
		t.Fatalf("err = %v, want ErrTraceNotFound", err)
	}
}

func TestClientSearchSendsFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("level") != "error" || q.Get("event") != "db" || q.Get("since") != "2026-03-01" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(trace.SearchResponse{Count: 0, Results: []trace.Row{}})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Search(context.Background(), SearchParams{
		Level:          "error",
		EventSubstring: "db",
		Since:          "2026-03-01",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
}
