// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

// handleListTraces serves GET /api/traces: per-trace aggregates,
// most recently active first.
func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	limit := s.clampLimit(r.URL.Query().Get("limit"))
	summaries, err := s.store.ListTraces(r.Context(), limit)
	if err != nil {
		s.logger.Error("trace listing failed", "error", err)
		httpError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, trace.ListResponse{Traces: summaries})
}

// handleGetTrace serves GET /api/trace/{id}: the reconstructed span
// forest. An unknown id is 404, distinct from an empty-but-known
// trace, which cannot occur (a trace exists only through its rows).
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	traceID := r.PathValue("id")
	rows, err := s.store.RowsForTrace(r.Context(), traceID)
	if errors.Is(err, ErrNotFound) {
		httpError(w, http.StatusNotFound, "trace not found")
		return
	}
	if err != nil {
		s.logger.Error("trace fetch failed", "trace_id", traceID, "error", err)
		httpError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, reconstructTree(traceID, rows))
}

// handleSearch serves GET /api/search with conjunctive filters:
// level (exact), event (substring), since/until (inclusive ISO-8601
// bounds). Results are newest first.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := SearchQuery{
		Level:          params.Get("level"),
		EventSubstring: params.Get("event"),
		Since:          params.Get("since"),
		Until:          params.Get("until"),
		Limit:          s.clampLimit(params.Get("limit")),
	}
	results, err := s.store.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		httpError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, trace.SearchResponse{
		Count:   len(results),
		Results: results,
	})
}

// handleStatus serves GET /api/status: ingest counters, store
// aggregates, uptime.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		httpError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, trace.StatusResponse{
		BatchesIngested: s.batchesIngested.Load(),
		RowsIngested:    s.rowsIngested.Load(),
		RowsRejected:    s.rowsRejected.Load(),
		RowCount:        stats.RowCount,
		TraceCount:      stats.TraceCount,
		DatabaseBytes:   stats.SizeBytes,
		UptimeSeconds:   s.clock.Now().Sub(s.startedAt).Seconds(),
	})
}

// clampLimit parses a limit query parameter and clamps it to the
// configured bounds. Absent or unparsable values get the default.
func (s *Server) clampLimit(raw string) int {
	limit := s.cfg.Query.DefaultLimit
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > s.cfg.Query.MaxLimit {
		limit = s.cfg.Query.MaxLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
