// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

// handleIngest accepts a JSON array of arbitrary event records,
// normalizes each, and stores the valid ones atomically. The response
// counts rows actually stored; records missing their identifiers are
// skipped, not errored, so one bad producer cannot poison a batch.
//
// Bodies may be gzip-compressed (Content-Encoding: gzip); emitters
// compress large batches.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body := io.Reader(r.Body)
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid gzip body")
			return
		}
		defer zr.Close()
		body = zr
	}

	decoder := json.NewDecoder(body)
	// Numbers stay json.Number so attrs round-trip without float
	// reformatting.
	decoder.UseNumber()

	var batch []map[string]any
	if err := decoder.Decode(&batch); err != nil {
		httpError(w, http.StatusBadRequest, "body must be a JSON array of records")
		return
	}

	rows := make([]trace.Row, 0, len(batch))
	rejected := 0
	for _, raw := range batch {
		row, ok := normalizeRecord(raw)
		if !ok {
			rejected++
			continue
		}
		rows = append(rows, row)
	}

	inserted, err := s.store.InsertRows(r.Context(), rows)
	if err != nil {
		s.logger.Error("ingest failed", "rows", len(rows), "error", err)
		httpError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	s.batchesIngested.Add(1)
	s.rowsIngested.Add(uint64(inserted))
	s.rowsRejected.Add(uint64(rejected))

	if rejected > 0 {
		s.logger.Warn("batch contained unidentifiable records",
			"stored", inserted, "rejected", rejected)
	}

	writeJSON(w, http.StatusOK, trace.IngestResponse{Ingested: inserted})
}
