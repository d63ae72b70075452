// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"time"

	"github.com/tracelens/tracelens/lib/clock"
	"github.com/tracelens/tracelens/lib/record"
)

// Stamper is a minimal Enricher for emitters that run without a full
// event pipeline: it stamps the timestamp and, when a Spanner is
// attached, the tracing identifiers. Fields already present on a
// record are left alone.
type Stamper struct {
	clk     clock.Clock
	spanner Spanner

	// compatTimestamp selects the legacy "timestamp" field name
	// instead of "ts", for stores that predate the rename. Fixed at
	// construction.
	compatTimestamp bool
}

// NewStamper creates a Stamper. The spanner may be nil for untraced
// emitters.
func NewStamper(clk clock.Clock, spanner Spanner, compatTimestamp bool) *Stamper {
	return &Stamper{clk: clk, spanner: spanner, compatTimestamp: compatTimestamp}
}

// Enrich stamps rec in place.
func (s *Stamper) Enrich(rec *record.Record) {
	tsField := record.FieldTimestamp
	if s.compatTimestamp {
		tsField = "timestamp"
	}
	if _, ok := rec.Get(tsField); !ok {
		rec.Set(tsField, s.clk.Now().UTC().Format(time.RFC3339Nano))
	}

	if s.spanner == nil {
		return
	}
	traceID := s.spanner.TraceID()
	spanID := s.spanner.SpanID()
	if traceID == "" || spanID == "" {
		return
	}
	if _, ok := rec.Get(record.FieldTraceID); !ok {
		rec.Set(record.FieldTraceID, traceID)
	}
	if _, ok := rec.Get(record.FieldSpanID); !ok {
		rec.Set(record.FieldSpanID, spanID)
	}
	if parent := s.spanner.ParentSpanID(); parent != "" {
		if _, ok := rec.Get(record.FieldParentSpanID); !ok {
			rec.Set(record.FieldParentSpanID, parent)
		}
	}
}
