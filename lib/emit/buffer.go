// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"context"

	"github.com/tracelens/tracelens/lib/record"
)

// Deliverer dispatches one drained batch. The Router implements it;
// tests substitute a recording fake.
type Deliverer interface {
	Deliver(ctx context.Context, batch []*record.Record) DeliveryResult
}

// Spanner is the tracing-context provider boundary. Implementations
// own identifier generation and the notion of a current span; the
// buffer only consumes the identifiers.
type Spanner interface {
	// TraceID returns the current trace identifier, or "" when no
	// trace is active.
	TraceID() string

	// SpanID returns the current span identifier, or "".
	SpanID() string

	// ParentSpanID returns the current span's parent, or "".
	ParentSpanID() string

	// StartSpan enters a new span named name and returns a function
	// that ends it.
	StartSpan(name string) (end func())
}

// Enricher stamps pipeline-level fields (timestamp, severity, tracing
// identifiers) onto a record before it is buffered. Configuration
// such as legacy field naming is fixed at the implementation's
// construction, never read from process globals.
type Enricher interface {
	Enrich(rec *record.Record)
}

// Buffer accumulates records for one traced unit of work. Insertion
// order is preserved end to end; the server uses it to break
// timestamp ties during reconstruction.
//
// Not safe for concurrent use. One buffer per logical execution
// context.
type Buffer struct {
	name      string
	deliverer Deliverer
	enricher  Enricher
	records   []*record.Record
}

// NewBuffer creates a buffer that flushes through deliverer. The name
// becomes the logger field on appended records that lack one. The
// enricher may be nil when records arrive already enriched.
func NewBuffer(name string, deliverer Deliverer, enricher Enricher) *Buffer {
	return &Buffer{name: name, deliverer: deliverer, enricher: enricher}
}

// Name returns the buffer's logical name.
func (b *Buffer) Name() string { return b.name }

// Append enriches rec (when an enricher is configured), stamps the
// buffer name as the logger when the record carries none, and adds it
// to the sequence. No deduplication, no size cap: traces are
// short-lived and bounded by the unit of work.
func (b *Buffer) Append(rec *record.Record) {
	if b.enricher != nil {
		b.enricher.Enrich(rec)
	}
	if b.name != "" {
		if _, ok := rec.Get(record.FieldLogger); !ok {
			rec.Set(record.FieldLogger, b.name)
		}
	}
	b.records = append(b.records, rec)
}

// Clear empties the buffer. Called at the start of a new trace scope
// so records never leak across unrelated units of work.
func (b *Buffer) Clear() {
	b.records = nil
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int { return len(b.records) }

// Snapshot returns a copy of the current contents without mutating
// the buffer. The records themselves are shared; callers must not
// modify them.
func (b *Buffer) Snapshot() []*record.Record {
	out := make([]*record.Record, len(b.records))
	copy(out, b.records)
	return out
}

// Drain returns the accumulated batch and, when clearAfter is set,
// empties the buffer. The returned slice is the buffer's own backing
// when clearAfter is true, a copy otherwise.
func (b *Buffer) Drain(clearAfter bool) []*record.Record {
	if clearAfter {
		batch := b.records
		b.records = nil
		return batch
	}
	return b.Snapshot()
}

// Flush drains the buffer and delivers the batch. The buffer is
// cleared only after delivery resolves, so a failed remote send still
// has the full batch available to the fallback path.
func (b *Buffer) Flush(ctx context.Context, clearAfter bool) DeliveryResult {
	batch := b.Drain(false)
	result := b.deliverer.Deliver(ctx, batch)
	if clearAfter {
		b.Clear()
	}
	return result
}

// Scope runs fn inside a fresh trace span and guarantees a flush on
// every exit path: normal return, error return, or panic. The buffer
// is cleared first so the scope's batch contains only its own
// records. The delivery result and fn's error are both reported; a
// panic propagates after the flush.
func (b *Buffer) Scope(ctx context.Context, spanner Spanner, name string, fn func(context.Context) error) (result DeliveryResult, err error) {
	b.Clear()
	end := spanner.StartSpan(name)
	defer func() {
		end()
		result = b.Flush(ctx, true)
	}()
	err = fn(ctx)
	return result, err
}
