// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

// fieldAliases maps each canonical column to the producer-side key
// names it accepts, in priority order. Producers do not share an
// exact schema; one alias per ecosystem convention keeps them all
// ingestable.
var fieldAliases = map[string][]string{
	"ts":             {"timestamp", "ts", "@timestamp"},
	"level":          {"level", "lvl"},
	"logger":         {"logger", "name"},
	"event":          {"event", "message", "msg"},
	"trace_id":       {"trace_id"},
	"span_id":        {"span_id"},
	"parent_span_id": {"parent_span_id", "parent_id"},
}

// aliasKeys is the union of all alias names. Every one of them is
// stripped from attrs, whether or not it supplied the winning value,
// so losing aliases never leak into the opaque payload.
var aliasKeys = map[string]bool{}

func init() {
	for _, aliases := range fieldAliases {
		for _, alias := range aliases {
			aliasKeys[alias] = true
		}
	}
}

// normalizeRecord reshapes one arbitrary incoming record into the
// canonical stored row. Returns ok=false when the record lacks a
// trace or span identifier; such records are skipped, never a batch
// error.
//
// Every key outside the alias table is preserved verbatim in the
// attrs payload, so unknown fields survive ingestion unchanged.
func normalizeRecord(raw map[string]any) (trace.Row, bool) {
	// The first alias carrying a non-empty value wins; a present but
	// null or empty alias falls through to the next one.
	extract := func(canonical string) string {
		for _, alias := range fieldAliases[canonical] {
			if value, present := raw[alias]; present {
				if s := stringify(value); s != "" {
					return s
				}
			}
		}
		return ""
	}

	row := trace.Row{
		TS:           extract("ts"),
		Level:        extract("level"),
		Logger:       extract("logger"),
		Event:        extract("event"),
		TraceID:      extract("trace_id"),
		SpanID:       extract("span_id"),
		ParentSpanID: extract("parent_span_id"),
	}
	if row.TraceID == "" || row.SpanID == "" {
		return trace.Row{}, false
	}

	attrs := map[string]any{}
	for key, value := range raw {
		if !aliasKeys[key] {
			attrs[key] = value
		}
	}
	row.Attrs = marshalAttrs(attrs)
	return row, true
}

// stringify renders an aliased field value as the stored string. The
// identifiers arrive as opaque hex strings and pass through; scalar
// non-strings on the other fields degrade to their printed form
// rather than being dropped.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func marshalAttrs(attrs map[string]any) json.RawMessage {
	if len(attrs) == 0 {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		// Attrs came out of a JSON decoder, so this cannot fire for
		// ingest traffic. Degrade to empty rather than reject.
		return json.RawMessage("{}")
	}
	return data
}
