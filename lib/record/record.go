// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Standard field names stamped onto every enriched record. The
// emitter does not generate or validate identifier values, it only
// carries them through; the names are fixed so the server's
// normalizer and the fallback archiver can find them.
const (
	FieldTimestamp    = "ts"
	FieldEvent        = "event"
	FieldLevel        = "level"
	FieldLogger       = "logger"
	FieldTraceID      = "trace_id"
	FieldSpanID       = "span_id"
	FieldParentSpanID = "parent_span_id"
)

// Record is an ordered field-name → value mapping. The zero value is
// an empty record ready for use. Not safe for concurrent mutation.
type Record struct {
	keys   []string
	values map[string]any
}

// New returns an empty Record.
func New() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores value under key. A new key is appended to the field
// order; an existing key keeps its position and has its value
// replaced.
func (r *Record) Set(key string, value any) *Record {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
	return r
}

// Get returns the value stored under key and whether it is present.
func (r *Record) Get(key string) (any, bool) {
	value, ok := r.values[key]
	return value, ok
}

// Text returns the value under key rendered as a string. Missing
// fields and nil values render as "".
func (r *Record) Text(key string) string {
	value, ok := r.values[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// Delete removes key from the record. No-op if the key is absent.
func (r *Record) Delete(key string) {
	if _, exists := r.values[key]; !exists {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// Keys returns the field names in insertion order. The returned slice
// is a copy.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Clone returns a shallow copy: field order and the value map are
// duplicated, the values themselves are shared.
func (r *Record) Clone() *Record {
	clone := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(clone.keys, r.keys)
	for key, value := range r.values {
		clone.values[key] = value
	}
	return clone
}

// MarshalJSON encodes the record as a JSON object with fields in
// insertion order. Values pass through Normalize, so marshaling does
// not fail on exotic value types.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("record: marshal key %q: %w", key, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valueJSON, err := json.Marshal(Normalize(r.values[key]))
		if err != nil {
			return nil, fmt.Errorf("record: marshal field %q: %w", key, err)
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving its field order.
// Nested objects decode as *Record (order preserved at every depth);
// numbers decode as json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", token)
	}

	decoded, err := decodeObject(decoder)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// decodeObject consumes the members of an object whose opening brace
// has already been read, up to and including the closing brace.
func decodeObject(decoder *json.Decoder) (*Record, error) {
	result := New()
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("record: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("record: expected object key, got %v", keyToken)
		}
		value, err := decodeValue(decoder)
		if err != nil {
			return nil, err
		}
		result.Set(key, value)
	}
	// Closing brace.
	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return result, nil
}

// decodeValue reads one JSON value from the decoder.
func decodeValue(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}

	switch t := token.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(decoder)
		case '[':
			var items []any
			for decoder.More() {
				item, err := decodeValue(decoder)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			// Closing bracket.
			if _, err := decoder.Token(); err != nil {
				return nil, fmt.Errorf("record: %w", err)
			}
			if items == nil {
				items = []any{}
			}
			return items, nil
		default:
			return nil, fmt.Errorf("record: unexpected delimiter %v", t)
		}
	default:
		// string, json.Number, bool, or nil.
		return token, nil
	}
}
