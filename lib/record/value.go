// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
	"unicode/utf8"
)

// shapeFunc converts one recognized value shape to a JSON-encodable
// form. Returns false when the value is not of this shape.
type shapeFunc func(any) (any, bool)

// shapes is the normalization table, tried in order. Temporal comes
// before textual because time.Time is also a fmt.Stringer and the
// ISO form is the one the store can sort. Populated in init because
// the collection and struct entries recurse through Normalize, which
// consults the table.
var shapes []shapeFunc

func init() {
	shapes = []shapeFunc{
		normalizeTemporal,
		normalizeBinary,
		normalizeTextual,
		normalizeCollection,
		normalizeStruct,
	}
}

// Normalize converts an arbitrary value to a form that encoding/json
// can always marshal. Primitives and nil pass through unchanged;
// recognized shapes get a faithful conversion; anything else degrades
// to fmt.Sprintf("%v"). Normalize never returns a value that fails to
// marshal.
func Normalize(value any) any {
	switch value.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		json.Number, json.RawMessage:
		return value
	case *Record:
		return value
	}

	for _, shape := range shapes {
		if converted, ok := shape(value); ok {
			return converted
		}
	}

	return fmt.Sprintf("%v", value)
}

// normalizeTemporal handles time.Time (ISO-8601, so stored timestamps
// sort lexicographically) and time.Duration (seconds, matching the
// convention producers in other languages use).
func normalizeTemporal(value any) (any, bool) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	case *time.Time:
		if v == nil {
			return nil, true
		}
		return v.Format(time.RFC3339Nano), true
	case time.Duration:
		return v.Seconds(), true
	}
	return nil, false
}

// normalizeBinary handles []byte: UTF-8 text passes through as a
// string, anything else becomes hex.
func normalizeBinary(value any) (any, bool) {
	data, ok := value.([]byte)
	if !ok {
		return nil, false
	}
	if utf8.Valid(data) {
		return string(data), true
	}
	return hex.EncodeToString(data), true
}

// normalizeTextual handles values with an intrinsic string form.
func normalizeTextual(value any) (any, bool) {
	switch v := value.(type) {
	case error:
		return v.Error(), true
	case fmt.Stringer:
		return v.String(), true
	}
	return nil, false
}

// normalizeCollection handles maps, slices, and arrays, normalizing
// each element recursively. Map keys are rendered with %v so non-string
// keys don't break marshaling.
func normalizeCollection(value any) (any, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		result := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			result[key] = Normalize(iter.Value().Interface())
		}
		return result, true
	case reflect.Slice, reflect.Array:
		result := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			result[i] = Normalize(rv.Index(i).Interface())
		}
		return result, true
	}
	return nil, false
}

// normalizeStruct handles structs and struct pointers: exported
// fields become a map, tagged with "__type__" so a reader can tell
// what produced it. Unexported fields are skipped.
func normalizeStruct(value any) (any, bool) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	rt := rv.Type()
	result := make(map[string]any, rt.NumField()+1)
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		result[field.Name] = Normalize(rv.Field(i).Interface())
	}
	result["__type__"] = rt.Name()
	return result, true
}
