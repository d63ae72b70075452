// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/tracelens/tracelens/lib/clock"
	"github.com/tracelens/tracelens/lib/record"
)

func tracedEvent(name, traceID, spanID string) *record.Record {
	rec := record.New()
	rec.Set(record.FieldTimestamp, "2026-03-01T12:00:00Z")
	rec.Set(record.FieldLevel, "info")
	rec.Set(record.FieldEvent, name)
	rec.Set(record.FieldTraceID, traceID)
	rec.Set(record.FieldSpanID, spanID)
	return rec
}

func TestDeliverEmptyBatchPerformsNoIO(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	router := NewRouter(RouterConfig{
		Target: Target{Kind: KindRemote, Endpoint: server.URL + "/api/ingest"},
	})
	result := router.Deliver(context.Background(), nil)
	if result.RecordsAccepted != 0 || result.Err != nil {
		t.Fatalf("result = %+v", result)
	}
	if hits != 0 {
		t.Fatalf("empty batch hit the endpoint %d times", hits)
	}
}

func TestDeliverRemoteReportsServerIngestedCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			t.Errorf("decoding batch: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]int{"ingested": len(batch)})
	}))
	defer server.Close()

	router := NewRouter(RouterConfig{
		Target: Target{Kind: KindRemote, Endpoint: server.URL + "/api/ingest"},
	})
	batch := []*record.Record{
		tracedEvent("one", "0af1", "b2"),
		tracedEvent("two", "0af1", "b3"),
	}
	result := router.Deliver(context.Background(), batch)
	if result.Err != nil {
		t.Fatalf("Deliver: %v", result.Err)
	}
	if result.Mode != ModeRemote || result.RecordsAccepted != 2 {
		t.Fatalf("result = %+v", result)
	}
}

func TestDeliverRemoteCompressesLargeBatches(t *testing.T) {
	var sawEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawEncoding = r.Header.Get("Content-Encoding")
		body := io.Reader(r.Body)
		if sawEncoding == "gzip" {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				t.Errorf("gzip reader: %v", err)
				return
			}
			defer zr.Close()
			body = zr
		}
		var batch []map[string]any
		if err := json.NewDecoder(body).Decode(&batch); err != nil {
			t.Errorf("decoding compressed batch: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]int{"ingested": len(batch)})
	}))
	defer server.Close()

	rec := tracedEvent("bulk", "0af1", "b2")
	rec.Set("payload", strings.Repeat("x", 8192))

	router := NewRouter(RouterConfig{
		Target: Target{Kind: KindRemote, Endpoint: server.URL + "/api/ingest"},
	})
	result := router.Deliver(context.Background(), []*record.Record{rec})
	if result.Err != nil {
		t.Fatalf("Deliver: %v", result.Err)
	}
	if sawEncoding != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", sawEncoding)
	}
	if result.RecordsAccepted != 1 {
		t.Fatalf("RecordsAccepted = %d", result.RecordsAccepted)
	}
}

func TestDeliverRemoteFailureProducesFallbackArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	clk := clock.Fake(testEpoch)
	router := NewRouter(RouterConfig{
		Target:   Target{Kind: KindRemote, Endpoint: server.URL + "/api/ingest"},
		Archiver: NewArchiver(dir, clk),
		Clock:    clk,
	})

	batch := []*record.Record{
		tracedEvent("step one", "deadbeefcafe", "0011223344556677"),
		tracedEvent("step two", "deadbeefcafe", "8899aabbccddeeff"),
	}
	result := router.Deliver(context.Background(), batch)

	if result.Mode != ModeFallback {
		t.Fatalf("Mode = %q, want fallback", result.Mode)
	}
	if result.Err == nil {
		t.Fatal("fallback result carries no original error")
	}
	if result.RecordsAccepted != 2 {
		t.Fatalf("RecordsAccepted = %d, want 2", result.RecordsAccepted)
	}
	if filepath.Dir(result.Location) != dir {
		t.Fatalf("artifact %q not in %q", result.Location, dir)
	}

	content, err := os.ReadFile(result.Location)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	// Every identifier and event must survive into the snapshot.
	for _, want := range []string{
		"deadbeefcafe", "0011223344556677", "8899aabbccddeeff",
		"step one", "step two", server.URL,
	} {
		if !bytes.Contains(content, []byte(want)) {
			t.Fatalf("artifact missing %q", want)
		}
	}
}

func TestDeliverFileAppendsOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	router := NewRouter(RouterConfig{
		Target: Target{Kind: KindLocalFile, Path: path},
	})

	first := router.Deliver(context.Background(), []*record.Record{
		tracedEvent("one", "0af1", "b2"),
	})
	if first.Err != nil {
		t.Fatalf("first deliver: %v", first.Err)
	}
	second := router.Deliver(context.Background(), []*record.Record{
		tracedEvent("two", "0af1", "b3"),
		tracedEvent("three", "0af1", "b4"),
	})
	if second.Err != nil {
		t.Fatalf("second deliver: %v", second.Err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("file has %d lines, want 3", len(lines))
	}
	for i, line := range lines {
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Fatalf("line %d not JSON: %v", i, err)
		}
	}
}

func TestDeliverConsoleWritesJSONLines(t *testing.T) {
	var out bytes.Buffer
	router := NewRouter(RouterConfig{
		Target:  Target{Kind: KindConsole},
		Console: &out,
	})

	result := router.Deliver(context.Background(), []*record.Record{
		tracedEvent("hello", "0af1", "b2"),
	})
	if result.Err != nil {
		t.Fatalf("Deliver: %v", result.Err)
	}
	if result.Mode != ModeConsole || result.RecordsAccepted != 1 {
		t.Fatalf("result = %+v", result)
	}
	line := strings.TrimRight(out.String(), "\n")
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		t.Fatalf("console output not JSON: %v", err)
	}
	if obj["event"] != "hello" {
		t.Fatalf("event = %v", obj["event"])
	}
}
