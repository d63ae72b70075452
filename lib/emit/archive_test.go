// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/tracelens/tracelens/lib/clock"
	"github.com/tracelens/tracelens/lib/record"
)

func leveledEvent(level, name string) *record.Record {
	rec := record.New()
	rec.Set(record.FieldLevel, level)
	rec.Set(record.FieldEvent, name)
	return rec
}

func TestArchiveGroupsBySeverity(t *testing.T) {
	archiver := NewArchiver(t.TempDir(), clock.Fake(testEpoch))

	batch := []*record.Record{
		leveledEvent("info", "started"),
		leveledEvent("error", "exploded"),
		leveledEvent("info", "retried"),
	}
	path, err := archiver.Archive(batch, "http://example/api/ingest", errors.New("connection refused"))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	errorAt := strings.Index(content, ">error (1)<")
	infoAt := strings.Index(content, ">info (2)<")
	if errorAt < 0 || infoAt < 0 {
		t.Fatalf("severity sections missing:\n%s", content)
	}
	if errorAt > infoAt {
		t.Fatal("error section not ordered before info")
	}
	if !strings.Contains(content, "connection refused") {
		t.Fatal("originating error missing from artifact")
	}
}

func TestArchiveFilenameCarriesTimestampAndHash(t *testing.T) {
	dir := t.TempDir()
	archiver := NewArchiver(dir, clock.Fake(testEpoch))

	path, err := archiver.Archive([]*record.Record{leveledEvent("info", "a")},
		"http://example/api/ingest", errors.New("timeout"))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	base := strings.TrimPrefix(path, dir+string(os.PathSeparator))
	if !strings.HasPrefix(base, "trace-20260301_120000-") || !strings.HasSuffix(base, ".html") {
		t.Fatalf("filename %q", base)
	}
}
