// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/tracelens/tracelens/lib/clock"
	"github.com/tracelens/tracelens/lib/record"
	"github.com/tracelens/tracelens/lib/schema/trace"
)

// DeliveryMode names the path a batch actually took.
type DeliveryMode string

const (
	ModeRemote    DeliveryMode = "remote"
	ModeLocalFile DeliveryMode = "local_file"
	ModeConsole   DeliveryMode = "console"
	ModeFallback  DeliveryMode = "fallback"
)

// DeliveryResult reports the outcome of one batch delivery.
type DeliveryResult struct {
	// RecordsAccepted counts records that reached a durable or
	// displayed destination: the remote's own ingested count, or the
	// batch size for file, console, and fallback-artifact delivery.
	RecordsAccepted int

	// Mode is the path taken. ModeFallback means the remote failed
	// and the batch went to a local artifact instead.
	Mode DeliveryMode

	// Location is the endpoint, file path, or artifact path. Empty
	// for console.
	Location string

	// Err is the hard error for local sink failures, or the original
	// network error when Mode is ModeFallback (informational there:
	// the data is safe in the artifact at Location).
	Err error
}

// deliveryTimeout bounds the remote call so a dead endpoint degrades
// to the fallback path instead of hanging the traced operation.
const deliveryTimeout = 5 * time.Second

// gzipThreshold is the serialized batch size above which the remote
// body is gzip-compressed.
const gzipThreshold = 4 << 10

// Router dispatches batches to a resolved target. Safe to share
// across buffers; it holds no per-batch state.
type Router struct {
	target   Target
	client   *http.Client
	archiver *Archiver
	console  io.Writer
	logger   *slog.Logger
}

// RouterConfig holds the parameters for NewRouter. Target is
// required; everything else has defaults.
type RouterConfig struct {
	Target Target

	// Archiver receives batches that failed remote delivery. Nil
	// means the default archiver (directory ~/tmp/temp-trace).
	Archiver *Archiver

	// Console is the writer for KindConsole targets. Nil means
	// os.Stdout.
	Console io.Writer

	// HTTPClient overrides the default client (5 second timeout).
	HTTPClient *http.Client

	// Clock feeds artifact naming. Nil means the real clock.
	Clock clock.Clock

	// Logger receives delivery warnings. Nil means discard.
	Logger *slog.Logger
}

// NewRouter creates a router for the given target.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	archiver := cfg.Archiver
	if archiver == nil {
		archiver = NewArchiver("", clk)
	}
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}
	return &Router{
		target:   cfg.Target,
		client:   client,
		archiver: archiver,
		console:  console,
		logger:   logger,
	}
}

// Target returns the router's resolved target.
func (r *Router) Target() Target { return r.target }

// Deliver dispatches one batch. An empty batch performs no I/O.
// Remote failures of any kind (connection, timeout, non-2xx) degrade
// to a fallback artifact; the result reports the artifact path and
// the original error. File and console failures are hard errors in
// Err with nothing written counted as accepted.
func (r *Router) Deliver(ctx context.Context, batch []*record.Record) DeliveryResult {
	mode := map[TargetKind]DeliveryMode{
		KindRemote:    ModeRemote,
		KindLocalFile: ModeLocalFile,
		KindConsole:   ModeConsole,
	}[r.target.Kind]

	if len(batch) == 0 {
		return DeliveryResult{Mode: mode}
	}

	switch r.target.Kind {
	case KindRemote:
		return r.deliverRemote(ctx, batch)
	case KindLocalFile:
		return r.deliverFile(batch)
	default:
		return r.deliverConsole(batch)
	}
}

func (r *Router) deliverRemote(ctx context.Context, batch []*record.Record) DeliveryResult {
	accepted, err := r.postBatch(ctx, batch)
	if err == nil {
		return DeliveryResult{
			RecordsAccepted: accepted,
			Mode:            ModeRemote,
			Location:        r.target.Endpoint,
		}
	}

	path, archiveErr := r.archiver.Archive(batch, r.target.Endpoint, err)
	if archiveErr != nil {
		// Nowhere further to degrade to.
		return DeliveryResult{
			Mode: ModeFallback,
			Err:  fmt.Errorf("emit: remote delivery failed (%w) and fallback archive failed: %w", err, archiveErr),
		}
	}

	r.logger.Warn("remote delivery failed, batch archived locally",
		"endpoint", r.target.Endpoint,
		"artifact", path,
		"records", len(batch),
		"error", err,
	)
	return DeliveryResult{
		RecordsAccepted: len(batch),
		Mode:            ModeFallback,
		Location:        path,
		Err:             err,
	}
}

// postBatch sends the batch as a JSON array, gzip-compressed above
// the threshold, and returns the server's ingested count.
func (r *Router) postBatch(ctx context.Context, batch []*record.Record) (int, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return 0, fmt.Errorf("encoding batch: %w", err)
	}

	body := payload
	compressed := false
	if len(payload) > gzipThreshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return 0, fmt.Errorf("compressing batch: %w", err)
		}
		if err := zw.Close(); err != nil {
			return 0, fmt.Errorf("compressing batch: %w", err)
		}
		body = buf.Bytes()
		compressed = true
	}

	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.target.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if compressed {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, fmt.Errorf("endpoint returned %s: %s", resp.Status, snippet)
	}

	var ingest trace.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingest); err != nil {
		// A 2xx without a parsable body still counts as delivered.
		return len(batch), nil
	}
	return ingest.Ingested, nil
}

func (r *Router) deliverFile(batch []*record.Record) DeliveryResult {
	file, err := os.OpenFile(r.target.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return DeliveryResult{
			Mode: ModeLocalFile,
			Err:  fmt.Errorf("emit: opening sink file %s: %w", r.target.Path, err),
		}
	}
	defer file.Close()

	if err := writeLines(file, batch); err != nil {
		return DeliveryResult{
			Mode: ModeLocalFile,
			Err:  fmt.Errorf("emit: appending to %s: %w", r.target.Path, err),
		}
	}
	return DeliveryResult{
		RecordsAccepted: len(batch),
		Mode:            ModeLocalFile,
		Location:        r.target.Path,
	}
}

func (r *Router) deliverConsole(batch []*record.Record) DeliveryResult {
	if err := writeLines(r.console, batch); err != nil {
		return DeliveryResult{
			Mode: ModeConsole,
			Err:  fmt.Errorf("emit: writing to console: %w", err),
		}
	}
	return DeliveryResult{
		RecordsAccepted: len(batch),
		Mode:            ModeConsole,
	}
}

// writeLines serializes one record per line. Field order inside each
// object is the record's insertion order.
func writeLines(w io.Writer, batch []*record.Record) error {
	for _, rec := range batch {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
