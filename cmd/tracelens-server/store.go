// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/tracelens/tracelens/lib/schema/trace"
	"github.com/tracelens/tracelens/lib/sqlitepool"
)

// ErrNotFound reports a trace id with zero stored rows. A normal
// outcome for queries, never a server fault.
var ErrNotFound = errors.New("trace not found")

// schemaScript creates the log table and its indexes. Idempotent;
// runs on every pooled connection's first use.
//
// Rows are immutable once inserted: no UPDATE or DELETE is issued
// anywhere in the server. ts is a lexicographically sortable ISO-8601
// string or NULL when the producer supplied none.
const schemaScript = `
CREATE TABLE IF NOT EXISTS logs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	ts             TEXT,
	level          TEXT,
	logger         TEXT,
	event          TEXT,
	attrs          TEXT,
	trace_id       TEXT NOT NULL,
	span_id        TEXT NOT NULL,
	parent_span_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_logs_trace_id ON logs(trace_id);
CREATE INDEX IF NOT EXISTS idx_logs_span_id ON logs(span_id);
CREATE INDEX IF NOT EXISTS idx_logs_parent_span_id ON logs(parent_span_id);
CREATE INDEX IF NOT EXISTS idx_logs_ts ON logs(ts);
`

// Store is the append-dominant trace row store. A single logical
// writer (the ingest handler) and many concurrent readers share the
// pool; WAL mode keeps readers off the writer's back.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
	path   string
}

// StoreConfig holds the parameters for opening a store.
type StoreConfig struct {
	// Path is the SQLite database file, created if absent. The parent
	// directory must exist.
	Path string

	// PoolSize is the connection pool size. Zero means the pool
	// default.
	PoolSize int

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// OpenStore opens the store and installs the schema.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("store: Logger is required")
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schemaScript, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return &Store{pool: pool, logger: cfg.Logger, path: cfg.Path}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// InsertRows appends the rows in a single IMMEDIATE transaction, so a
// partially ingested batch is never visible to readers. Returns the
// number of rows written.
func (s *Store) InsertRows(ctx context.Context, rows []trace.Row) (inserted int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer endFn(&err)

	const insertSQL = `INSERT INTO logs
		(ts, level, logger, event, attrs, trace_id, span_id, parent_span_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, row := range rows {
		err = sqlitex.Execute(conn, insertSQL, &sqlitex.ExecOptions{
			Args: []any{
				nullable(row.TS),
				row.Level,
				row.Logger,
				row.Event,
				string(row.Attrs),
				row.TraceID,
				row.SpanID,
				nullable(row.ParentSpanID),
			},
		})
		if err != nil {
			return 0, fmt.Errorf("store: inserting row: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// nullable maps "" to NULL so absent fields are stored as absence,
// not empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// RowsForTrace returns every row for the trace, ordered by timestamp
// with insertion id breaking ties. NULL timestamps coalesce to ""
// so undated rows sort first instead of last. Returns ErrNotFound
// when the trace has no rows.
func (s *Store) RowsForTrace(ctx context.Context, traceID string) ([]trace.Row, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	const query = `SELECT id, ts, level, logger, event, attrs, trace_id, span_id, parent_span_id
		FROM logs WHERE trace_id = ?
		ORDER BY COALESCE(ts, ''), id`

	var rows []trace.Row
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args:       []any{traceID},
		ResultFunc: appendRow(&rows),
	})
	if err != nil {
		return nil, fmt.Errorf("store: fetching trace %s: %w", traceID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("store: trace %s: %w", traceID, ErrNotFound)
	}
	return rows, nil
}

// ListTraces aggregates per-trace activity, most recently active
// first. The limit must already be clamped by the caller.
func (s *Store) ListTraces(ctx context.Context, limit int) ([]trace.Summary, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	const query = `SELECT trace_id,
			COALESCE(MIN(ts), '') AS start_ts,
			COALESCE(MAX(ts), '') AS end_ts,
			COUNT(*) AS events
		FROM logs
		GROUP BY trace_id
		ORDER BY MAX(ts) DESC
		LIMIT ?`

	summaries := []trace.Summary{}
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			summaries = append(summaries, trace.Summary{
				TraceID: stmt.ColumnText(0),
				StartTS: stmt.ColumnText(1),
				EndTS:   stmt.ColumnText(2),
				Events:  stmt.ColumnInt64(3),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: listing traces: %w", err)
	}
	return summaries, nil
}

// SearchQuery is a conjunctive row filter. Zero-valued fields are not
// applied. Since and Until are inclusive bounds compared
// lexicographically against the ISO-8601 ts column.
type SearchQuery struct {
	Level          string
	EventSubstring string
	Since          string
	Until          string
	Limit          int
}

// Search returns matching rows, newest first.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]trace.Row, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var (
		clauses []string
		args    []any
	)
	if q.Level != "" {
		clauses = append(clauses, "level = ?")
		args = append(args, q.Level)
	}
	if q.EventSubstring != "" {
		clauses = append(clauses, `event LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.EventSubstring)+"%")
	}
	if q.Since != "" {
		clauses = append(clauses, "ts >= ?")
		args = append(args, q.Since)
	}
	if q.Until != "" {
		clauses = append(clauses, "ts <= ?")
		args = append(args, q.Until)
	}

	query := "SELECT id, ts, level, logger, event, attrs, trace_id, span_id, parent_span_id FROM logs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY COALESCE(ts, '') DESC, id DESC LIMIT ?"
	args = append(args, q.Limit)

	rows := []trace.Row{}
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args:       args,
		ResultFunc: appendRow(&rows),
	})
	if err != nil {
		return nil, fmt.Errorf("store: searching: %w", err)
	}
	return rows, nil
}

// escapeLike neutralizes LIKE metacharacters so user substrings match
// literally. Paired with ESCAPE '\' in the query.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// StoreStats are the aggregate counts for the status endpoint.
type StoreStats struct {
	RowCount   int64
	TraceCount int64
	SizeBytes  int64
}

// Stats reads row and trace counts plus the database file size.
func (s *Store) Stats(ctx context.Context) (StoreStats, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return StoreStats{}, err
	}
	defer s.pool.Put(conn)

	var stats StoreStats
	err = sqlitex.Execute(conn,
		"SELECT COUNT(*), COUNT(DISTINCT trace_id) FROM logs", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.RowCount = stmt.ColumnInt64(0)
				stats.TraceCount = stmt.ColumnInt64(1)
				return nil
			},
		})
	if err != nil {
		return StoreStats{}, fmt.Errorf("store: counting rows: %w", err)
	}

	if info, statErr := os.Stat(s.path); statErr == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// appendRow builds a ResultFunc that scans the canonical column list
// into a trace.Row slice.
func appendRow(rows *[]trace.Row) func(stmt *sqlite.Stmt) error {
	return func(stmt *sqlite.Stmt) error {
		attrs := stmt.ColumnText(5)
		if attrs == "" {
			attrs = "{}"
		}
		*rows = append(*rows, trace.Row{
			ID:           stmt.ColumnInt64(0),
			TS:           stmt.ColumnText(1),
			Level:        stmt.ColumnText(2),
			Logger:       stmt.ColumnText(3),
			Event:        stmt.ColumnText(4),
			Attrs:        []byte(attrs),
			TraceID:      stmt.ColumnText(6),
			SpanID:       stmt.ColumnText(7),
			ParentSpanID: stmt.ColumnText(8),
		})
		return nil
	}
}
