// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package emit

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/tracelens/tracelens/lib/clock"
	"github.com/tracelens/tracelens/lib/record"
)

// defaultArchiveDir holds fallback artifacts when no directory is
// configured. Matches the conventional scratch location so operators
// know where to look after an outage.
const defaultArchiveDir = "~/tmp/temp-trace"

// Archiver writes failed remote batches to self-contained HTML
// snapshots. Each snapshot preserves every field of every record so a
// trace can be recovered manually, and names the originating endpoint
// and error so the operator knows why it exists.
type Archiver struct {
	dir string
	clk clock.Clock
}

// NewArchiver creates an archiver writing into dir. An empty dir
// selects the default fallback directory.
func NewArchiver(dir string, clk clock.Clock) *Archiver {
	if dir == "" {
		dir = defaultArchiveDir
	}
	return &Archiver{dir: dir, clk: clk}
}

// Archive writes one snapshot for the batch and returns its path.
// The filename carries the clock timestamp plus a short content hash,
// so two batches archived within the same second never collide.
func (a *Archiver) Archive(batch []*record.Record, endpoint string, cause error) (string, error) {
	dir, err := expandHome(a.dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("emit: creating fallback directory %s: %w", dir, err)
	}

	now := a.clk.Now()
	content, err := renderArtifact(batch, endpoint, cause, now)
	if err != nil {
		return "", err
	}

	sum := blake3.Sum256(content)
	name := fmt.Sprintf("trace-%s-%s.html",
		now.Format("20060102_150405"), hex.EncodeToString(sum[:4]))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("emit: writing fallback artifact %s: %w", path, err)
	}
	return path, nil
}

// severityRank orders the snapshot's sections from most to least
// urgent. Unknown levels sort after the known ones, in first-seen
// order.
var severityRank = map[string]int{
	"critical": 0,
	"fatal":    1,
	"error":    2,
	"warning":  3,
	"warn":     3,
	"info":     4,
	"debug":    5,
	"trace":    6,
}

type artifactEntry struct {
	TS    string
	Event string
	JSON  string
}

type artifactGroup struct {
	Level   string
	Entries []artifactEntry
}

type artifactData struct {
	Endpoint  string
	Cause     string
	Generated string
	Total     int
	Groups    []artifactGroup
}

func renderArtifact(batch []*record.Record, endpoint string, cause error, now time.Time) ([]byte, error) {
	groups := map[string]*artifactGroup{}
	var order []string

	for _, rec := range batch {
		level := rec.Text(record.FieldLevel)
		if level == "" {
			level = "unleveled"
		}
		group, ok := groups[level]
		if !ok {
			group = &artifactGroup{Level: level}
			groups[level] = group
			order = append(order, level)
		}

		// Indented order-preserving JSON keeps every field, including
		// nested payloads and the tracing identifiers.
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("emit: encoding record for artifact: %w", err)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(raw)
		}

		group.Entries = append(group.Entries, artifactEntry{
			TS:    rec.Text(record.FieldTimestamp),
			Event: rec.Text(record.FieldEvent),
			JSON:  pretty.String(),
		})
	}

	// Stable severity order, insertion order within unknown levels.
	sorted := make([]string, len(order))
	copy(sorted, order)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && levelLess(sorted[j], sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	data := artifactData{
		Endpoint:  endpoint,
		Generated: now.UTC().Format(time.RFC3339),
		Total:     len(batch),
	}
	if cause != nil {
		data.Cause = cause.Error()
	}
	for _, level := range sorted {
		data.Groups = append(data.Groups, *groups[level])
	}

	var out bytes.Buffer
	if err := artifactTemplate.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("emit: rendering artifact: %w", err)
	}
	return out.Bytes(), nil
}

func levelLess(a, b string) bool {
	ra, aok := severityRank[a]
	rb, bok := severityRank[b]
	switch {
	case aok && bok:
		return ra < rb
	case aok:
		return true
	default:
		return false
	}
}

var artifactTemplate = template.Must(template.New("artifact").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>tracelens fallback snapshot</title>
<style>
body { font-family: sans-serif; margin: 2em; background: #fafafa; }
h1 { font-size: 1.2em; }
.meta { color: #555; margin-bottom: 1.5em; }
.meta code { background: #eee; padding: 0 4px; }
section { margin-bottom: 2em; }
h2 { font-size: 1em; text-transform: uppercase; border-bottom: 1px solid #ccc; }
article { margin: 0.8em 0; }
.head { font-weight: bold; }
.ts { color: #777; font-weight: normal; margin-left: 0.6em; }
pre { background: #fff; border: 1px solid #ddd; padding: 0.6em; overflow-x: auto; }
</style>
</head>
<body>
<h1>tracelens fallback snapshot</h1>
<div class="meta">
<p>{{.Total}} record(s) could not be delivered to <code>{{.Endpoint}}</code>.</p>
<p>Error: <code>{{.Cause}}</code></p>
<p>Generated: {{.Generated}}</p>
</div>
{{range .Groups}}<section>
<h2>{{.Level}} ({{len .Entries}})</h2>
{{range .Entries}}<article>
<div class="head">{{if .Event}}{{.Event}}{{else}}(no event){{end}}{{if .TS}}<span class="ts">{{.TS}}</span>{{end}}</div>
<pre>{{.JSON}}</pre>
</article>
{{end}}</section>
{{end}}</body>
</html>
`))
