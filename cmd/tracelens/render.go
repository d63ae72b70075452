// Copyright 2026 The Tracelens Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tracelens/tracelens/lib/schema/trace"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true)
	styleGuide = lipgloss.NewStyle().Faint(true)
	styleMeta  = lipgloss.NewStyle().Faint(true)

	levelStyles = map[string]lipgloss.Style{
		"critical": lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		"fatal":    lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		"error":    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		"warning":  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"warn":     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"info":     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"debug":    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

// renderer writes human-facing output. Styling is decided once at
// construction: color mode "auto" enables it only when stdout is a
// terminal, so piped output stays clean.
type renderer struct {
	out    io.Writer
	styled bool
}

func newRenderer(out io.Writer, colorMode string) *renderer {
	styled := false
	switch colorMode {
	case "always":
		styled = true
	case "auto":
		if f, ok := out.(*os.File); ok {
			styled = term.IsTerminal(int(f.Fd()))
		}
	}
	return &renderer{out: out, styled: styled}
}

func (r *renderer) paint(style lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return style.Render(s)
}

func (r *renderer) paintLevel(level string) string {
	if style, ok := levelStyles[level]; ok {
		return r.paint(style, level)
	}
	return level
}

// traceTable renders the trace listing as a table.
func (r *renderer) traceTable(summaries []trace.Summary) {
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACE\tSTART\tEND\tEVENTS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.TraceID, s.StartTS, s.EndTS, s.Events)
	}
	tw.Flush()
}

// tree renders the reconstructed span forest with indentation guides,
// each span's logs nested beneath its title.
func (r *renderer) tree(t *trace.Tree) {
	fmt.Fprintf(r.out, "trace %s\n", r.paint(styleTitle, t.TraceID))
	for i, root := range t.Roots {
		r.span(t, root, "", i == len(t.Roots)-1)
	}
}

func (r *renderer) span(t *trace.Tree, spanID, prefix string, last bool) {
	connector, childPrefix := "├── ", prefix+"│   "
	if last {
		connector, childPrefix = "└── ", prefix+"    "
	}
	fmt.Fprintf(r.out, "%s%s%s\n",
		r.paint(styleGuide, prefix+connector),
		r.paint(styleTitle, t.Titles[spanID]),
		r.paint(styleMeta, " ["+spanID+"]"))

	children := t.Children[spanID]
	for _, entry := range t.Logs[spanID] {
		fmt.Fprintf(r.out, "%s%s %s %s\n",
			r.paint(styleGuide, childPrefix),
			r.paintLevel(entry.Level),
			entry.Event,
			r.paint(styleMeta, entry.TS))
	}
	for i, child := range children {
		r.span(t, child, childPrefix, i == len(children)-1)
	}
}

// searchResults renders matched rows, one per line.
func (r *renderer) searchResults(result *trace.SearchResponse) {
	for _, row := range result.Results {
		fmt.Fprintf(r.out, "%s %s %s %s\n",
			row.TS,
			r.paintLevel(row.Level),
			row.Event,
			r.paint(styleMeta, row.TraceID+"/"+row.SpanID))
	}
	fmt.Fprintf(r.out, "%s\n", r.paint(styleMeta, fmt.Sprintf("%d result(s)", result.Count)))
}
