package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter writes a plain-text report for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds the pending threads and the block-list terms.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists pending threads and block-list terms.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter returns a SimpleWriter writing to output.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(s *Status) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeBoards(&sb, s)
	w.writeStore(&sb, s)
	w.writeFilters(&sb, s)
	if s.Stats != nil {
		w.writeStats(&sb, s)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Status) {
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                    BOARDAID STATUS\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")
	fmt.Fprintf(sb, "Generated: %s\n", s.GeneratedAt.Format(timeLayout))
	fmt.Fprintf(sb, "Database:  %s\n\n", s.Database)
}

func (w *SimpleWriter) writeBoards(sb *strings.Builder, s *Status) {
	sb.WriteString("BOARDS\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	if len(s.Boards) == 0 {
		sb.WriteString("  (none configured)\n\n")
		return
	}
	for _, b := range s.Boards {
		fmt.Fprintf(sb, "  /%s/  %-8s %s\n", b.Code, b.State, b.URL)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeStore(sb *strings.Builder, s *Status) {
	sb.WriteString("STORE\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	for _, t := range s.Tables {
		fmt.Fprintf(sb, "  %-10s %8d\n", t.Table+":", t.Rows)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFilters(sb *strings.Builder, s *Status) {
	sb.WriteString("FILTER\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Pending: %d\n", s.Filters.Pending)
	fmt.Fprintf(sb, "  Allow:   %d\n", s.Filters.Allow)
	fmt.Fprintf(sb, "  Deny:    %d\n", s.Filters.Deny)
	fmt.Fprintf(sb, "  Block list: %d file name(s), %d post content term(s)\n",
		len(s.BlockList.FileNames), len(s.BlockList.PostContent))

	if w.verbose {
		if len(s.Pending) > 0 {
			sb.WriteString("\n  Waiting for review:\n")
			for _, item := range s.Pending {
				fmt.Fprintf(sb, "    [%s] %s (%s)\n", item.Board, item.URL, item.Reason)
			}
		}
		writeTerms(sb, "File names", s.BlockList.FileNames)
		writeTerms(sb, "Post content", s.BlockList.PostContent)
	}
	sb.WriteString("\n")
}

func writeTerms(sb *strings.Builder, title string, terms []string) {
	if len(terms) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n  %s:\n", title)
	for _, t := range terms {
		fmt.Fprintf(sb, "    - %s\n", t)
	}
}

func (w *SimpleWriter) writeStats(sb *strings.Builder, s *Status) {
	sb.WriteString("RUNTIME\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Queue depth: %d\n", s.Stats.QueueDepth)
	fmt.Fprintf(sb, "  Downloads:   %d (%d bytes)\n", s.Stats.Downloads, s.Stats.Bytes)
	sb.WriteString("\n")
}
