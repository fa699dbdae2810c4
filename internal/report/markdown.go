package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/boardaid/internal/database"
)

// MarkdownWriter writes the report as GitHub flavoured Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter returns a MarkdownWriter writing to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(s *Status) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("boardaid Status")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", s.GeneratedAt.Format(timeLayout)},
			{"Database", "`" + s.Database + "`"},
			{"Boards", strconv.Itoa(len(s.Boards))},
		},
	})
	md.PlainText("")

	w.writeBoards(md, s)
	w.writeStore(md, s)
	w.writeFilters(md, s)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by boardaid*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeBoards(md *markdown.Markdown, s *Status) {
	md.H2("Boards")
	md.PlainText("")
	if len(s.Boards) == 0 {
		md.PlainText("No boards configured.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(s.Boards))
	for _, b := range s.Boards {
		rows = append(rows, []string{"/" + b.Code + "/", b.URL, b.State})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Board", "URL", "State"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeStore(md *markdown.Markdown, s *Status) {
	md.H2("Store")
	md.PlainText("")
	rows := make([][]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		rows = append(rows, []string{t.Table, strconv.Itoa(t.Rows)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Table", "Rows"},
		Rows:   rows,
	})
	md.PlainText("")

	var hashed int
	for _, t := range database.HashTables {
		hashed += s.Rows(t)
	}
	if hashed == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Known Image Hashes"),
		piechart.WithShowData(true),
	)
	for _, t := range database.HashTables {
		if n := s.Rows(t); n > 0 {
			chart.LabelAndIntValue(string(t), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFilters(md *markdown.Markdown, s *Status) {
	md.H2("Filter")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"State", "Threads"},
		Rows: [][]string{
			{"Pending", strconv.Itoa(s.Filters.Pending)},
			{"Allow", strconv.Itoa(s.Filters.Allow)},
			{"Deny", strconv.Itoa(s.Filters.Deny)},
			{"**Total**", "**" + strconv.Itoa(s.Filters.Total()) + "**"},
		},
	})
	md.PlainText("")

	if s.Filters.Pending > 0 {
		md.Importantf("%d thread(s) are waiting for review.", s.Filters.Pending)
	} else {
		md.Tip("No threads are waiting for review.")
	}
	md.PlainText("")

	if len(s.Pending) > 0 {
		rows := make([][]string, 0, len(s.Pending))
		for _, item := range s.Pending {
			rows = append(rows, []string{"/" + item.Board + "/", item.URL, item.Reason})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Board", "Thread", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(s.BlockList.FileNames) > 0 {
		md.Details("File name terms", joinTerms(s.BlockList.FileNames))
	}
	if len(s.BlockList.PostContent) > 0 {
		md.Details("Post content terms", joinTerms(s.BlockList.PostContent))
	}
	md.PlainText("")
}

func joinTerms(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = "`" + t + "`"
	}
	return strings.Join(quoted, ", ")
}
