package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs run summaries in Markdown format.
// This format is meant for issue trackers and shared notes.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeAddresses(md, s)
	w.writeKeywords(md, s)
	w.writeCustomHits(md, s)
	w.writeChanges(md, s)
	w.writeErrors(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Sitescan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + s.Seed + "`"},
			{"Run ID", "`" + s.RunID + "`"},
			{"Started", s.StartedAt.Format(timeFormat)},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
			{"Passes", strconv.Itoa(s.Passes)},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")
}

func statusText(s *Summary) string {
	if s.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeAddresses(md *markdown.Markdown, s *Summary) {
	md.H2("Addresses")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"State", "Count"},
		Rows: [][]string{
			{"Discovered", strconv.Itoa(s.Discovered)},
			{"Fetched", strconv.Itoa(s.Fetched())},
			{"Denied", strconv.Itoa(s.Denied)},
			{"Pending", strconv.Itoa(s.Pending)},
			{"Records", strconv.Itoa(s.Records)},
			{"Downloads", strconv.Itoa(s.Downloads)},
		},
	})
	md.PlainText("")

	if s.Discovered > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Address States"),
			piechart.WithShowData(true),
		)
		if n := s.Fetched(); n > 0 {
			chart.LabelAndIntValue("Fetched", uint64(n))
		}
		if s.Denied > 0 {
			chart.LabelAndIntValue("Denied", uint64(s.Denied))
		}
		if s.Pending > 0 {
			chart.LabelAndIntValue("Pending", uint64(s.Pending))
		}
		md.PlainText("")
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Denied > 0 && len(s.Errors) > 0:
		md.Warningf("%d address(es) denied access and %d error(s) were logged.", s.Denied, len(s.Errors))
	case s.Denied > 0:
		md.Importantf("%d address(es) denied access.", s.Denied)
	case len(s.Errors) > 0:
		md.Cautionf("%d error(s) were logged during the run.", len(s.Errors))
	default:
		md.Tip("Every visited address was fetched without errors.")
	}
	md.PlainText("")

	if len(s.DeniedURLs) > 0 {
		md.Details("Denied addresses", strings.Join(s.DeniedURLs, "\n"))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeKeywords(md *markdown.Markdown, s *Summary) {
	md.H2("Top Keywords")
	md.PlainText("")

	if len(s.TopKeywords) == 0 {
		md.PlainText("No keywords counted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.TopKeywords))
	for i, kw := range s.TopKeywords {
		rows[i] = []string{kw.Word, strconv.Itoa(kw.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Keyword", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeCustomHits(md *markdown.Markdown, s *Summary) {
	if len(s.CustomHits) == 0 {
		return
	}

	md.H2("Custom Keywords")
	md.PlainText("")

	rows := make([][]string, len(s.CustomHits))
	for i, hit := range s.CustomHits {
		first := "-"
		if len(hit.Locations) > 0 {
			first = truncateString(hit.Locations[0], 60)
		}
		rows[i] = []string{hit.Keyword, strconv.Itoa(len(hit.Locations)), first}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Keyword", "Occurrences", "First Location"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeChanges(md *markdown.Markdown, s *Summary) {
	md.H2("Changing Data")
	md.PlainText("")

	if !s.HasChanges() {
		md.Note("No content changed between passes.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Changes))
	for i, c := range s.Changes {
		rows[i] = []string{truncateString(c.Source, 60), strconv.Itoa(c.Pass), strconv.Itoa(c.NewRecords)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Pass", "New Records"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, s *Summary) {
	if len(s.Errors) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")
	md.BulletList(s.Errors...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitescan](https://github.com/nao1215/sitescan)*")
}
