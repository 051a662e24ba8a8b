package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SimpleWriter outputs a plain-text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints sections that have nothing to show.
	showEmpty bool

	// verbose lists every error instead of the first few.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// maxQuietErrors is how many errors are listed when not verbose.
const maxQuietErrors = 5

// Write implements Writer.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, s)
	w.writeTotals(&sb, s)
	w.writeKeywords(&sb, s)
	w.writeCustomHits(&sb, s)
	w.writeChanges(&sb, s)
	w.writeErrors(&sb, s)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          SITESCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:      %s\n", s.Seed)
	fmt.Fprintf(sb, "Run ID:    %s\n", s.RunID)
	fmt.Fprintf(sb, "Started:   %s\n", s.StartedAt.Format(timeFormat))
	fmt.Fprintf(sb, "Duration:  %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(sb, "Passes:    %d\n", s.Passes)
	if s.Interrupted {
		sb.WriteString("Status:    INTERRUPTED (partial results)\n")
	} else {
		sb.WriteString("Status:    Complete\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTotals(sb *strings.Builder, s *Summary) {
	section(sb, "ADDRESSES")
	fmt.Fprintf(sb, "  DISCOVERED: %d\n", s.Discovered)
	fmt.Fprintf(sb, "  VISITED:    %d\n", s.Visited)
	fmt.Fprintf(sb, "  DENIED:     %d\n", s.Denied)
	fmt.Fprintf(sb, "  PENDING:    %d\n", s.Pending)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  RECORDS:    %d\n", s.Records)
	fmt.Fprintf(sb, "  CHANGES:    %d\n", len(s.Changes))
	fmt.Fprintf(sb, "  DOWNLOADS:  %d\n", s.Downloads)
	fmt.Fprintf(sb, "  ERRORS:     %d\n", len(s.Errors))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeKeywords(sb *strings.Builder, s *Summary) {
	if len(s.TopKeywords) == 0 && !w.showEmpty {
		return
	}
	section(sb, "TOP KEYWORDS")
	if len(s.TopKeywords) == 0 {
		sb.WriteString("  No keywords\n\n")
		return
	}
	for _, kw := range s.TopKeywords {
		fmt.Fprintf(sb, "  %-20s %d\n", kw.Word, kw.Count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCustomHits(sb *strings.Builder, s *Summary) {
	if len(s.CustomHits) == 0 && !w.showEmpty {
		return
	}
	section(sb, "CUSTOM KEYWORDS")
	if len(s.CustomHits) == 0 {
		sb.WriteString("  No custom keyword hits\n\n")
		return
	}
	for _, hit := range s.CustomHits {
		fmt.Fprintf(sb, "  [+] %s: %d occurrences\n", hit.Keyword, len(hit.Locations))
		for _, loc := range hit.Locations {
			fmt.Fprintf(sb, "      %s\n", loc)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeChanges(sb *strings.Builder, s *Summary) {
	if !s.HasChanges() && !w.showEmpty {
		return
	}
	section(sb, "CHANGING DATA")
	if !s.HasChanges() {
		sb.WriteString("  No changes detected\n\n")
		return
	}
	for _, c := range s.Changes {
		fmt.Fprintf(sb, "  * %s (pass %d, %d new records)\n", c.Source, c.Pass, c.NewRecords)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeErrors(sb *strings.Builder, s *Summary) {
	if len(s.Errors) == 0 && !w.showEmpty {
		return
	}
	section(sb, "ERRORS")
	if len(s.Errors) == 0 {
		sb.WriteString("  No errors\n\n")
		return
	}

	shown := s.Errors
	if !w.verbose && len(shown) > maxQuietErrors {
		shown = shown[:maxQuietErrors]
	}
	for _, e := range shown {
		fmt.Fprintf(sb, "  ! %s\n", e)
	}
	if hidden := len(s.Errors) - len(shown); hidden > 0 {
		fmt.Fprintf(sb, "  ... %d more (see errors.txt or use --verbose)\n", hidden)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitescan\n")
	sb.WriteString("https://github.com/nao1215/sitescan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
