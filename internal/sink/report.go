package sink

import (
	"context"
	"sync"

	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/report"
)

// ReportSink renders a run summary with a report.Writer.
// Writes are serialized so concurrent runs do not interleave their output.
type ReportSink struct {
	mu     sync.Mutex
	writer report.Writer
	topN   int
}

// NewReportSink creates a ReportSink keeping topN keywords in the summary.
// A non-positive topN means report.DefaultTopKeywords.
func NewReportSink(w report.Writer, topN int) *ReportSink {
	if topN <= 0 {
		topN = report.DefaultTopKeywords
	}
	return &ReportSink{writer: w, topN: topN}
}

// Write implements ResultSink.
func (s *ReportSink) Write(_ context.Context, state *model.RunState) error {
	summary := report.NewSummary(state, s.topN)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.writer.Write(summary)
	return err
}
