package crawler

import (
	"log/slog"
	"time"
)

// progress reports completion of one task with an estimate of the time left.
type progress struct {
	logger  *slog.Logger
	task    string
	total   int
	started time.Time
}

func newProgress(logger *slog.Logger, task string, total int) *progress {
	return &progress{
		logger:  logger,
		task:    task,
		total:   total,
		started: time.Now(),
	}
}

// report logs the status after completed items.
func (p *progress) report(completed int) {
	elapsed := time.Since(p.started)
	var eta time.Duration
	if completed > 0 && completed < p.total {
		eta = time.Duration(float64(elapsed) / float64(completed) * float64(p.total-completed))
	}
	p.logger.Debug("progress",
		"task", p.task,
		"completed", completed,
		"total", p.total,
		"elapsed", elapsed.Round(time.Millisecond),
		"eta", eta.Round(time.Millisecond),
	)
}
