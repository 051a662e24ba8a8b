package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/sink"
)

// Runner drives one run: the discovery round, the convergence passes and
// the final flush to the sink.
type Runner struct {
	crawler     Crawler
	detector    Detector
	scanURLs    bool
	scanObjects bool
	maxPasses   int
	sink        sink.ResultSink
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithScanURLs toggles the script analysis step.
func WithScanURLs(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.scanURLs = enabled
	}
}

// WithScanObjects toggles the object enumeration step.
func WithScanObjects(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.scanObjects = enabled
	}
}

// WithMaxPasses bounds the convergence passes. Zero means unbounded.
func WithMaxPasses(n int) RunnerOption {
	return func(r *Runner) {
		if n >= 0 {
			r.maxPasses = n
		}
	}
}

// WithSink sets where the state is flushed when the run ends.
func WithSink(s sink.ResultSink) RunnerOption {
	return func(r *Runner) {
		r.sink = s
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// DefaultMaxPasses is the pass limit of a Runner without WithMaxPasses.
const DefaultMaxPasses = 10

// NewRunner creates a Runner. Passing nil as the detector disables the
// convergence passes.
func NewRunner(c Crawler, d Detector, opts ...RunnerOption) *Runner {
	r := &Runner{
		crawler:     c,
		detector:    d,
		scanURLs:    true,
		scanObjects: true,
		maxPasses:   DefaultMaxPasses,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the run against state. The state is always finished and
// flushed to the sink, also when ctx is cancelled part way; in that case it
// is marked interrupted and ctx's error is returned.
func (r *Runner) Run(ctx context.Context, state *model.RunState) (err error) {
	r.logger.Info("run started", "seed", state.Seed, "run_id", state.ID)

	defer func() {
		if ctx.Err() != nil {
			state.MarkInterrupted()
		}
		state.Finish()
		if r.sink != nil {
			// The sink must see partial results after cancellation.
			if sinkErr := r.sink.Write(context.WithoutCancel(ctx), state); sinkErr != nil {
				r.logger.Error("flush results", "seed", state.Seed, "error", sinkErr)
				err = errors.Join(err, sinkErr)
			}
		}
		discovered, visited, denied := state.Addresses.Counts()
		r.logger.Info("run finished",
			"seed", state.Seed,
			"passes", state.Passes(),
			"discovered", discovered,
			"visited", visited,
			"denied", denied,
			"changes", len(state.Changes()),
			"errors", len(state.Errors()),
			"interrupted", state.Interrupted(),
		)
	}()

	if err := r.discovery().Execute(ctx, state); err != nil {
		return err
	}
	if r.detector == nil {
		return nil
	}

	for {
		pass := state.BeginPass()
		detect := NewDetectStep(r.detector, pass)
		if err := r.pass(detect).Execute(ctx, state); err != nil {
			return err
		}
		if !detect.Changed() {
			r.logger.Info("content converged", "seed", state.Seed, "passes", pass)
			return nil
		}
		if r.maxPasses > 0 && pass >= r.maxPasses {
			r.logger.Warn("pass limit reached before content converged",
				"seed", state.Seed,
				"max_passes", r.maxPasses,
			)
			return nil
		}
	}
}

func (r *Runner) discovery() *Pipeline {
	p := New(WithLogger(r.logger))
	p.AddStep(NewCrawlStep(r.crawler))
	if r.scanURLs {
		p.AddStep(NewScriptStep(r.crawler))
	}
	if r.scanObjects {
		p.AddStep(NewEnumerateStep(r.crawler))
	}
	return p
}

func (r *Runner) pass(detect *DetectStep) *Pipeline {
	p := New(WithLogger(r.logger))
	p.AddStep(NewCrawlStep(r.crawler))
	if r.scanObjects {
		p.AddStep(NewEnumerateStep(r.crawler))
	}
	p.AddStep(detect)
	return p
}
