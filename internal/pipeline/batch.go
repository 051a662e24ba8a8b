package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescan/internal/model"
)

// RunnerFactory builds the Runner for one seed. Each seed gets its own
// engine, so per-site overrides and change snapshots never leak between runs.
type RunnerFactory func(seed string) (*Runner, error)

// BatchProcessor runs several seeds concurrently.
type BatchProcessor struct {
	factory     RunnerFactory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor. The default concurrency is 1.
func NewBatchProcessor(factory RunnerFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs every seed and returns their states in seed order.
// A failed run does not stop the others; its failure is in its error log.
// Seeds not started before cancellation have a nil state.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.RunState, error) {
	results := make([]*model.RunState, len(seeds))
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(state *model.RunState, index int) {
		results[index] = state
	})
	return results, err
}

// ProcessBatchWithCallback runs every seed and calls callback with each
// finished state. The callback is called from the run's goroutine.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(state *model.RunState, index int),
) error {
	bp.logger.Info("starting batch",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			state := model.NewRunState(seed)
			runner, err := bp.factory(seed)
			if err != nil {
				state.AddError("Error preparing run for %s: %v", seed, err)
				state.Finish()
				callback(state, i)
				return nil
			}

			if err := runner.Run(ctx, state); err != nil {
				bp.logger.Warn("run failed", "seed", seed, "error", err)
			}
			callback(state, i)

			// Cancellation is reported once, by g.Wait.
			return ctx.Err()
		})
	}

	err := g.Wait()
	bp.logger.Info("batch complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)
	return err
}
