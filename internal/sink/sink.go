package sink

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescan/internal/model"
)

// ResultSink receives the final state of a run.
type ResultSink interface {
	Write(ctx context.Context, state *model.RunState) error
}

// Func adapts a function to the ResultSink interface.
type Func func(ctx context.Context, state *model.RunState) error

// Write implements ResultSink.
func (f Func) Write(ctx context.Context, state *model.RunState) error {
	return f(ctx, state)
}

// Multi writes to every sink concurrently.
// All sinks run to completion; the first error is returned.
type Multi []ResultSink

// Write implements ResultSink.
func (m Multi) Write(ctx context.Context, state *model.RunState) error {
	var g errgroup.Group
	for _, s := range m {
		if s == nil {
			continue
		}
		g.Go(func() error {
			return s.Write(ctx, state)
		})
	}
	return g.Wait()
}
