package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/sitescan/internal/model"
)

// stepFunc is a named Step backed by a function.
type stepFunc struct {
	name string
	do   func(ctx context.Context, state *model.RunState) error
}

func (s stepFunc) Name() string { return s.name }

func (s stepFunc) Do(ctx context.Context, state *model.RunState) error {
	return s.do(ctx, state)
}

func recordingStep(name string, calls *[]string, err error) Step {
	return stepFunc{name: name, do: func(context.Context, *model.RunState) error {
		*calls = append(*calls, name)
		return err
	}}
}

func TestPipeline_Execute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order", func(t *testing.T) {
		t.Parallel()

		var calls []string
		p := New()
		p.AddStep(recordingStep("one", &calls, nil))
		p.AddSteps(recordingStep("two", &calls, nil), recordingStep("three", &calls, nil))

		state := model.NewRunState("http://example.com/")
		if err := p.Execute(t.Context(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"one", "two", "three"}
		if !slices.Equal(calls, want) {
			t.Errorf("calls = %v, want %v", calls, want)
		}
		if !slices.Equal(state.ExecutedSteps(), want) {
			t.Errorf("ExecutedSteps = %v", state.ExecutedSteps())
		}
		if p.StepCount() != 3 || !slices.Equal(p.StepNames(), want) {
			t.Errorf("StepNames = %v", p.StepNames())
		}
	})

	t.Run("stops on error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var calls []string
		p := New()
		p.AddSteps(recordingStep("one", &calls, boom), recordingStep("two", &calls, nil))

		state := model.NewRunState("http://example.com/")
		if err := p.Execute(t.Context(), state); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if !slices.Equal(calls, []string{"one"}) {
			t.Errorf("calls = %v", calls)
		}
		if got := state.Errors(); len(got) != 1 || got[0] != "Step one failed: boom" {
			t.Errorf("Errors = %v", got)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		var calls []string
		p := New(WithContinueOnError(true))
		p.AddSteps(recordingStep("one", &calls, errors.New("boom")), recordingStep("two", &calls, nil))

		if err := p.Execute(t.Context(), model.NewRunState("http://example.com/")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(calls, []string{"one", "two"}) {
			t.Errorf("calls = %v", calls)
		}
	})

	t.Run("cancellation stops before the next step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		var calls []string
		p := New(WithContinueOnError(true))
		p.AddSteps(
			stepFunc{name: "cancel", do: func(context.Context, *model.RunState) error {
				calls = append(calls, "cancel")
				cancel()
				return nil
			}},
			recordingStep("never", &calls, nil),
		)

		state := model.NewRunState("http://example.com/")
		if err := p.Execute(ctx, state); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !slices.Equal(calls, []string{"cancel"}) {
			t.Errorf("calls = %v", calls)
		}
		if len(state.Errors()) != 0 {
			t.Errorf("cancellation must not be logged as an error: %v", state.Errors())
		}
	})
}
