package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/citestrade/internal/registry"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, state *State) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, state *State) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, state)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		step := &mockStep{name: "test-step"}

		p.AddStep(step)

		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		step1 := &mockStep{name: "resolve_filename"}
		step2 := &mockStep{name: "download"}
		step3 := &mockStep{name: "step-3"}

		p.AddSteps(step1, step2, step3)

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		names := p.StepNames()

		expected := []string{"first", "second", "third"}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		executionOrder := make([]string, 0)

		p := New()
		p.AddStep(&mockStep{
			name: "resolve_filename",
			doFunc: func(_ context.Context, _ *State) error {
				executionOrder = append(executionOrder, "resolve_filename")
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "download",
			doFunc: func(_ context.Context, _ *State) error {
				executionOrder = append(executionOrder, "download")
				return nil
			},
		})

		state := newTestState()
		err := p.Execute(context.Background(), state)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(executionOrder) != 2 {
			t.Fatalf("expected 2 executions, got %d", len(executionOrder))
		}
		if executionOrder[0] != "resolve_filename" || executionOrder[1] != "download" {
			t.Errorf("wrong execution order: %v", executionOrder)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		step2Called := false

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *State) error {
				return expectedErr
			},
		})
		p.AddStep(&mockStep{
			name: "should-not-run",
			doFunc: func(_ context.Context, _ *State) error {
				step2Called = true
				return nil
			},
		})

		state := newTestState()
		err := p.Execute(context.Background(), state)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if step2Called {
			t.Error("second step should not have been called")
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		step2Called := false

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *State) error {
				return errors.New("step failed")
			},
		})
		p.AddStep(&mockStep{
			name: "should-run",
			doFunc: func(_ context.Context, _ *State) error {
				step2Called = true
				return nil
			},
		})

		state := newTestState()
		err := p.Execute(context.Background(), state)

		if err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if !step2Called {
			t.Error("second step should have been called")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		stepCalled := false
		p := New()
		p.AddStep(&mockStep{
			name: "should-not-run",
			doFunc: func(_ context.Context, _ *State) error {
				stepCalled = true
				return nil
			},
		})

		state := newTestState()
		err := p.Execute(ctx, state)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if stepCalled {
			t.Error("step should not have been called")
		}
		if !state.Cancelled {
			t.Error("state.Cancelled should be true")
		}
	})

	t.Run("records completed steps", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))
		p.AddStep(&mockStep{name: "download"})
		p.AddStep(&mockStep{
			name:   "verify_archive",
			doFunc: func(_ context.Context, _ *State) error { return errors.New("mismatch") },
		})
		p.AddStep(&mockStep{name: "extract"})

		state := newTestState()
		err := p.Execute(context.Background(), state)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(state.CompletedSteps) != 2 || state.CompletedSteps[1] != "extract" {
			t.Errorf("unexpected completed steps %v", state.CompletedSteps)
		}
	})

	t.Run("records error in state", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("test error")

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *State) error {
				return expectedErr
			},
		})

		state := newTestState()
		_ = p.Execute(context.Background(), state) //nolint:errcheck // checked via state.Err

		if !errors.Is(state.Err, expectedErr) {
			t.Errorf("expected %v in state, got %v", expectedErr, state.Err)
		}
	})
}

// TestPipelineStepNames tests the StepNames method.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	t.Run("returns empty slice for empty pipeline", func(t *testing.T) {
		t.Parallel()

		p := New()
		names := p.StepNames()

		if len(names) != 0 {
			t.Errorf("expected empty slice, got %v", names)
		}
	})

	t.Run("returns names in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(
			&mockStep{name: "alpha"},
			&mockStep{name: "beta"},
			&mockStep{name: "gamma"},
		)

		names := p.StepNames()

		if len(names) != 3 {
			t.Fatalf("expected 3 names, got %d", len(names))
		}
		if names[0] != "alpha" || names[1] != "beta" || names[2] != "gamma" {
			t.Errorf("unexpected names: %v", names)
		}
	})
}

// newTestState returns a State for an unreachable endpoint.
func newTestState() *State {
	return NewState("http://127.0.0.1:1/db", "test", registry.Entry{Archive: "00"})
}

// TestNewState tests State construction.
func TestNewState(t *testing.T) {
	t.Parallel()

	t.Run("defaults algorithm to md5", func(t *testing.T) {
		t.Parallel()

		if got := newTestState().Algorithm; got != "md5" {
			t.Errorf("expected md5, got %q", got)
		}
	})

	t.Run("keeps registry algorithm", func(t *testing.T) {
		t.Parallel()

		s := NewState("http://example.com", "v", registry.Entry{Algorithm: "sha256", Archive: "ab"})
		if s.Algorithm != "sha256" {
			t.Errorf("expected sha256, got %q", s.Algorithm)
		}
	})
}

// TestCombinedFileName tests the derived dataset name.
func TestCombinedFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "trade_database.zip", want: "trade_database.csv.gz"},
		{in: "/cache/Trade_db_2020.1.zip", want: "Trade_db_2020.1.csv.gz"},
		{in: "noext", want: "noext.csv.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			if got := CombinedFileName(tt.in); got != tt.want {
				t.Errorf("CombinedFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
