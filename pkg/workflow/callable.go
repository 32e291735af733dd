package workflow

import (
	"context"
	"time"

	"github.com/cascadeflow/cascade/pkg/state"
)

// Func is the plain-function form of a unit of work. It receives the
// borrowed workflow state for the duration of one step execution.
type Func func(ctx context.Context, st *state.State) (any, error)

type callableKind int

const (
	callableNone callableKind = iota
	callableFunc
	callableStep
	callableWorkflow
)

// Callable is the closed union of things a step can wrap: a plain
// function, another step (substituted transparently) or a whole workflow
// (run to completion, its output and timing adopted by the wrapper).
type Callable struct {
	kind     callableKind
	fn       Func
	step     *Step
	workflow *Workflow
}

func FuncCallable(fn Func) Callable {
	return Callable{kind: callableFunc, fn: fn}
}

func StepCallable(s *Step) Callable {
	return Callable{kind: callableStep, step: s}
}

func WorkflowCallable(w *Workflow) Callable {
	return Callable{kind: callableWorkflow, workflow: w}
}

// IsZero reports whether no unit of work has been assigned.
func (c Callable) IsZero() bool {
	return c.kind == callableNone
}

// run is the single dispatch point over the union. The returned duration
// is non-zero only for the workflow variant, whose own timing the
// wrapping step adopts.
func (c Callable) run(ctx context.Context, shared *state.State) (any, time.Duration, error) {
	switch c.kind {
	case callableFunc:
		value, err := c.fn(ctx, shared)

		return value, 0, err
	case callableStep:
		// A step used as a callable is unwrapped to its own unit of
		// work; its lifecycle is not replayed.
		return c.step.callable.run(ctx, shared)
	case callableWorkflow:
		output, err := c.workflow.Execute(ctx, nil)
		if err != nil {
			return nil, c.workflow.Duration(), err
		}

		return output, c.workflow.Duration(), nil
	default:
		return nil, 0, ErrNilCallable
	}
}
