package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/state"
)

// LoopType selects the iteration mode of a loop step.
type LoopType string

const (
	LoopWhile   LoopType = "while"
	LoopForEach LoopType = "for_each"
)

// DefaultMaxIterations bounds both loop modes unless overridden.
const DefaultMaxIterations = 20

// StopCause records why a loop stopped, kept distinguishable for
// diagnostics even though several causes end the loop the same way.
type StopCause string

const (
	StopCauseCondition     StopCause = "condition"
	StopCauseExhausted     StopCause = "exhausted"
	StopCauseBreak         StopCause = "break"
	StopCauseMaxIterations StopCause = "max_iterations"
)

var errLoopIterable = errors.New("for_each loop requires an iterable")

// LoopStepOptions configures a loop step. Subject/Operator/Value define
// the WHILE condition; Iterable feeds FOR_EACH.
type LoopStepOptions struct {
	Name          string   `validate:"required"`
	LoopType      LoopType `validate:"required,oneof=while for_each"`
	Subject       any
	Operator      string
	Value         any
	Iterable      []any
	MaxIterations int
	Body          *Workflow `validate:"required"`
	LogSuppress   bool
	Logger        *slog.Logger
}

// LoopStep repeats a bound sub-workflow: WHILE mode repeats while its
// condition holds, FOR_EACH iterates a provided sequence. The body's
// cursor is reset after every iteration so it can repeat cleanly, and
// its break signal ends the loop.
type LoopStep struct {
	*Step

	loopType      LoopType
	condition     Condition
	iterable      []any
	maxIterations int
	body          *Workflow

	iterations int
	stopCause  StopCause
}

func NewLoopStep(opts LoopStepOptions) (*LoopStep, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	var condition Condition

	switch opts.LoopType {
	case LoopWhile:
		var err error

		condition, err = NewCondition(opts.Subject, opts.Operator, opts.Value)
		if err != nil {
			return nil, err
		}
	case LoopForEach:
		if opts.Iterable == nil {
			return nil, errLoopIterable
		}
	}

	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	base, err := newStep(StepOptions{
		Name:        opts.Name,
		Type:        StepTypeLoop,
		LogSuppress: opts.LogSuppress,
		Logger:      opts.Logger,
	}, StepTypeLoop)
	if err != nil {
		return nil, err
	}

	return &LoopStep{
		Step:          base,
		loopType:      opts.LoopType,
		condition:     condition,
		iterable:      opts.Iterable,
		maxIterations: maxIterations,
		body:          opts.Body,
	}, nil
}

// Iterations returns how many times the body ran during the last
// execution.
func (l *LoopStep) Iterations() int { return l.iterations }

// LastStopCause returns why the last execution stopped.
func (l *LoopStep) LastStopCause() StopCause { return l.stopCause }

func (l *LoopStep) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = l.borrow(shared)

	l.begin()

	l.iterations = 0
	l.stopCause = ""

	for {
		if l.iterations >= l.maxIterations {
			// Guard exhaustion is a silent stop, not an error; the
			// cause stays distinguishable from a body break.
			l.stopCause = StopCauseMaxIterations
			l.logger.Warn("Loop reached max iterations",
				"max_iterations", l.maxIterations)

			break
		}

		proceed, err := l.nextIteration(shared)
		if err != nil {
			l.finishFailed(0, err)

			return nil, err
		}

		if !proceed {
			break
		}

		if _, err := l.body.Execute(ctx, nil); err != nil {
			l.finishFailed(0, err)

			return nil, err
		}

		broke := l.body.BreakRequested()

		// Reset the body's cursor so the next iteration starts clean.
		l.body.ResetCursor()

		l.iterations++

		if broke {
			l.stopCause = StopCauseBreak
			l.logger.Debug("Loop body signalled break", "iteration", l.iterations)

			break
		}
	}

	value := map[string]any{
		"iterations": l.iterations,
		"stop_cause": string(l.stopCause),
	}

	l.finishComplete(value, 0)

	return &Result{Value: value, State: shared.SnapshotClone(), Duration: l.duration}, nil
}

// nextIteration decides whether another iteration should run and, for
// FOR_EACH, stages the current item on the body's state.
func (l *LoopStep) nextIteration(shared *state.State) (bool, error) {
	switch l.loopType {
	case LoopWhile:
		ok, err := l.condition.Evaluate(shared)
		if err != nil {
			return false, err
		}

		if !ok {
			l.stopCause = StopCauseCondition
		}

		return ok, nil
	case LoopForEach:
		if l.iterations >= len(l.iterable) {
			l.stopCause = StopCauseExhausted

			return false, nil
		}

		if err := l.body.State().Set("item", l.iterable[l.iterations]); err != nil {
			return false, err
		}

		if err := l.body.State().Set("index", l.iterations); err != nil {
			return false, err
		}

		return true, nil
	default:
		return false, nil
	}
}
