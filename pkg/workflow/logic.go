package workflow

import (
	"context"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/state"
)

// LogicStepOptions configures a logic step and its condition.
type LogicStepOptions struct {
	Name        string `validate:"required"`
	Subject     any
	Operator    string `validate:"required"`
	Value       any
	LogSuppress bool
	Logger      *slog.Logger
}

// LogicStep specializes Step with a three-part condition. Executing a
// bare logic step evaluates the condition and yields the boolean result;
// the control-flow variants build on it.
type LogicStep struct {
	*Step

	condition Condition
}

func NewLogicStep(opts LogicStepOptions) (*LogicStep, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	condition, err := NewCondition(opts.Subject, opts.Operator, opts.Value)
	if err != nil {
		return nil, err
	}

	base, err := newStep(StepOptions{
		Name:        opts.Name,
		Type:        StepTypeLogic,
		LogSuppress: opts.LogSuppress,
		Logger:      opts.Logger,
	}, StepTypeLogic)
	if err != nil {
		return nil, err
	}

	return &LogicStep{Step: base, condition: condition}, nil
}

// Condition returns the step's condition.
func (l *LogicStep) Condition() Condition { return l.condition }

// CheckCondition evaluates the condition against the borrowed state.
func (l *LogicStep) CheckCondition(st *state.State) (bool, error) {
	return l.condition.Evaluate(st)
}

func (l *LogicStep) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = l.borrow(shared)

	l.begin()

	ok, err := l.CheckCondition(shared)
	if err != nil {
		l.finishFailed(0, err)

		return nil, err
	}

	l.finishComplete(ok, 0)

	return &Result{Value: ok, State: shared.SnapshotClone(), Duration: l.duration}, nil
}
