package workflow

import (
	"context"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/state"
)

// ConditionalStepOptions configures a binary branch step.
type ConditionalStepOptions struct {
	Name        string `validate:"required"`
	Subject     any
	Operator    string `validate:"required"`
	Value       any
	Left        Executable
	Right       Executable
	LogSuppress bool
	Logger      *slog.Logger
}

// ConditionalStep evaluates its condition once and executes the left
// branch when true, the right branch when false. An absent branch yields
// a nil result rather than an error; only one branch ever runs.
type ConditionalStep struct {
	*LogicStep

	left  Executable
	right Executable
}

func NewConditionalStep(opts ConditionalStepOptions) (*ConditionalStep, error) {
	logic, err := NewLogicStep(LogicStepOptions{
		Name:        opts.Name,
		Subject:     opts.Subject,
		Operator:    opts.Operator,
		Value:       opts.Value,
		LogSuppress: opts.LogSuppress,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &ConditionalStep{LogicStep: logic, left: opts.Left, right: opts.Right}, nil
}

func (c *ConditionalStep) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = c.borrow(shared)

	c.begin()

	ok, err := c.CheckCondition(shared)
	if err != nil {
		c.finishFailed(0, err)

		return nil, err
	}

	branch := c.right
	if ok {
		branch = c.left
	}

	if branch == nil {
		c.finishComplete(nil, 0)

		return &Result{State: shared.SnapshotClone(), Duration: c.duration}, nil
	}

	res, err := branch.Execute(ctx, shared)
	if err != nil {
		c.finishFailed(0, err)

		return nil, err
	}

	c.finishComplete(res.Value, 0)

	return &Result{
		Value:    res.Value,
		State:    shared.SnapshotClone(),
		Signal:   res.Signal,
		Duration: c.duration,
	}, nil
}
