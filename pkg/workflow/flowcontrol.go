package workflow

import (
	"context"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/state"
)

// FlowControlType selects which signal a flow-control step raises.
type FlowControlType string

const (
	FlowControlBreak    FlowControlType = "break"
	FlowControlContinue FlowControlType = "continue"
)

// FlowControlStepOptions configures a break/continue step.
type FlowControlStepOptions struct {
	Name        string          `validate:"required"`
	Mode        FlowControlType `validate:"required,oneof=break continue"`
	Subject     any
	Operator    string `validate:"required"`
	Value       any
	LogSuppress bool
	Logger      *slog.Logger
}

// FlowControlStep evaluates its condition and, when it holds, returns a
// break or continue signal. It never terminates a loop itself; the
// enclosing loop runner reads the signal after the iteration.
type FlowControlStep struct {
	*LogicStep

	mode FlowControlType
}

func NewFlowControlStep(opts FlowControlStepOptions) (*FlowControlStep, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

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

	return &FlowControlStep{LogicStep: logic, mode: opts.Mode}, nil
}

// Mode returns the configured flow-control mode.
func (f *FlowControlStep) Mode() FlowControlType { return f.mode }

func (f *FlowControlStep) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = f.borrow(shared)

	f.begin()

	ok, err := f.CheckCondition(shared)
	if err != nil {
		f.finishFailed(0, err)

		return nil, err
	}

	signal := SignalNone

	if ok {
		if f.mode == FlowControlBreak {
			signal = SignalBreak
		} else {
			signal = SignalContinue
		}

		f.logger.Debug("Flow control condition met", "mode", string(f.mode))
	}

	f.finishComplete(ok, 0)

	return &Result{
		Value:    ok,
		State:    shared.SnapshotClone(),
		Signal:   signal,
		Duration: f.duration,
	}, nil
}

// SkipStepOptions configures a skip-next step.
type SkipStepOptions struct {
	Name        string `validate:"required"`
	Subject     any
	Operator    string `validate:"required"`
	Value       any
	LogSuppress bool
	Logger      *slog.Logger
}

// SkipStep evaluates its condition and, when it holds, returns the skip
// signal; the driver consumes it to skip exactly one upcoming step
// without aborting the run.
type SkipStep struct {
	*LogicStep
}

func NewSkipStep(opts SkipStepOptions) (*SkipStep, error) {
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

	return &SkipStep{LogicStep: logic}, nil
}

func (s *SkipStep) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = s.borrow(shared)

	s.begin()

	ok, err := s.CheckCondition(shared)
	if err != nil {
		s.finishFailed(0, err)

		return nil, err
	}

	signal := SignalNone
	if ok {
		signal = SignalSkip

		s.logger.Debug("Skip condition met, next step will be skipped")
	}

	s.finishComplete(ok, 0)

	return &Result{
		Value:    ok,
		State:    shared.SnapshotClone(),
		Signal:   signal,
		Duration: s.duration,
	}, nil
}
