package workflow

import (
	"context"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/state"
)

// Case pairs a condition with a callable inside a switch step.
type Case struct {
	condition Condition
	callable  Callable
	matched   bool
}

// NewCase builds a switch case. The operator is validated here, so a
// misconfigured case fails at construction rather than mid-execution.
func NewCase(subject any, operator string, value any, callable Callable) (*Case, error) {
	condition, err := NewCondition(subject, operator, value)
	if err != nil {
		return nil, err
	}

	return &Case{condition: condition, callable: callable}, nil
}

// Matched reports whether this case won a previous evaluation.
func (c *Case) Matched() bool { return c.matched }

// SwitchStepOptions configures a multi-way branch step.
type SwitchStepOptions struct {
	Name        string  `validate:"required"`
	Cases       []*Case `validate:"required,min=1"`
	Default     Callable
	LogSuppress bool
	Logger      *slog.Logger
}

// SwitchStep evaluates its cases in declaration order; the first case
// whose condition matches wins and all later cases are skipped. When no
// case matches, the default callable runs if present, otherwise the step
// completes with no result.
type SwitchStep struct {
	*Step

	cases       []*Case
	defaultCase Callable
}

func NewSwitchStep(opts SwitchStepOptions) (*SwitchStep, error) {
	if err := validate.Struct(opts); err != nil {
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

	return &SwitchStep{Step: base, cases: opts.Cases, defaultCase: opts.Default}, nil
}

// Cases returns the declared cases for introspection.
func (s *SwitchStep) Cases() []*Case { return s.cases }

func (s *SwitchStep) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = s.borrow(shared)

	s.begin()

	for i, kase := range s.cases {
		ok, err := kase.condition.Evaluate(shared)
		if err != nil {
			s.finishFailed(0, err)

			return nil, err
		}

		if !ok {
			continue
		}

		kase.matched = true
		s.logger.Debug("Switch case matched", "case_index", i)

		return s.runBranch(ctx, shared, kase.callable)
	}

	if !s.defaultCase.IsZero() {
		s.logger.Debug("No switch case matched, running default")

		return s.runBranch(ctx, shared, s.defaultCase)
	}

	s.finishComplete(nil, 0)

	return &Result{State: shared.SnapshotClone(), Duration: s.duration}, nil
}

func (s *SwitchStep) runBranch(ctx context.Context, shared *state.State, callable Callable) (*Result, error) {
	value, adopted, err := callable.run(ctx, shared)
	if err != nil {
		s.finishFailed(adopted, err)

		return nil, err
	}

	s.finishComplete(value, adopted)

	return &Result{Value: value, State: shared.SnapshotClone(), Duration: s.duration}, nil
}
