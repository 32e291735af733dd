// Package workflow implements the step/workflow execution core: the step
// lifecycle state machine, the control-flow step family and the
// sequential driver that interprets the signals those steps raise.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/dispatcher"
	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/log"
	"github.com/cascadeflow/cascade/pkg/state"
)

var validate = validator.New()

// StepStatus is the lifecycle state of a step.
type StepStatus string

const (
	StepStatusWaiting  StepStatus = "waiting"
	StepStatusPending  StepStatus = "pending"
	StepStatusRunning  StepStatus = "running"
	StepStatusComplete StepStatus = "complete"
	StepStatusFailed   StepStatus = "failed"
)

// StepType declares what family a step belongs to. Specialized
// constructors set it automatically.
type StepType string

const (
	StepTypeAction StepType = "action"
	StepTypeLogic  StepType = "logic"
	StepTypeDelay  StepType = "delay"
	StepTypeLoop   StepType = "loop"
)

// Result is what a step execution hands back to the driver.
type Result struct {
	Value    any
	State    map[string]any
	Signal   Signal
	Duration time.Duration
}

// Executable is implemented by every step variant the driver can run.
type Executable interface {
	Execute(ctx context.Context, shared *state.State) (*Result, error)
	Base() *Step
}

// StepOptions configures a base step.
type StepOptions struct {
	Name        string `validate:"required"`
	Type        StepType
	Callable    Callable
	LogSuppress bool
	State       map[string]any
	Logger      *slog.Logger
}

// Step is the base execution unit. It wraps a callable and transitions
// through the status state machine, emitting an event per transition.
type Step struct {
	id          string
	name        string
	stepType    StepType
	logSuppress bool

	callable   Callable
	status     StepStatus
	startedAt  time.Time
	duration   time.Duration
	state      *state.State
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
}

// NewStep creates an action step. The callable is required; specialized
// step families use their own constructors.
func NewStep(opts StepOptions) (*Step, error) {
	if opts.Callable.IsZero() {
		return nil, ErrNilCallable
	}

	return newStep(opts, StepTypeAction)
}

func newStep(opts StepOptions, defaultType StepType) (*Step, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	stepType := opts.Type
	if stepType == "" {
		stepType = defaultType
	}

	id := "step-" + uuid.New().String()[:8]

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.LogSuppress {
		logger = log.Discard()
	}

	s := &Step{
		id:          id,
		name:        opts.Name,
		stepType:    stepType,
		logSuppress: opts.LogSuppress,
		callable:    opts.Callable,
		status:      StepStatusWaiting,
		state: state.New(map[string]any{
			"status": string(StepStatusWaiting),
		}, opts.State),
		dispatcher: dispatcher.New(events.StepChannels()),
		logger:     logger.With("step_id", id, "step_name", opts.Name),
	}

	s.emit(events.StepCreated, nil, nil)

	return s, nil
}

func (s *Step) ID() string                         { return s.id }
func (s *Step) Name() string                       { return s.name }
func (s *Step) Type() StepType                     { return s.stepType }
func (s *Step) Status() StepStatus                 { return s.status }
func (s *Step) Duration() time.Duration            { return s.duration }
func (s *Step) State() *state.State                { return s.state }
func (s *Step) Dispatcher() *dispatcher.Dispatcher { return s.dispatcher }
func (s *Step) Base() *Step                        { return s }

// MarkAsRunning transitions the step to RUNNING and emits the started
// event. The remaining MarkAs methods follow the same pattern for their
// respective states.
func (s *Step) MarkAsRunning() { s.transition(StepStatusRunning, events.StepStarted, nil, nil) }
func (s *Step) MarkAsWaiting() { s.transition(StepStatusWaiting, events.StepWaiting, nil, nil) }
func (s *Step) MarkAsPending() { s.transition(StepStatusPending, events.StepPending, nil, nil) }

func (s *Step) MarkAsComplete(result any) {
	s.transition(StepStatusComplete, events.StepCompleted, result, nil)
}

func (s *Step) MarkAsFailed(err error) {
	s.transition(StepStatusFailed, events.StepFailed, nil, err)
}

func (s *Step) transition(status StepStatus, eventType events.EventType, result any, err error) {
	s.status = status
	_ = s.state.Set("status", string(status))

	s.emit(eventType, result, err)
}

func (s *Step) emit(eventType events.EventType, result any, err error) {
	payload := events.StepEvent{
		BaseEvent: events.BaseEvent{
			ID:        "evt-" + uuid.New().String()[:8],
			Type:      eventType,
			Timestamp: time.Now(),
			StepID:    s.id,
		},
		StepName: s.name,
		StepType: string(s.stepType),
		Status:   string(s.status),
		Result:   result,
		Duration: s.duration,
	}
	if err != nil {
		payload.Error = err.Error()
	}

	s.dispatcher.Emit(eventType, payload)
}

// Execute runs the wrapped callable against the borrowed shared state.
// When shared is nil the step runs against its own state.
func (s *Step) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = s.borrow(shared)

	s.begin()
	s.logger.DebugContext(ctx, "Executing step", "step_type", s.stepType)

	value, adopted, err := s.callable.run(ctx, shared)
	if err != nil {
		s.finishFailed(adopted, err)

		return nil, err
	}

	s.finishComplete(value, adopted)

	return &Result{
		Value:    value,
		State:    shared.SnapshotClone(),
		Duration: s.duration,
	}, nil
}

func (s *Step) borrow(shared *state.State) *state.State {
	if shared == nil {
		return s.state
	}

	return shared
}

// begin marks the step RUNNING and records the start time.
func (s *Step) begin() {
	s.MarkAsRunning()
	s.startedAt = time.Now()
}

// finishComplete records the duration (adopting an inner workflow's own
// timing when present) and marks the step COMPLETE.
func (s *Step) finishComplete(result any, adopted time.Duration) {
	s.duration = time.Since(s.startedAt)
	if adopted > 0 {
		s.duration = adopted
	}

	s.MarkAsComplete(result)
}

func (s *Step) finishFailed(adopted time.Duration, err error) {
	s.duration = time.Since(s.startedAt)
	if adopted > 0 {
		s.duration = adopted
	}

	s.logger.Warn("Step failed", "error", err)
	s.MarkAsFailed(err)
}
