package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cascadeflow/cascade/pkg/dispatcher"
	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/log"
	"github.com/cascadeflow/cascade/pkg/otelhelper"
	"github.com/cascadeflow/cascade/pkg/state"
)

// WorkflowStatus is the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusPaused    WorkflowStatus = "paused"
	WorkflowStatusResumed   WorkflowStatus = "resumed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
	WorkflowStatusFrozen    WorkflowStatus = "frozen"
)

// Output is one per-step execution record, appended in step order for
// every attempted step, failed ones included.
type Output struct {
	StepID   string
	StepName string
	Value    any
	State    map[string]any
	Err      error
}

// Options configures a workflow.
type Options struct {
	Name               string `validate:"required"`
	ID                 string
	State              map[string]any
	ExitOnFailure      *bool // default true
	FreezeOnCompletion bool
	LogSuppress        bool
	Logger             *slog.Logger
	Tracer             trace.Tracer
}

type signals struct {
	brk    bool
	cont   bool
	skip   bool
	pause  bool
	cancel bool
}

// Workflow owns an ordered step list and drives it sequentially,
// interpreting the control signals steps raise and honouring the
// configured failure policy.
type Workflow struct {
	id   string
	name string

	steps        []Executable
	currentIndex int
	output       []Output

	state      *state.State
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer

	exitOnFailure      bool
	freezeOnCompletion bool

	status    WorkflowStatus
	failed    bool
	startedAt time.Time
	duration  time.Duration

	mu  sync.Mutex
	sig signals
}

// New creates an empty workflow in PENDING state.
func New(opts Options) (*Workflow, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	id := opts.ID
	if id == "" {
		id = "wf-" + uuid.New().String()[:8]
	}

	exitOnFailure := true
	if opts.ExitOnFailure != nil {
		exitOnFailure = *opts.ExitOnFailure
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.LogSuppress {
		logger = log.Discard()
	}

	w := &Workflow{
		id:   id,
		name: opts.Name,
		state: state.New(map[string]any{
			"should_break":    false,
			"should_continue": false,
			"should_skip":     false,
			"should_pause":    false,
		}, opts.State),
		dispatcher:         dispatcher.New(events.WorkflowChannels()),
		logger:             logger.With("workflow_id", id, "workflow_name", opts.Name),
		tracer:             opts.Tracer,
		exitOnFailure:      exitOnFailure,
		freezeOnCompletion: opts.FreezeOnCompletion,
		status:             WorkflowStatusPending,
	}

	w.emitLifecycle(events.WorkflowCreated, 0, nil)

	return w, nil
}

func (w *Workflow) ID() string                         { return w.id }
func (w *Workflow) Name() string                       { return w.name }
func (w *Workflow) State() *state.State                { return w.state }
func (w *Workflow) Dispatcher() *dispatcher.Dispatcher { return w.dispatcher }

// SetTracer enables span emission on subsequent Execute calls.
func (w *Workflow) SetTracer(tracer trace.Tracer) { w.tracer = tracer }

// Status, CurrentIndex and Duration are read by observer goroutines
// while Execute runs, so they synchronize with the driver's writes.
func (w *Workflow) Status() WorkflowStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.status
}

func (w *Workflow) CurrentIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.currentIndex
}

func (w *Workflow) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.duration
}

// Output returns the per-step execution records collected so far.
func (w *Workflow) Output() []Output { return w.output }

// Steps returns the ordered step list.
func (w *Workflow) Steps() []Executable { return w.steps }

// Execute runs the remaining steps sequentially, starting from the
// stored cursor (zero on a fresh workflow, the pause point after
// Resume). It returns one Output per attempted step.
func (w *Workflow) Execute(ctx context.Context, initial map[string]any) ([]Output, error) {
	if initial != nil {
		if err := w.state.Merge(initial); err != nil {
			return w.output, err
		}
	}

	if w.tracer != nil {
		var span trace.Span

		ctx, span = w.tracer.Start(ctx, "workflow.execute",
			trace.WithAttributes(
				attribute.String(otelhelper.WorkflowIDKey, w.id),
				attribute.String(otelhelper.WorkflowNameKey, w.name),
			))
		defer span.End()
	}

	if w.currentIndex == 0 {
		w.startedAt = time.Now()
	}

	w.setStatus(WorkflowStatusRunning)
	w.emitLifecycle(events.WorkflowStarted, w.currentIndex, nil)
	w.logger.Info("Workflow started", "steps", len(w.steps), "from_index", w.currentIndex)

	// An empty workflow completes immediately; that is not an error.
	if len(w.steps) == 0 {
		w.finish()

		return w.output, nil
	}

	for w.currentIndex < len(w.steps) {
		if err := ctx.Err(); err != nil {
			w.cancelNow()

			return w.output, err
		}

		if w.cancelRequested() {
			w.cancelNow()

			return w.output, ErrCancelled
		}

		if w.breakRequested() {
			// Break ends the run as a normal completion.
			break
		}

		if w.skipRequested() {
			w.clearSkip()
			w.logger.Debug("Skipping step", "step_index", w.currentIndex)
			w.advance()

			continue
		}

		step := w.steps[w.currentIndex]

		res, err := step.Execute(ctx, w.state)
		if err != nil {
			w.output = append(w.output, Output{
				StepID:   step.Base().ID(),
				StepName: step.Base().Name(),
				State:    w.state.SnapshotClone(),
				Err:      err,
			})
			w.advance()
			w.failed = true

			if w.exitOnFailure {
				w.recordDuration()
				w.setStatus(WorkflowStatusFailed)
				w.emitLifecycle(events.WorkflowErrored, w.currentIndex, err)
				w.emitLifecycle(events.WorkflowFailed, w.currentIndex, err)
				w.logger.Error("Workflow failed", "error", err)
				otelhelper.SetError(trace.SpanFromContext(ctx), err,
					attribute.String(otelhelper.StepIDKey, step.Base().ID()),
					attribute.String(otelhelper.StepNameKey, step.Base().Name()),
				)

				return w.output, err
			}

			w.logger.Warn("Step failed, continuing", "error", err,
				"step_index", w.currentIndex-1)

			continue
		}

		w.output = append(w.output, Output{
			StepID:   step.Base().ID(),
			StepName: step.Base().Name(),
			Value:    res.Value,
			State:    res.State,
		})

		w.applySignal(res.Signal)
		w.advance()

		if w.pauseRequested() {
			w.setStatus(WorkflowStatusPaused)
			w.emitLifecycle(events.WorkflowPaused, w.currentIndex, nil)
			w.logger.Info("Workflow paused", "step_index", w.currentIndex)

			return w.output, nil
		}
	}

	w.finish()

	return w.output, nil
}

func (w *Workflow) finish() {
	w.recordDuration()

	if w.failed {
		w.setStatus(WorkflowStatusFailed)
		w.emitLifecycle(events.WorkflowFailed, w.currentIndex, nil)
		w.logger.Warn("Workflow finished with failed steps", "duration", w.duration)
	} else {
		w.setStatus(WorkflowStatusCompleted)
		w.emitLifecycle(events.WorkflowCompleted, w.currentIndex, nil)
		w.logger.Info("Workflow completed", "duration", w.duration)
	}

	if w.freezeOnCompletion {
		w.state.Freeze()
		w.setStatus(WorkflowStatusFrozen)
	}
}

// Pause requests a cooperative pause. It takes effect at the next step
// boundary; the step currently running completes first.
func (w *Workflow) Pause() {
	w.mu.Lock()
	w.sig.pause = true
	w.mu.Unlock()

	w.mirrorSignal("should_pause", true)
}

// Resume clears the pause flag and continues execution from the stored
// cursor.
func (w *Workflow) Resume(ctx context.Context) ([]Output, error) {
	w.mu.Lock()
	w.sig.pause = false
	w.mu.Unlock()

	w.mirrorSignal("should_pause", false)
	w.setStatus(WorkflowStatusResumed)
	w.emitLifecycle(events.WorkflowResumed, w.currentIndex, nil)
	w.logger.Info("Workflow resumed", "step_index", w.currentIndex)

	return w.Execute(ctx, nil)
}

// Cancel requests cancellation. A running workflow stops at the next
// step boundary; an idle one transitions immediately.
func (w *Workflow) Cancel() {
	w.mu.Lock()
	w.sig.cancel = true
	running := w.status == WorkflowStatusRunning
	w.mu.Unlock()

	if !running {
		w.cancelNow()
	}
}

func (w *Workflow) cancelNow() {
	w.setStatus(WorkflowStatusCancelled)
	w.emitLifecycle(events.WorkflowCancelled, w.currentIndex, nil)
	w.logger.Info("Workflow cancelled", "step_index", w.currentIndex)
}

// ResetCursor rewinds the workflow so it can run again: cursor to zero,
// signals and per-run records cleared. Step state is kept; steps retain
// their terminal status until re-executed.
func (w *Workflow) ResetCursor() {
	w.mu.Lock()
	w.sig = signals{}
	w.currentIndex = 0
	w.status = WorkflowStatusPending
	w.duration = 0
	w.mu.Unlock()

	w.output = nil
	w.failed = false

	for _, key := range []string{"should_break", "should_continue", "should_skip", "should_pause"} {
		_ = w.state.Set(key, false)
	}
}

// BreakRequested reports whether a break signal was raised during the
// last run. Loop runners read it after each body iteration.
func (w *Workflow) BreakRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sig.brk
}

// ContinueRequested reports whether a continue signal was raised.
func (w *Workflow) ContinueRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sig.cont
}

func (w *Workflow) applySignal(signal Signal) {
	if signal == SignalNone {
		return
	}

	w.mu.Lock()

	switch signal {
	case SignalBreak:
		w.sig.brk = true
	case SignalContinue:
		w.sig.cont = true
	case SignalSkip:
		w.sig.skip = true
	}

	w.mu.Unlock()

	// Signals are mirrored onto workflow state so subscribers and
	// sub-steps can observe them by key.
	switch signal {
	case SignalBreak:
		w.mirrorSignal("should_break", true)
	case SignalContinue:
		w.mirrorSignal("should_continue", true)
	case SignalSkip:
		w.mirrorSignal("should_skip", true)
	}

	w.logger.Debug("Control signal raised", "signal", signal.String())
}

func (w *Workflow) mirrorSignal(key string, value bool) {
	_ = w.state.Set(key, value)
}

func (w *Workflow) breakRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sig.brk
}

func (w *Workflow) skipRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sig.skip
}

func (w *Workflow) clearSkip() {
	w.mu.Lock()
	w.sig.skip = false
	w.mu.Unlock()

	w.mirrorSignal("should_skip", false)
}

func (w *Workflow) pauseRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sig.pause
}

func (w *Workflow) cancelRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.sig.cancel
}

func (w *Workflow) advance() {
	w.mu.Lock()
	w.currentIndex++
	w.mu.Unlock()
}

func (w *Workflow) recordDuration() {
	w.mu.Lock()
	w.duration = time.Since(w.startedAt)
	w.mu.Unlock()
}

func (w *Workflow) setStatus(status WorkflowStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}

func (w *Workflow) emitLifecycle(eventType events.EventType, stepIndex int, err error) {
	payload := events.WorkflowEvent{
		BaseEvent: events.BaseEvent{
			ID:         "evt-" + uuid.New().String()[:8],
			Type:       eventType,
			Timestamp:  time.Now(),
			WorkflowID: w.id,
		},
		WorkflowName: w.name,
		Status:       string(w.status),
		StepIndex:    stepIndex,
		OutputCount:  len(w.output),
		Duration:     w.duration,
	}
	if err != nil {
		payload.Error = err.Error()
	}

	w.dispatcher.Emit(eventType, payload)
}
