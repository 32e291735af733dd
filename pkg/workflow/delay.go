package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/state"
)

// DelayType selects the timing strategy of a delay step.
type DelayType string

const (
	DelayAbsolute DelayType = "absolute"
	DelayRelative DelayType = "relative"
	DelayCron     DelayType = "cron"
)

// Relative delays below this threshold use a direct timer; longer waits
// use the 1s scheduled wake, trading precision for fewer wakeups.
const directTimerThreshold = 100 * time.Millisecond

const wakeInterval = time.Second

// DelayStepOptions configures a delay step. Exactly one of Timestamp
// (absolute), Duration (relative) or Cron applies, matching DelayType.
type DelayStepOptions struct {
	Name        string    `validate:"required"`
	DelayType   DelayType `validate:"required,oneof=absolute relative cron"`
	Timestamp   any
	Duration    time.Duration
	Cron        string
	LogSuppress bool
	Logger      *slog.Logger
}

// DelayStep suspends execution until a point in time (ABSOLUTE or CRON)
// or for a duration (RELATIVE). A past timestamp resolves immediately.
// Cancel aborts a pending wait; the waiter receives ErrDelayCancelled.
type DelayStep struct {
	*Step

	delayType DelayType
	target    time.Time
	wait      time.Duration
	schedule  cron.Schedule

	cancelOnce sync.Once
	cancelCh   chan struct{}
}

func NewDelayStep(opts DelayStepOptions) (*DelayStep, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, err
	}

	d := &DelayStep{
		delayType: opts.DelayType,
		cancelCh:  make(chan struct{}),
	}

	switch opts.DelayType {
	case DelayAbsolute:
		target, err := parseTimestamp(opts.Timestamp)
		if err != nil {
			return nil, err
		}

		d.target = target
	case DelayRelative:
		if opts.Duration < 0 {
			return nil, fmt.Errorf("%w: negative duration %s", ErrInvalidTimestamp, opts.Duration)
		}

		d.wait = opts.Duration
	case DelayCron:
		schedule, err := cron.ParseStandard(opts.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression: %w", err)
		}

		d.schedule = schedule
	}

	base, err := newStep(StepOptions{
		Name:        opts.Name,
		Type:        StepTypeDelay,
		LogSuppress: opts.LogSuppress,
		Logger:      opts.Logger,
	}, StepTypeDelay)
	if err != nil {
		return nil, err
	}

	d.Step = base

	return d, nil
}

// Cancel aborts a pending wait. The in-flight Execute fails with
// ErrDelayCancelled; cancelling an idle or finished delay is a no-op for
// later executions only in that they will also fail immediately.
func (d *DelayStep) Cancel() {
	d.cancelOnce.Do(func() { close(d.cancelCh) })
}

// Target returns the resolved wake time of the last or pending wait.
func (d *DelayStep) Target() time.Time { return d.target }

func (d *DelayStep) Execute(ctx context.Context, shared *state.State) (*Result, error) {
	shared = d.borrow(shared)

	d.begin()

	target := d.resolveTarget(time.Now())
	d.target = target

	if err := d.sleepUntil(ctx, target); err != nil {
		d.finishFailed(0, err)

		return nil, err
	}

	elapsed := time.Since(d.startedAt)
	d.emitDelayCompleted(elapsed, target)
	d.finishComplete(elapsed, 0)

	return &Result{Value: elapsed, State: shared.SnapshotClone(), Duration: d.duration}, nil
}

func (d *DelayStep) resolveTarget(now time.Time) time.Time {
	switch d.delayType {
	case DelayRelative:
		return now.Add(d.wait)
	case DelayCron:
		return d.schedule.Next(now)
	default:
		return d.target
	}
}

// sleepUntil blocks until target. Short relative waits use a direct
// timer; everything longer wakes at most once per second and rechecks
// the target. The first wake is capped at the remaining wait so
// sub-second delays never oversleep to a full interval.
func (d *DelayStep) sleepUntil(ctx context.Context, target time.Time) error {
	wait := time.Until(target)
	if wait <= 0 {
		return nil
	}

	if d.delayType == DelayRelative && wait < directTimerThreshold {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.cancelCh:
			return ErrDelayCancelled
		case <-timer.C:
			return nil
		}
	}

	timer := time.NewTimer(min(wait, wakeInterval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.cancelCh:
			return ErrDelayCancelled
		case <-timer.C:
			remaining := time.Until(target)
			if remaining <= 0 {
				return nil
			}

			timer.Reset(min(remaining, wakeInterval))
		}
	}
}

func (d *DelayStep) emitDelayCompleted(elapsed time.Duration, target time.Time) {
	d.dispatcher.Emit(events.StepDelayCompleted, events.DelayCompleted{
		BaseEvent: events.BaseEvent{
			ID:        "evt-" + uuid.New().String()[:8],
			Type:      events.StepDelayCompleted,
			Timestamp: time.Now(),
			StepID:    d.id,
		},
		Elapsed: elapsed,
		Target:  &target,
	})
}

// parseTimestamp accepts a time.Time, an RFC3339 string or an epoch in
// milliseconds.
func parseTimestamp(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, v)
		}

		return parsed, nil
	case int64:
		return time.UnixMilli(v), nil
	case int:
		return time.UnixMilli(int64(v)), nil
	case float64:
		return time.UnixMilli(int64(v)), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidTimestamp, value)
	}
}
