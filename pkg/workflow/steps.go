package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cascadeflow/cascade/pkg/events"
)

// AddStep appends a step to the workflow.
func (w *Workflow) AddStep(step Executable) {
	w.steps = append(w.steps, step)

	w.emitStepList(events.WorkflowStepAdded, step.Base().Name(), len(w.steps)-1)
}

// AddSteps appends several steps, emitting a single event.
func (w *Workflow) AddSteps(steps ...Executable) {
	w.steps = append(w.steps, steps...)

	w.emitStepList(events.WorkflowStepsAdded, "", len(w.steps)-1)
}

// RemoveStep removes the step with the given id.
func (w *Workflow) RemoveStep(id string) error {
	for i, step := range w.steps {
		if step.Base().ID() == id {
			w.steps = append(w.steps[:i], w.steps[i+1:]...)

			w.emitStepList(events.WorkflowStepRemoved, step.Base().Name(), i)

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrStepNotFound, id)
}

// MoveStep moves the step with the given id to an absolute position.
func (w *Workflow) MoveStep(id string, position int) error {
	index, err := w.indexOf(id)
	if err != nil {
		return err
	}

	if position < 0 || position >= len(w.steps) {
		return fmt.Errorf("position %d out of range [0,%d)", position, len(w.steps))
	}

	step := w.steps[index]
	w.steps = append(w.steps[:index], w.steps[index+1:]...)
	w.steps = append(w.steps[:position], append([]Executable{step}, w.steps[position:]...)...)

	w.emitStepList(events.WorkflowStepMoved, step.Base().Name(), position)

	return nil
}

// ShiftStep moves the step with the given id by a relative offset,
// clamped to the list bounds.
func (w *Workflow) ShiftStep(id string, offset int) error {
	index, err := w.indexOf(id)
	if err != nil {
		return err
	}

	position := index + offset
	if position < 0 {
		position = 0
	}

	if position > len(w.steps)-1 {
		position = len(w.steps) - 1
	}

	step := w.steps[index]
	w.steps = append(w.steps[:index], w.steps[index+1:]...)
	w.steps = append(w.steps[:position], append([]Executable{step}, w.steps[position:]...)...)

	w.emitStepList(events.WorkflowStepShifted, step.Base().Name(), position)

	return nil
}

// ClearSteps removes every step from the workflow.
func (w *Workflow) ClearSteps() {
	w.steps = nil

	w.emitStepList(events.WorkflowStepsCleared, "", 0)
}

func (w *Workflow) indexOf(id string) (int, error) {
	for i, step := range w.steps {
		if step.Base().ID() == id {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrStepNotFound, id)
}

func (w *Workflow) emitStepList(eventType events.EventType, stepName string, position int) {
	w.dispatcher.Emit(eventType, events.StepListChanged{
		BaseEvent: events.BaseEvent{
			ID:         "evt-" + uuid.New().String()[:8],
			Type:       eventType,
			Timestamp:  time.Now(),
			WorkflowID: w.id,
		},
		WorkflowName: w.name,
		StepName:     stepName,
		Position:     position,
		Count:        len(w.steps),
	})
}
