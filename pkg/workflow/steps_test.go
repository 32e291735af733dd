package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/state"
)

func namedNoop(t *testing.T, name string) *Step {
	t.Helper()

	return mustAction(t, name, func(_ context.Context, _ *state.State) (any, error) {
		return nil, nil
	})
}

func stepNames(w *Workflow) []string {
	names := make([]string, 0, len(w.Steps()))
	for _, step := range w.Steps() {
		names = append(names, step.Base().Name())
	}

	return names
}

func TestWorkflowAddSteps(t *testing.T) {
	w := newTestWorkflow(t, Options{Name: "builder"})

	w.AddStep(namedNoop(t, "a"))
	w.AddSteps(namedNoop(t, "b"), namedNoop(t, "c"))

	assert.Equal(t, []string{"a", "b", "c"}, stepNames(w))
}

func TestWorkflowRemoveStep(t *testing.T) {
	w := newTestWorkflow(t, Options{Name: "builder"})

	middle := namedNoop(t, "b")
	w.AddSteps(namedNoop(t, "a"), middle, namedNoop(t, "c"))

	require.NoError(t, w.RemoveStep(middle.ID()))
	assert.Equal(t, []string{"a", "c"}, stepNames(w))

	err := w.RemoveStep("step-missing")
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestWorkflowMoveStep(t *testing.T) {
	w := newTestWorkflow(t, Options{Name: "builder"})

	last := namedNoop(t, "c")
	w.AddSteps(namedNoop(t, "a"), namedNoop(t, "b"), last)

	require.NoError(t, w.MoveStep(last.ID(), 0))
	assert.Equal(t, []string{"c", "a", "b"}, stepNames(w))

	err := w.MoveStep(last.ID(), 5)
	assert.ErrorContains(t, err, "out of range")
}

func TestWorkflowShiftStepClampsToBounds(t *testing.T) {
	w := newTestWorkflow(t, Options{Name: "builder"})

	first := namedNoop(t, "a")
	w.AddSteps(first, namedNoop(t, "b"), namedNoop(t, "c"))

	require.NoError(t, w.ShiftStep(first.ID(), 10))
	assert.Equal(t, []string{"b", "c", "a"}, stepNames(w))

	require.NoError(t, w.ShiftStep(first.ID(), -10))
	assert.Equal(t, []string{"a", "b", "c"}, stepNames(w))
}

func TestWorkflowClearSteps(t *testing.T) {
	w := newTestWorkflow(t, Options{Name: "builder"})

	w.AddSteps(namedNoop(t, "a"), namedNoop(t, "b"))
	w.ClearSteps()

	assert.Empty(t, w.Steps())
}

func TestWorkflowStepListEvents(t *testing.T) {
	w := newTestWorkflow(t, Options{Name: "builder"})

	var got events.StepListChanged

	_, err := w.Dispatcher().On(events.WorkflowStepAdded, func(payload any) {
		got = payload.(events.StepListChanged)
	})
	require.NoError(t, err)

	w.AddStep(namedNoop(t, "tracked"))

	assert.Equal(t, "tracked", got.StepName)
	assert.Equal(t, 0, got.Position)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, w.ID(), got.WorkflowID)
}
