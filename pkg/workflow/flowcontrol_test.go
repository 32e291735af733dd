package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/state"
)

func TestFlowControlStepRaisesBreak(t *testing.T) {
	step, err := NewFlowControlStep(FlowControlStepOptions{
		Name:        "stop-at-limit",
		Mode:        FlowControlBreak,
		Subject:     Ref("count"),
		Operator:    ">=",
		Value:       3,
		LogSuppress: true,
	})
	require.NoError(t, err)

	shared := state.New(map[string]any{"count": 3})

	res, err := step.Execute(context.Background(), shared)
	require.NoError(t, err)

	assert.Equal(t, true, res.Value)
	assert.Equal(t, SignalBreak, res.Signal)
}

func TestFlowControlStepQuietWhenConditionFails(t *testing.T) {
	step, err := NewFlowControlStep(FlowControlStepOptions{
		Name:        "stop-at-limit",
		Mode:        FlowControlBreak,
		Subject:     1,
		Operator:    ">=",
		Value:       3,
		LogSuppress: true,
	})
	require.NoError(t, err)

	res, err := step.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, false, res.Value)
	assert.Equal(t, SignalNone, res.Signal)
	assert.Equal(t, StepStatusComplete, step.Status())
}

func TestFlowControlStepRaisesContinue(t *testing.T) {
	step, err := NewFlowControlStep(FlowControlStepOptions{
		Name:        "next-iteration",
		Mode:        FlowControlContinue,
		Subject:     "skip",
		Operator:    "===",
		Value:       "skip",
		LogSuppress: true,
	})
	require.NoError(t, err)

	res, err := step.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, SignalContinue, res.Signal)
}

func TestFlowControlStepRejectsUnknownMode(t *testing.T) {
	_, err := NewFlowControlStep(FlowControlStepOptions{
		Name:     "bad-mode",
		Mode:     FlowControlType("goto"),
		Subject:  1,
		Operator: "==",
		Value:    1,
	})

	assert.Error(t, err)
}

func TestSkipStepRaisesSkip(t *testing.T) {
	step, err := NewSkipStep(SkipStepOptions{
		Name:        "maybe-skip",
		Subject:     Ref("feature_enabled"),
		Operator:    "==",
		Value:       false,
		LogSuppress: true,
	})
	require.NoError(t, err)

	shared := state.New(map[string]any{"feature_enabled": false})

	res, err := step.Execute(context.Background(), shared)
	require.NoError(t, err)

	assert.Equal(t, SignalSkip, res.Signal)
}

func TestSkipStepQuietWhenConditionFails(t *testing.T) {
	step, err := NewSkipStep(SkipStepOptions{
		Name:        "maybe-skip",
		Subject:     true,
		Operator:    "==",
		Value:       false,
		LogSuppress: true,
	})
	require.NoError(t, err)

	res, err := step.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, SignalNone, res.Signal)
}
