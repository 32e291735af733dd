package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/state"
)

func recordingCallable(label string, ran *[]string) Callable {
	return FuncCallable(func(_ context.Context, _ *state.State) (any, error) {
		*ran = append(*ran, label)

		return label, nil
	})
}

func TestSwitchStepFirstMatchWins(t *testing.T) {
	var ran []string

	first, err := NewCase(5, ">", 1, recordingCallable("first", &ran))
	require.NoError(t, err)

	// Also matches, but is declared later.
	second, err := NewCase(5, ">", 2, recordingCallable("second", &ran))
	require.NoError(t, err)

	step, err := NewSwitchStep(SwitchStepOptions{
		Name:        "router",
		Cases:       []*Case{first, second},
		LogSuppress: true,
	})
	require.NoError(t, err)

	res, err := step.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "first", res.Value)
	assert.Equal(t, []string{"first"}, ran)
	assert.True(t, first.Matched())
	assert.False(t, second.Matched())
}

func TestSwitchStepFallsToDefault(t *testing.T) {
	var ran []string

	miss, err := NewCase(1, "==", 2, recordingCallable("miss", &ran))
	require.NoError(t, err)

	step, err := NewSwitchStep(SwitchStepOptions{
		Name:        "router",
		Cases:       []*Case{miss},
		Default:     recordingCallable("default", &ran),
		LogSuppress: true,
	})
	require.NoError(t, err)

	res, err := step.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "default", res.Value)
	assert.Equal(t, []string{"default"}, ran)
}

func TestSwitchStepNoMatchNoDefault(t *testing.T) {
	miss, err := NewCase("a", "===", "b", Callable{})
	require.NoError(t, err)

	step, err := NewSwitchStep(SwitchStepOptions{
		Name:        "router",
		Cases:       []*Case{miss},
		LogSuppress: true,
	})
	require.NoError(t, err)

	res, err := step.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Nil(t, res.Value)
	assert.Equal(t, StepStatusComplete, step.Status())
}

func TestSwitchStepResolvesRefsPerCase(t *testing.T) {
	var ran []string

	cold, err := NewCase(Ref("temp"), "<", 10, recordingCallable("cold", &ran))
	require.NoError(t, err)

	warm, err := NewCase(Ref("temp"), "<", 25, recordingCallable("warm", &ran))
	require.NoError(t, err)

	step, err := NewSwitchStep(SwitchStepOptions{
		Name:        "thermostat",
		Cases:       []*Case{cold, warm},
		LogSuppress: true,
	})
	require.NoError(t, err)

	shared := state.New(map[string]any{"temp": 18})

	res, err := step.Execute(context.Background(), shared)
	require.NoError(t, err)

	assert.Equal(t, "warm", res.Value)
	assert.True(t, warm.Matched())
}

func TestSwitchStepRequiresCases(t *testing.T) {
	_, err := NewSwitchStep(SwitchStepOptions{Name: "empty"})

	assert.Error(t, err)
}

func TestSwitchStepCaseRejectsBadOperator(t *testing.T) {
	_, err := NewCase(1, "resembles", 2, Callable{})

	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestSwitchStepBranchFailure(t *testing.T) {
	boom := errors.New("branch error")

	kase, err := NewCase(1, "==", 1, FuncCallable(func(_ context.Context, _ *state.State) (any, error) {
		return nil, boom
	}))
	require.NoError(t, err)

	step, err := NewSwitchStep(SwitchStepOptions{
		Name:        "router",
		Cases:       []*Case{kase},
		LogSuppress: true,
	})
	require.NoError(t, err)

	_, err = step.Execute(context.Background(), nil)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, StepStatusFailed, step.Status())
}
