package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/state"
)

func emptyBody(t *testing.T) *Workflow {
	t.Helper()

	body, err := New(Options{Name: "body", LogSuppress: true})
	require.NoError(t, err)

	body.AddStep(mustAction(t, "noop", func(_ context.Context, _ *state.State) (any, error) {
		return nil, nil
	}))

	return body
}

func TestLoopStepWhileStopsOnCondition(t *testing.T) {
	shared := state.New(map[string]any{"count": 0})

	body, err := New(Options{Name: "body", LogSuppress: true})
	require.NoError(t, err)

	body.AddStep(mustAction(t, "increment", func(_ context.Context, _ *state.State) (any, error) {
		count, _ := shared.Get("count", 0).(int)

		return count + 1, shared.Set("count", count+1)
	}))

	loop, err := NewLoopStep(LoopStepOptions{
		Name:        "count-to-three",
		LoopType:    LoopWhile,
		Subject:     Ref("count"),
		Operator:    "<",
		Value:       3,
		Body:        body,
		LogSuppress: true,
	})
	require.NoError(t, err)

	res, err := loop.Execute(context.Background(), shared)
	require.NoError(t, err)

	assert.Equal(t, 3, loop.Iterations())
	assert.Equal(t, StopCauseCondition, loop.LastStopCause())
	assert.Equal(t, 3, shared.Get("count", nil))

	value, ok := res.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, value["iterations"])
	assert.Equal(t, string(StopCauseCondition), value["stop_cause"])
}

func TestLoopStepWhileHitsMaxIterations(t *testing.T) {
	loop, err := NewLoopStep(LoopStepOptions{
		Name:          "spinner",
		LoopType:      LoopWhile,
		Subject:       1,
		Operator:      "==",
		Value:         1,
		MaxIterations: 5,
		Body:          emptyBody(t),
		LogSuppress:   true,
	})
	require.NoError(t, err)

	_, err = loop.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, loop.Iterations())
	assert.Equal(t, StopCauseMaxIterations, loop.LastStopCause())
}

func TestLoopStepWhileDefaultGuard(t *testing.T) {
	loop, err := NewLoopStep(LoopStepOptions{
		Name:        "unbounded",
		LoopType:    LoopWhile,
		Subject:     1,
		Operator:    "==",
		Value:       1,
		Body:        emptyBody(t),
		LogSuppress: true,
	})
	require.NoError(t, err)

	_, err = loop.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, loop.Iterations())
	assert.Equal(t, StopCauseMaxIterations, loop.LastStopCause())
}

func TestLoopStepForEachVisitsAllItems(t *testing.T) {
	var visited []any

	body, err := New(Options{Name: "body", LogSuppress: true})
	require.NoError(t, err)

	body.AddStep(mustAction(t, "collect", func(_ context.Context, st *state.State) (any, error) {
		visited = append(visited, st.Get("item", nil))

		return st.Get("index", nil), nil
	}))

	loop, err := NewLoopStep(LoopStepOptions{
		Name:        "visitor",
		LoopType:    LoopForEach,
		Iterable:    []any{"a", "b", "c"},
		Body:        body,
		LogSuppress: true,
	})
	require.NoError(t, err)

	_, err = loop.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, loop.Iterations())
	assert.Equal(t, StopCauseExhausted, loop.LastStopCause())
	assert.Equal(t, []any{"a", "b", "c"}, visited)
}

func TestLoopStepForEachBodyBreak(t *testing.T) {
	var visited []any

	body, err := New(Options{Name: "body", LogSuppress: true})
	require.NoError(t, err)

	body.AddStep(mustAction(t, "collect", func(_ context.Context, st *state.State) (any, error) {
		visited = append(visited, st.Get("item", nil))

		return nil, nil
	}))

	breaker, err := NewFlowControlStep(FlowControlStepOptions{
		Name:        "stop-at-two",
		Mode:        FlowControlBreak,
		Subject:     Ref("index"),
		Operator:    "==",
		Value:       2,
		LogSuppress: true,
	})
	require.NoError(t, err)

	body.AddStep(breaker)

	items := make([]any, 10)
	for i := range items {
		items[i] = i * 10
	}

	loop, err := NewLoopStep(LoopStepOptions{
		Name:        "bounded-visitor",
		LoopType:    LoopForEach,
		Iterable:    items,
		Body:        body,
		LogSuppress: true,
	})
	require.NoError(t, err)

	_, err = loop.Execute(context.Background(), nil)
	require.NoError(t, err)

	// The break fires on the third item (index 2); that iteration still
	// finishes.
	assert.Equal(t, 3, loop.Iterations())
	assert.Equal(t, StopCauseBreak, loop.LastStopCause())
	assert.Equal(t, []any{0, 10, 20}, visited)
}

func TestLoopStepForEachRequiresIterable(t *testing.T) {
	_, err := NewLoopStep(LoopStepOptions{
		Name:     "no-items",
		LoopType: LoopForEach,
		Body:     emptyBody(t),
	})

	assert.ErrorContains(t, err, "iterable")
}

func TestLoopStepRequiresBody(t *testing.T) {
	_, err := NewLoopStep(LoopStepOptions{
		Name:     "bodyless",
		LoopType: LoopWhile,
		Subject:  1,
		Operator: "==",
		Value:    1,
	})

	assert.Error(t, err)
}

func TestLoopStepWhileRejectsBadOperator(t *testing.T) {
	_, err := NewLoopStep(LoopStepOptions{
		Name:     "bad-loop",
		LoopType: LoopWhile,
		Subject:  1,
		Operator: "approx",
		Value:    1,
		Body:     emptyBody(t),
	})

	assert.ErrorIs(t, err, ErrUnknownOperator)
}
