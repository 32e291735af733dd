package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logaction "github.com/cascadeflow/cascade/pkg/actions/log"
	"github.com/cascadeflow/cascade/pkg/state"
)

func TestLogActionRendersMessage(t *testing.T) {
	fn, err := logaction.Factory(map[string]any{
		"message": "processed {{.state.count}} items",
		"level":   "debug",
	})
	require.NoError(t, err)

	st := state.New(map[string]any{"count": 7})

	result, err := fn(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, "processed 7 items", result)
}

func TestLogActionInvalidTemplate(t *testing.T) {
	fn, err := logaction.Factory(map[string]any{"message": "{{.broken"})
	require.NoError(t, err)

	_, err = fn(context.Background(), state.New(nil))

	assert.Error(t, err)
}
