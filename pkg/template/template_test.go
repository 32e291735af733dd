package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/state"
	"github.com/cascadeflow/cascade/pkg/template"
)

func TestRenderPlainString(t *testing.T) {
	result, err := template.Render("hello {{.name}}", map[string]any{"name": "world"})

	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestRenderCoercesNumbers(t *testing.T) {
	result, err := template.Render("{{.count}}", map[string]any{"count": 42})

	require.NoError(t, err)
	assert.InEpsilon(t, 42.0, result, 0.001)
}

func TestRenderCoercesBooleans(t *testing.T) {
	result, err := template.Render("true", nil)

	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestRenderDecodesJSON(t *testing.T) {
	result, err := template.Render(`{"a": 1, "b": "two"}`, nil)

	require.NoError(t, err)

	decoded, ok := result.(map[string]any)
	require.True(t, ok)
	assert.InEpsilon(t, 1.0, decoded["a"], 0.001)
	assert.Equal(t, "two", decoded["b"])
}

func TestRenderInvalidTemplate(t *testing.T) {
	_, err := template.Render("{{.broken", nil)

	assert.ErrorContains(t, err, "failed to parse template")
}

func TestRenderStateExposesState(t *testing.T) {
	st := state.New(map[string]any{"user": map[string]any{"name": "ada"}})

	result, err := template.RenderState("{{.state.user.name}}", st)

	require.NoError(t, err)
	assert.Equal(t, "ada", result)
}

func TestRenderStateNilState(t *testing.T) {
	result, err := template.RenderState("static", nil)

	require.NoError(t, err)
	assert.Equal(t, "static", result)
}
