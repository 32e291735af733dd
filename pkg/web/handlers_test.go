package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/log"
	"github.com/cascadeflow/cascade/pkg/registry"
	"github.com/cascadeflow/cascade/pkg/state"
	"github.com/cascadeflow/cascade/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	reg := registry.NewRegistry(log.Discard())
	reg.RegisterAction("mark", registry.StaticAction(
		func(_ context.Context, st *state.State) (any, error) {
			return "marked", st.Set("marked", true)
		}))

	api := web.NewAPI(log.Discard(), reg)

	return api.App()
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

const simpleDefinition = `{
	"name": "marker",
	"steps": [{"name": "mark", "type": "action", "action": "mark"}]
}`

func registerDefinition(t *testing.T, app *fiber.App) string {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/definitions", simpleDefinition)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var def registry.Definition
	require.NoError(t, json.Unmarshal(body, &def))
	require.NotEmpty(t, def.ID)

	return def.ID
}

func TestRegisterDefinition(t *testing.T) {
	app := setupTestApp(t)

	id := registerDefinition(t, app)

	resp, body := doJSON(t, app, http.MethodGet, "/definitions/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var def registry.Definition
	require.NoError(t, json.Unmarshal(body, &def))
	assert.Equal(t, "marker", def.Name)
}

func TestRegisterDefinitionRejectsInvalid(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/definitions", `{"name": ""}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterDefinitionConflict(t *testing.T) {
	app := setupTestApp(t)

	withID := `{
		"id": "def-fixed",
		"name": "marker",
		"steps": [{"name": "mark", "type": "action", "action": "mark"}]
	}`

	resp, _ := doJSON(t, app, http.MethodPost, "/definitions", withID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/definitions", withID)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDeleteDefinition(t *testing.T) {
	app := setupTestApp(t)
	id := registerDefinition(t, app)

	resp, _ := doJSON(t, app, http.MethodDelete, "/definitions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/definitions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartExecution(t *testing.T) {
	app := setupTestApp(t)
	id := registerDefinition(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/executions", web.StartExecutionRequest{
		DefinitionID: id,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var execution web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &execution))
	require.NotEmpty(t, execution.ID)
	assert.Equal(t, id, execution.DefinitionID)

	// The run is asynchronous; poll until it finishes.
	require.Eventually(t, func() bool {
		resp, body := doJSON(t, app, http.MethodGet, "/executions/"+execution.ID, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}

		var current web.ExecutionResponse
		if err := json.Unmarshal(body, &current); err != nil {
			return false
		}

		return current.Done && current.Status == "completed"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartExecutionUnknownDefinition(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions", web.StartExecutionRequest{
		DefinitionID: "def-missing",
	})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartExecutionUnregisteredActionIsServerError(t *testing.T) {
	app := setupTestApp(t)

	// Schema-valid at registration time; the action is only resolved
	// when the execution is built.
	withUnknownAction := `{
		"name": "orphan",
		"steps": [{"name": "run", "type": "action", "action": "unregistered"}]
	}`

	resp, body := doJSON(t, app, http.MethodPost, "/definitions", withUnknownAction)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var def registry.Definition
	require.NoError(t, json.Unmarshal(body, &def))

	resp, body = doJSON(t, app, http.MethodPost, "/executions", web.StartExecutionRequest{
		DefinitionID: def.ID,
	})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), "not registered")
}

func TestStartExecutionRequiresDefinitionID(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions", web.StartExecutionRequest{})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResumeExecutionRequiresPausedState(t *testing.T) {
	app := setupTestApp(t)
	id := registerDefinition(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/executions", web.StartExecutionRequest{
		DefinitionID: id,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var execution web.ExecutionResponse
	require.NoError(t, json.Unmarshal(body, &execution))

	require.Eventually(t, func() bool {
		_, body := doJSON(t, app, http.MethodGet, "/executions/"+execution.ID, nil)

		var current web.ExecutionResponse

		return json.Unmarshal(body, &current) == nil && current.Done
	}, 2*time.Second, 10*time.Millisecond)

	resp, _ = doJSON(t, app, http.MethodPost, "/executions/"+execution.ID+"/resume", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetExecutionNotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/executions/exec-missing", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListActions(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/actions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Actions []string `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload.Actions, "mark")
}
