// Package httprequest provides a builtin action that performs an HTTP
// request and stores the response on workflow state.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cascadeflow/cascade/pkg/state"
	"github.com/cascadeflow/cascade/pkg/template"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

const ID = "http_request"

const defaultTimeout = 30 * time.Second

var errMissingURL = errors.New("http_request action requires a url")

// Factory builds the http_request action. Config keys: "url" (templated,
// required), "method" (default GET), "headers", "body" (templated),
// "timeout_seconds" and "result_key" (default "http_response").
func Factory(config map[string]any) (workflow.Func, error) {
	rawURL, _ := config["url"].(string)
	if rawURL == "" {
		return nil, errMissingURL
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)

	body, _ := config["body"].(string)

	resultKey, _ := config["result_key"].(string)
	if resultKey == "" {
		resultKey = "http_response"
	}

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if value, ok := v.(string); ok {
				headers[k] = value
			}
		}
	}

	timeout := defaultTimeout
	if seconds, ok := config["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, st *state.State) (any, error) {
		url, err := renderString(rawURL, st)
		if err != nil {
			return nil, err
		}

		var reader io.Reader

		if body != "" {
			rendered, err := renderString(body, st)
			if err != nil {
				return nil, err
			}

			reader = strings.NewReader(rendered)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}

		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		result := map[string]any{
			"status_code": resp.StatusCode,
			"body":        decodeBody(raw),
		}

		if err := st.Set(resultKey, result); err != nil {
			return nil, err
		}

		return result, nil
	}, nil
}

// renderString renders a template and flattens the result back to text:
// structured values re-encode as JSON, scalars format plainly.
func renderString(input string, st *state.State) (string, error) {
	rendered, err := template.RenderState(input, st)
	if err != nil {
		return "", err
	}

	switch value := rendered.(type) {
	case string:
		return value, nil
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", err
		}

		return string(encoded), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

// decodeBody returns structured JSON when the response parses, the raw
// string otherwise.
func decodeBody(raw []byte) any {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return decoded
	}

	return string(raw)
}
