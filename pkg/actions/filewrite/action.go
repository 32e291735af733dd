// Package filewrite provides a builtin action that writes a rendered
// value from workflow state to a file on disk.
package filewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cascadeflow/cascade/pkg/state"
	"github.com/cascadeflow/cascade/pkg/template"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

const ID = "file_write"

var (
	errMissingFileName = errors.New("file_write action requires a file_name")
	errMissingContent  = errors.New("file_write action requires content")
)

// Factory builds the file_write action. Config keys: "file_name"
// (required), "directory" (default os.TempDir()), "content" (templated
// against state, required), "overwrite" (default false) and
// "result_key" (default "file_write").
func Factory(config map[string]any) (workflow.Func, error) {
	fileName, _ := config["file_name"].(string)
	if fileName == "" {
		return nil, errMissingFileName
	}

	content, _ := config["content"].(string)
	if content == "" {
		return nil, errMissingContent
	}

	directory, _ := config["directory"].(string)
	if directory == "" {
		directory = os.TempDir()
	}

	overwrite, _ := config["overwrite"].(bool)

	resultKey, _ := config["result_key"].(string)
	if resultKey == "" {
		resultKey = "file_write"
	}

	return func(_ context.Context, st *state.State) (any, error) {
		rendered, err := template.RenderState(content, st)
		if err != nil {
			return nil, err
		}

		data, err := encodeContent(rendered)
		if err != nil {
			return nil, err
		}

		fullPath := filepath.Join(directory, fileName)

		if !overwrite {
			if _, err := os.Stat(fullPath); err == nil {
				return nil, fmt.Errorf("file %q already exists and overwrite is false", fullPath)
			}
		}

		if err := os.MkdirAll(directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %q: %w", directory, err)
		}

		if err := os.WriteFile(fullPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write file %q: %w", fullPath, err)
		}

		result := map[string]any{
			"file_path":     fullPath,
			"bytes_written": len(data),
		}

		if err := st.Set(resultKey, result); err != nil {
			return nil, err
		}

		return result, nil
	}, nil
}

// encodeContent keeps strings byte for byte and serializes structured
// template output as indented JSON.
func encodeContent(rendered any) ([]byte, error) {
	if s, ok := rendered.(string); ok {
		return []byte(s), nil
	}

	data, err := json.MarshalIndent(rendered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode content as JSON: %w", err)
	}

	return data, nil
}
