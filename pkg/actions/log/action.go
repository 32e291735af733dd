// Package log provides a builtin action that writes a templated message
// to the structured log.
package log

import (
	"context"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/state"
	"github.com/cascadeflow/cascade/pkg/template"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

const ID = "log"

// Factory builds the log action. Config keys: "message" (templated
// against state) and "level" (debug, info, warn, error; default info).
func Factory(config map[string]any) (workflow.Func, error) {
	message, _ := config["message"].(string)
	levelName, _ := config["level"].(string)

	level := parseLevel(levelName)

	return func(ctx context.Context, st *state.State) (any, error) {
		rendered, err := template.RenderState(message, st)
		if err != nil {
			return nil, err
		}

		slog.Default().Log(ctx, level, "Workflow log action", "message", rendered)

		return rendered, nil
	}, nil
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
