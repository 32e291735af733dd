// Package transform provides a builtin action that derives a new value
// from workflow state through a template expression.
package transform

import (
	"context"
	"errors"

	"github.com/cascadeflow/cascade/pkg/state"
	"github.com/cascadeflow/cascade/pkg/template"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

const ID = "transform"

var errMissingExpression = errors.New("transform action requires an expression")

// Factory builds the transform action. Config keys: "expression"
// (templated against state, required) and "result_key" (default
// "transformed").
func Factory(config map[string]any) (workflow.Func, error) {
	expression, _ := config["expression"].(string)
	if expression == "" {
		return nil, errMissingExpression
	}

	resultKey, _ := config["result_key"].(string)
	if resultKey == "" {
		resultKey = "transformed"
	}

	return func(_ context.Context, st *state.State) (any, error) {
		result, err := template.RenderState(expression, st)
		if err != nil {
			return nil, err
		}

		if err := st.Set(resultKey, result); err != nil {
			return nil, err
		}

		return result, nil
	}, nil
}
