// Package registry turns declarative JSON workflow definitions into
// executable workflows, resolving named actions registered by the host
// program.
package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cascadeflow/cascade/pkg/workflow"
)

// Definition is the declarative form of a workflow.
type Definition struct {
	ID                 string           `json:"id,omitempty"`
	Name               string           `json:"name"`
	State              map[string]any   `json:"state,omitempty"`
	ExitOnFailure      *bool            `json:"exit_on_failure,omitempty"`
	FreezeOnCompletion bool             `json:"freeze_on_completion,omitempty"`
	Steps              []StepDefinition `json:"steps"`
}

// StepDefinition is one step inside a definition. The fields that apply
// depend on Type; the schema enforces the required ones per type.
type StepDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`

	// action
	Action string         `json:"action,omitempty"`
	Config map[string]any `json:"config,omitempty"`

	// conditional, flow_control, skip, loop (while)
	Condition *ConditionDefinition `json:"condition,omitempty"`

	// conditional
	Left  *StepDefinition `json:"left,omitempty"`
	Right *StepDefinition `json:"right,omitempty"`

	// switch
	Cases   []CaseDefinition `json:"cases,omitempty"`
	Default string           `json:"default,omitempty"`

	// flow_control
	Mode string `json:"mode,omitempty"`

	// delay
	DelayType string `json:"delay_type,omitempty"`
	Timestamp any    `json:"timestamp,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Cron      string `json:"cron,omitempty"`

	// loop
	LoopType      string           `json:"loop_type,omitempty"`
	Iterable      []any            `json:"iterable,omitempty"`
	MaxIterations int              `json:"max_iterations,omitempty"`
	Body          []StepDefinition `json:"body,omitempty"`
}

// ConditionDefinition is the JSON form of a three-part condition.
// Operands written as {"ref": "dot.path"} resolve against workflow state
// at evaluation time.
type ConditionDefinition struct {
	Subject  any    `json:"subject"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// CaseDefinition is one arm of a switch step.
type CaseDefinition struct {
	Subject  any    `json:"subject"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	Action   string `json:"action"`
}

// ParseDefinition validates raw JSON against the definition schema and
// decodes it.
func ParseDefinition(data []byte) (*Definition, error) {
	if err := ValidateDefinition(data); err != nil {
		return nil, err
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}

	return &def, nil
}

// decodeOperand maps a JSON operand onto a condition operand. The
// {"ref": path} form becomes a state reference.
func decodeOperand(raw any) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}

	path, ok := obj["ref"].(string)
	if !ok || len(obj) != 1 {
		return raw
	}

	return workflow.Ref(path)
}

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	return d, nil
}
