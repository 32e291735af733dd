package web

import (
	"time"
)

// StartExecutionRequest starts a run of a registered definition.
type StartExecutionRequest struct {
	DefinitionID string         `json:"definition_id" validate:"required"`
	State        map[string]any `json:"state"`
}

// OutputResponse is the wire form of one per-step output record.
type OutputResponse struct {
	StepID   string `json:"step_id"`
	StepName string `json:"step_name"`
	Value    any    `json:"value,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ExecutionResponse is the wire form of an execution.
type ExecutionResponse struct {
	ID           string           `json:"id"`
	DefinitionID string           `json:"definition_id"`
	WorkflowID   string           `json:"workflow_id"`
	WorkflowName string           `json:"workflow_name"`
	Status       string           `json:"status"`
	CurrentIndex int              `json:"current_index"`
	Done         bool             `json:"done"`
	Error        string           `json:"error,omitempty"`
	Duration     time.Duration    `json:"duration,omitempty"`
	Output       []OutputResponse `json:"output,omitempty"`
}

func newExecutionResponse(execution *Execution) ExecutionResponse {
	result := execution.Snapshot()

	resp := ExecutionResponse{
		ID:           execution.ID,
		DefinitionID: execution.DefinitionID,
		WorkflowID:   execution.Workflow.ID(),
		WorkflowName: execution.Workflow.Name(),
		Status:       string(execution.Workflow.Status()),
		CurrentIndex: execution.Workflow.CurrentIndex(),
		Done:         result.Done,
		Duration:     execution.Workflow.Duration(),
	}

	if result.Err != nil {
		resp.Error = result.Err.Error()
	}

	for _, output := range result.Output {
		outputResp := OutputResponse{
			StepID:   output.StepID,
			StepName: output.StepName,
			Value:    output.Value,
		}
		if output.Err != nil {
			outputResp.Error = output.Err.Error()
		}

		resp.Output = append(resp.Output, outputResp)
	}

	return resp
}
