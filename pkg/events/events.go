// Package events defines the closed event vocabulary emitted by steps and
// workflows, plus the typed payload structs delivered to subscribers.
package events

import (
	"time"
)

type EventType string

// Topic is the broadcast topic external event buses publish lifecycle
// events to. The in-process dispatcher does not use it.
const Topic = "cascade.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

// Step lifecycle events.
const (
	StepCreated        EventType = "step.created"
	StepStarted        EventType = "step.started"
	StepCompleted      EventType = "step.completed"
	StepFailed         EventType = "step.failed"
	StepRetrying       EventType = "step.retrying"
	StepWaiting        EventType = "step.waiting"
	StepPending        EventType = "step.pending"
	StepDelayCompleted EventType = "step.delay.completed"
)

// Workflow lifecycle and step-management events.
const (
	WorkflowCreated      EventType = "workflow.created"
	WorkflowStarted      EventType = "workflow.started"
	WorkflowCompleted    EventType = "workflow.completed"
	WorkflowErrored      EventType = "workflow.errored"
	WorkflowFailed       EventType = "workflow.failed"
	WorkflowPaused       EventType = "workflow.paused"
	WorkflowResumed      EventType = "workflow.resumed"
	WorkflowCancelled    EventType = "workflow.cancelled"
	WorkflowStepAdded    EventType = "workflow.step.added"
	WorkflowStepsAdded   EventType = "workflow.steps.added"
	WorkflowStepRemoved  EventType = "workflow.step.removed"
	WorkflowStepMoved    EventType = "workflow.step.moved"
	WorkflowStepShifted  EventType = "workflow.step.shifted"
	WorkflowStepsCleared EventType = "workflow.steps.cleared"
)

// StepChannels is the fixed channel set a step dispatcher is created with.
func StepChannels() []EventType {
	return []EventType{
		StepCreated,
		StepStarted,
		StepCompleted,
		StepFailed,
		StepRetrying,
		StepWaiting,
		StepPending,
		StepDelayCompleted,
	}
}

// WorkflowChannels is the fixed channel set a workflow dispatcher is
// created with.
func WorkflowChannels() []EventType {
	return []EventType{
		WorkflowCreated,
		WorkflowStarted,
		WorkflowCompleted,
		WorkflowErrored,
		WorkflowFailed,
		WorkflowPaused,
		WorkflowResumed,
		WorkflowCancelled,
		WorkflowStepAdded,
		WorkflowStepsAdded,
		WorkflowStepRemoved,
		WorkflowStepMoved,
		WorkflowStepShifted,
		WorkflowStepsCleared,
	}
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	StepID     string         `json:"step_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// StepEvent is the payload for every step lifecycle transition.
type StepEvent struct {
	BaseEvent

	StepName string        `json:"step_name"`
	StepType string        `json:"step_type"`
	Status   string        `json:"status"`
	Result   any           `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (e StepEvent) GetType() EventType { return e.Type }

// DelayCompleted carries the timing details of a finished delay.
type DelayCompleted struct {
	BaseEvent

	Elapsed time.Duration `json:"elapsed"`
	Target  *time.Time    `json:"target,omitempty"`
}

func (e DelayCompleted) GetType() EventType { return StepDelayCompleted }

// WorkflowEvent is the payload for workflow lifecycle transitions.
type WorkflowEvent struct {
	BaseEvent

	WorkflowName string        `json:"workflow_name"`
	Status       string        `json:"status"`
	StepIndex    int           `json:"step_index,omitempty"`
	OutputCount  int           `json:"output_count,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

func (e WorkflowEvent) GetType() EventType { return e.Type }

// StepListChanged is the payload for step-management operations on a
// workflow's step list (add, remove, move, shift, clear).
type StepListChanged struct {
	BaseEvent

	WorkflowName string `json:"workflow_name"`
	StepName     string `json:"step_name,omitempty"`
	Position     int    `json:"position,omitempty"`
	Count        int    `json:"count"`
}

func (e StepListChanged) GetType() EventType { return e.Type }
