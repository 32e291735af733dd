// Package web exposes workflow definitions and executions over HTTP.
package web

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/cascadeflow/cascade/pkg/registry"
	"github.com/cascadeflow/cascade/pkg/workflow"
)

type APIHandlers struct {
	definitions *DefinitionStore
	executions  *ExecutionStore
	registry    *registry.Registry
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	definitions *DefinitionStore,
	executions *ExecutionStore,
	reg *registry.Registry,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandlers{
		definitions: definitions,
		executions:  executions,
		registry:    reg,
		validator:   validate,
		logger:      logger.With("module", "api"),
	}
}

// RegisterDefinition accepts a raw workflow definition, validates it
// against the schema and stores it.
func (h *APIHandlers) RegisterDefinition(c fiber.Ctx) error {
	def, err := registry.ParseDefinition(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}

	if def.ID != "" {
		if _, getErr := h.definitions.Get(def.ID); getErr == nil {
			return conflict(c, "definition id already registered")
		}
	}

	id := h.definitions.Save(def)
	h.logger.Info("Registered definition", "definition_id", id, "name", def.Name)

	return c.Status(fiber.StatusCreated).JSON(def)
}

func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"definitions": h.definitions.List()})
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	def, err := h.definitions.Get(c.Params("id"))
	if err != nil {
		return notFound(c, "Definition not found")
	}

	return c.JSON(def)
}

func (h *APIHandlers) DeleteDefinition(c fiber.Ctx) error {
	if err := h.definitions.Delete(c.Params("id")); err != nil {
		return notFound(c, "Definition not found")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// StartExecution builds a workflow from a stored definition and runs it
// in the background.
func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.definitions.Get(req.DefinitionID)
	if err != nil {
		return notFound(c, "Definition not found")
	}

	// The stored definition already passed schema validation, so a
	// build failure here means the registry lacks a referenced action.
	w, err := h.registry.BuildWorkflow(def)
	if err != nil {
		h.logger.Error("Failed to build workflow", "definition_id", req.DefinitionID, "error", err)

		return internalError(c, err)
	}

	execution := &Execution{DefinitionID: req.DefinitionID, Workflow: w}
	id := h.executions.Save(execution)

	go h.run(execution, req.State)

	h.logger.Info("Started execution", "execution_id", id, "definition_id", req.DefinitionID)

	return c.Status(fiber.StatusAccepted).JSON(newExecutionResponse(execution))
}

func (h *APIHandlers) run(execution *Execution, initial map[string]any) {
	output, err := execution.Workflow.Execute(context.Background(), initial)
	execution.Finish(output, err)

	if err != nil {
		h.logger.Warn("Execution failed", "execution_id", execution.ID, "error", err)
	}
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	executions := h.executions.List()

	responses := make([]ExecutionResponse, 0, len(executions))
	for _, execution := range executions {
		responses = append(responses, newExecutionResponse(execution))
	}

	return c.JSON(fiber.Map{"executions": responses})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executions.Get(c.Params("id"))
	if err != nil {
		return notFound(c, "Execution not found")
	}

	return c.JSON(newExecutionResponse(execution))
}

// PauseExecution requests a cooperative pause at the next step boundary.
func (h *APIHandlers) PauseExecution(c fiber.Ctx) error {
	execution, err := h.executions.Get(c.Params("id"))
	if err != nil {
		return notFound(c, "Execution not found")
	}

	execution.Workflow.Pause()

	return c.JSON(newExecutionResponse(execution))
}

// ResumeExecution continues a paused execution from its cursor.
func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	execution, err := h.executions.Get(c.Params("id"))
	if err != nil {
		return notFound(c, "Execution not found")
	}

	if execution.Workflow.Status() != workflow.WorkflowStatusPaused {
		return conflict(c, "execution is not paused")
	}

	execution.Restarted()

	go func() {
		output, resumeErr := execution.Workflow.Resume(context.Background())
		execution.Finish(output, resumeErr)
	}()

	return c.Status(fiber.StatusAccepted).JSON(newExecutionResponse(execution))
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	execution, err := h.executions.Get(c.Params("id"))
	if err != nil {
		return notFound(c, "Execution not found")
	}

	execution.Workflow.Cancel()

	return c.JSON(newExecutionResponse(execution))
}

func (h *APIHandlers) ListActions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.ActionNames()})
}
