package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/cascadeflow/cascade/pkg/cmd"
	"github.com/cascadeflow/cascade/pkg/eventbus"
	"github.com/cascadeflow/cascade/pkg/events"
	"github.com/cascadeflow/cascade/pkg/otelhelper"
	"github.com/cascadeflow/cascade/pkg/registry"
)

var errMissingDefinitionFile = errors.New("a definition file argument is required")

func readDefinition(command *cli.Command) (*registry.Definition, error) {
	path := command.Args().First()
	if path == "" {
		return nil, errMissingDefinitionFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return registry.ParseDefinition(data)
}

func validateDefinition(ctx context.Context, logger *slog.Logger, command *cli.Command) error {
	def, err := readDefinition(command)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Definition is valid",
		"name", def.Name, "steps", len(def.Steps))

	return nil
}

func runDefinition(ctx context.Context, logger *slog.Logger, command *cli.Command) error {
	def, err := readDefinition(command)
	if err != nil {
		return err
	}

	reg := cmd.NewRegistry(logger)

	w, err := reg.BuildWorkflow(def)
	if err != nil {
		return err
	}

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracer, err := otelhelper.NewTracer(ctx, "cascade")
		if err != nil {
			return err
		}

		w.SetTracer(tracer)
	}

	bus, err := cmd.NewEventBus(ctx, command.String("event-bus"), command.String("redis-addr"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := bus.Close(); closeErr != nil {
			logger.Warn("Failed to close event bus", "error", closeErr)
		}
	}()

	forwarder := eventbus.NewForwarder(bus, logger)
	if err := forwarder.Attach(w.Dispatcher(), w.ID(), events.WorkflowChannels()); err != nil {
		return err
	}

	defer forwarder.Detach()

	output, err := w.Execute(ctx, nil)
	if err != nil {
		return err
	}

	for _, record := range output {
		if record.Err != nil {
			logger.WarnContext(ctx, "Step failed",
				"step_name", record.StepName, "error", record.Err)

			continue
		}

		logger.InfoContext(ctx, "Step completed",
			"step_name", record.StepName, "value", record.Value)
	}

	logger.InfoContext(ctx, "Workflow finished",
		"workflow_id", w.ID(),
		"status", string(w.Status()),
		"duration", w.Duration())

	return nil
}
