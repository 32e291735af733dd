// Package main provides the cascade command-line interface.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/cascadeflow/cascade/pkg/log"
)

func main() {
	logger := log.WithModule("cli")

	cmd := &cli.Command{
		Name:                  "cascade",
		Usage:                 "Compose and run workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate a workflow definition file",
				ArgsUsage: "<definition.json>",
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return validateDefinition(ctx, logger, command)
				},
			},
			{
				Name:      "run",
				Aliases:   []string{"r"},
				Usage:     "Run a workflow definition to completion",
				ArgsUsage: "<definition.json>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "event-bus",
						Usage:   "Event bus provider (memory, kafka, redis)",
						Value:   "memory",
						Sources: cli.EnvVars("EVENT_BUS"),
					},
					&cli.StringFlag{
						Name:    "redis-addr",
						Usage:   "Redis address for the redis event bus",
						Value:   "localhost:6379",
						Sources: cli.EnvVars("REDIS_ADDR"),
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return runDefinition(ctx, logger, command)
				},
			},
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Start the HTTP API server",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Port to run the API server on",
						Value:   defaultPort,
						Sources: cli.EnvVars("PORT"),
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"))

					return serveAPI(ctx, logger, command)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
