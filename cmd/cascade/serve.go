package main

import (
	"context"
	"log/slog"

	cli "github.com/urfave/cli/v3"

	"github.com/cascadeflow/cascade/pkg/cmd"
	"github.com/cascadeflow/cascade/pkg/web"
)

const defaultPort = 8088

func serveAPI(ctx context.Context, logger *slog.Logger, command *cli.Command) error {
	reg := cmd.NewRegistry(logger)
	api := web.NewAPI(logger, reg)

	port := command.Int("port")
	logger.InfoContext(ctx, "Starting API server", "port", port)

	return api.Start(port)
}
