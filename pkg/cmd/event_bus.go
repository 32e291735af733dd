// Package cmd provides common initialization for the command-line
// entrypoints.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/cascadeflow/cascade/pkg/channels/gochannel"
	"github.com/cascadeflow/cascade/pkg/channels/kafka"
	"github.com/cascadeflow/cascade/pkg/eventbus"
	"github.com/cascadeflow/cascade/pkg/eventbus/redisstream"
)

// NewEventBus creates an event bus for the given provider: "memory"
// (in-process), "kafka" or "redis".
func NewEventBus(ctx context.Context, provider, redisAddr string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "", "memory":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "cascade")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "redis":
		bus, err := redisstream.NewEventBus(ctx, redisstream.Config{Addr: redisAddr}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis event bus: %w", err)
		}

		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
