// Package redisstream provides a Redis Streams backed event bus for
// deployments that already run Redis instead of a Kafka cluster.
package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/cascadeflow/cascade/pkg/eventbus"
	"github.com/cascadeflow/cascade/pkg/events"
)

const (
	payloadField   = "payload"
	keyField       = "key"
	eventTypeField = "event_type"

	readBlock = time.Second
	readCount = 10
)

// Config holds the Redis connection and consumer group settings.
type Config struct {
	Addr          string
	Password      string
	DB            int
	Stream        string
	ConsumerGroup string
	ConsumerName  string
}

// EventBus publishes lifecycle events onto a Redis stream with XADD and
// consumes them through a consumer group, so several processes can share
// the work of handling them.
type EventBus struct {
	client redis.UniversalClient
	config Config
	logger *slog.Logger

	mu            sync.RWMutex
	subscriptions map[events.EventType]eventbus.EventHandler

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewEventBus(ctx context.Context, config Config, logger *slog.Logger) (*EventBus, error) {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	if config.Stream == "" {
		config.Stream = events.Topic
	}

	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "cascade"
	}

	if config.ConsumerName == "" {
		config.ConsumerName = "consumer-" + uuid.New().String()[:8]
	}

	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &EventBus{
		client: client,
		config: config,
		logger: logger.With(
			"module", "redisstream_event_bus",
			"stream", config.Stream,
			"consumer_group", config.ConsumerGroup,
		),
		subscriptions: make(map[events.EventType]eventbus.EventHandler),
		stopCh:        make(chan struct{}),
	}, nil
}

func (eb *EventBus) GenerateID() string {
	return uuid.New().String()
}

func (eb *EventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return eb.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eb.config.Stream,
		Values: map[string]any{
			payloadField:   string(payload),
			keyField:       key,
			eventTypeField: string(event.GetType()),
		},
	}).Err()
}

func (eb *EventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

// Subscribe creates the consumer group if needed and starts the consume
// loop. It returns once the loop is running.
func (eb *EventBus) Subscribe(ctx context.Context) error {
	err := eb.client.XGroupCreateMkStream(ctx, eb.config.Stream, eb.config.ConsumerGroup, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	eb.wg.Add(1)

	go eb.consume(ctx)

	return nil
}

func isBusyGroup(err error) bool {
	// XGROUP CREATE on an existing group fails with BUSYGROUP.
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func (eb *EventBus) consume(ctx context.Context) {
	defer eb.wg.Done()

	eb.logger.InfoContext(ctx, "Starting stream consumer", "consumer", eb.config.ConsumerName)

	for {
		select {
		case <-eb.stopCh:
			eb.logger.Info("Stream consumer stopped")

			return
		case <-ctx.Done():
			eb.logger.Info("Context cancelled, stopping stream consumer")

			return
		default:
			if err := eb.readBatch(ctx); err != nil {
				eb.logger.ErrorContext(ctx, "Error reading stream", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (eb *EventBus) readBatch(ctx context.Context) error {
	streams, err := eb.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    eb.config.ConsumerGroup,
		Consumer: eb.config.ConsumerName,
		Streams:  []string{eb.config.Stream, ">"},
		Count:    readCount,
		Block:    readBlock,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			eb.handleMessage(ctx, msg)
		}
	}

	return nil
}

func (eb *EventBus) handleMessage(ctx context.Context, msg redis.XMessage) {
	eventType := events.EventType(stringValue(msg.Values[eventTypeField]))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		eb.ack(ctx, msg.ID)

		return
	}

	event := eventbus.NewEventPayload(eventType)
	if event == nil {
		eb.logger.Warn("Unknown event type on stream", "event_type", eventType, "message_id", msg.ID)
		eb.ack(ctx, msg.ID)

		return
	}

	payload := stringValue(msg.Values[payloadField])
	if err := json.Unmarshal([]byte(payload), event); err != nil {
		eb.logger.Warn("Failed to decode event payload", "error", err, "message_id", msg.ID)
		eb.ack(ctx, msg.ID)

		return
	}

	if err := handler(ctx, event); err != nil {
		// Left unacked; the pending entry can be reclaimed later.
		eb.logger.ErrorContext(ctx, "Event handler failed", "error", err, "event_type", eventType)

		return
	}

	eb.ack(ctx, msg.ID)
}

func (eb *EventBus) ack(ctx context.Context, messageID string) {
	if err := eb.client.XAck(ctx, eb.config.Stream, eb.config.ConsumerGroup, messageID).Err(); err != nil {
		eb.logger.Warn("Failed to ack message", "error", err, "message_id", messageID)
	}
}

func (eb *EventBus) Close() error {
	eb.stopOnce.Do(func() { close(eb.stopCh) })
	eb.wg.Wait()

	return eb.client.Close()
}

func stringValue(v any) string {
	s, _ := v.(string)

	return s
}
