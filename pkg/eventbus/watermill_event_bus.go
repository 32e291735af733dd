package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/cascadeflow/cascade/pkg/events"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

			handler, exists := eb.subscriptions[eventType]
			if !exists {
				msg.Ack()

				continue
			}

			event := NewEventPayload(eventType)
			if event == nil {
				msg.Nack()

				continue
			}

			err := json.Unmarshal(msg.Payload, event)
			if err != nil {
				msg.Nack()

				continue
			}

			err = handler(ctx, event)
			if err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

// NewEventPayload maps an event type to an empty payload struct for
// unmarshalling. Unknown types return nil; transports reject those
// messages.
func NewEventPayload(eventType events.EventType) any {
	switch eventType {
	case events.StepCreated,
		events.StepStarted,
		events.StepCompleted,
		events.StepFailed,
		events.StepRetrying,
		events.StepWaiting,
		events.StepPending:
		return &events.StepEvent{}
	case events.StepDelayCompleted:
		return &events.DelayCompleted{}
	case events.WorkflowCreated,
		events.WorkflowStarted,
		events.WorkflowCompleted,
		events.WorkflowErrored,
		events.WorkflowFailed,
		events.WorkflowPaused,
		events.WorkflowResumed,
		events.WorkflowCancelled:
		return &events.WorkflowEvent{}
	case events.WorkflowStepAdded,
		events.WorkflowStepsAdded,
		events.WorkflowStepRemoved,
		events.WorkflowStepMoved,
		events.WorkflowStepShifted,
		events.WorkflowStepsCleared:
		return &events.StepListChanged{}
	default:
		return nil
	}
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
