package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadeflow/cascade/pkg/channels/gochannel"
	"github.com/cascadeflow/cascade/pkg/dispatcher"
	"github.com/cascadeflow/cascade/pkg/eventbus"
	"github.com/cascadeflow/cascade/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBusRoundTrip(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	received := make(chan any, 1)

	err := bus.Handle(events.WorkflowCompleted, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.WorkflowEvent{
		BaseEvent: events.BaseEvent{
			ID:         "evt-test",
			Type:       events.WorkflowCompleted,
			Timestamp:  time.Now().UTC(),
			WorkflowID: "wf-test",
		},
		WorkflowName: "pipeline",
		Status:       "completed",
	}

	require.NoError(t, bus.Publish(ctx, "wf-test", sent))

	select {
	case event := <-received:
		got, ok := event.(*events.WorkflowEvent)
		require.True(t, ok)
		assert.Equal(t, "wf-test", got.WorkflowID)
		assert.Equal(t, "pipeline", got.WorkflowName)
		assert.Equal(t, events.WorkflowCompleted, got.GetType())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBusIgnoresUnhandledTypes(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	received := make(chan any, 1)

	err := bus.Handle(events.StepFailed, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.StepEvent{
		BaseEvent: events.BaseEvent{Type: events.StepCompleted, StepID: "step-test"},
	}
	require.NoError(t, bus.Publish(ctx, "step-test", sent))

	select {
	case <-received:
		t.Fatal("handler ran for an unsubscribed event type")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewEventPayloadMapping(t *testing.T) {
	assert.IsType(t, &events.StepEvent{}, eventbus.NewEventPayload(events.StepStarted))
	assert.IsType(t, &events.DelayCompleted{}, eventbus.NewEventPayload(events.StepDelayCompleted))
	assert.IsType(t, &events.WorkflowEvent{}, eventbus.NewEventPayload(events.WorkflowPaused))
	assert.IsType(t, &events.StepListChanged{}, eventbus.NewEventPayload(events.WorkflowStepAdded))
	assert.Nil(t, eventbus.NewEventPayload(events.EventType("unknown")))
}

func TestForwarderRepublishesDispatcherEvents(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	received := make(chan any, 1)

	err := bus.Handle(events.WorkflowStarted, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	d := dispatcher.New(events.WorkflowChannels())

	forwarder := eventbus.NewForwarder(bus, nil)
	require.NoError(t, forwarder.Attach(d, "wf-fwd", events.WorkflowChannels()))

	d.Emit(events.WorkflowStarted, events.WorkflowEvent{
		BaseEvent:    events.BaseEvent{Type: events.WorkflowStarted, WorkflowID: "wf-fwd"},
		WorkflowName: "forwarded",
	})

	select {
	case event := <-received:
		got, ok := event.(*events.WorkflowEvent)
		require.True(t, ok)
		assert.Equal(t, "wf-fwd", got.WorkflowID)
	case <-time.After(2 * time.Second):
		t.Fatal("forwarded event was not delivered")
	}

	forwarder.Detach()

	d.Emit(events.WorkflowStarted, events.WorkflowEvent{
		BaseEvent: events.BaseEvent{Type: events.WorkflowStarted, WorkflowID: "wf-fwd"},
	})

	select {
	case <-received:
		t.Fatal("detached forwarder still republished")
	case <-time.After(100 * time.Millisecond):
	}
}
