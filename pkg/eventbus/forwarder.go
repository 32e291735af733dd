package eventbus

import (
	"context"
	"log/slog"

	"github.com/cascadeflow/cascade/pkg/dispatcher"
	"github.com/cascadeflow/cascade/pkg/events"
)

// Forwarder bridges an in-process dispatcher onto an event bus: every
// event the dispatcher emits on the attached channels is republished for
// external consumers. Publish failures are logged, never propagated back
// to the emitting step.
type Forwarder struct {
	bus    EventBus
	logger *slog.Logger

	subscriptions []attachedSubscription
}

type attachedSubscription struct {
	dispatcher   *dispatcher.Dispatcher
	subscription dispatcher.Subscription
}

func NewForwarder(bus EventBus, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Forwarder{
		bus:    bus,
		logger: logger.With("module", "event_forwarder"),
	}
}

// Attach subscribes the forwarder to the given channels of a dispatcher,
// keyed by the owning workflow or step id.
func (f *Forwarder) Attach(d *dispatcher.Dispatcher, key string, channels []events.EventType) error {
	for _, channel := range channels {
		sub, err := d.On(channel, func(payload any) {
			event, ok := payload.(Event)
			if !ok {
				return
			}

			if err := f.bus.Publish(context.Background(), key, event); err != nil {
				f.logger.Warn("Failed to forward event",
					"event_type", event.GetType(), "key", key, "error", err)
			}
		})
		if err != nil {
			return err
		}

		f.subscriptions = append(f.subscriptions, attachedSubscription{
			dispatcher:   d,
			subscription: sub,
		})
	}

	return nil
}

// Detach removes every subscription the forwarder holds.
func (f *Forwarder) Detach() {
	for _, attached := range f.subscriptions {
		attached.dispatcher.Off(attached.subscription)
	}

	f.subscriptions = nil
}
