package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/observability"
)

// EventFanout delivers hub events to the sinks resolved from the
// session registry: room-scoped events reach the room's subscribers,
// events with no room reach every registered session, and typing
// events skip their own sender.
//
// It provides best-effort fan-out with no guarantees regarding
// delivery, durability, or retries. A single EventFanout consumes the
// hub channel, so delivery order matches publish order.
type EventFanout struct {
	Log         *slog.Logger
	registry    contract.ISessionRegistry
	events      <-chan event.DomainEvent
	stats       *observability.Monitor
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.ISessionRegistry,
	events <-chan event.DomainEvent, stats *observability.Monitor,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		Log:         log,
		registry:    registry,
		events:      events,
		stats:       stats,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout resolves the target sinks for one event and delivers it to
// each under the configured timeout. A slow or closed sink is skipped,
// never retried: delivery to a gone connection is a no-op.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var sinks []contract.EventSink
	switch e := evt.(type) {
	case event.TypingUpdated:
		sinks = w.registry.SinksForRoom(e.Room, e.SenderSession)
	default:
		if evt.RoomName() == "" {
			sinks = w.registry.AllSinks()
		} else {
			sinks = w.registry.SinksForRoom(evt.RoomName(), "")
		}
	}

	for _, sink := range sinks {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(deliveryCtx, evt); err != nil {
			w.stats.IncrDeliveryFailures()
			w.Log.Debug("sink delivery failed", "room", evt.RoomName(), "error", err)
		}
		cancel()
	}
	w.stats.IncrEventsFanned()
}
