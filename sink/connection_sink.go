// Package sink provides the per-connection event buffer between the
// fanout worker and a transport's write loop.
package sink

import (
	"context"
	"sync"

	"chat-relay/domain/event"
)

// ConnectionSink buffers events for one live connection. The transport
// write loop drains Events; the fanout worker fills it via Consume.
type ConnectionSink struct {
	Events    chan event.DomainEvent
	closeOnce sync.Once
	closed    chan struct{}
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		Events: make(chan event.DomainEvent, bufferSize),
		closed: make(chan struct{}),
	}
}

// Consume redirects the event to the owning connection's channel. The
// transport's write loop takes it from there. A full buffer blocks only
// until the delivery context expires, then the event is lost for this
// connection; delivery to a closed connection is a no-op.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.closed:
		return nil
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the connection gone. Subsequent Consume calls become
// no-ops; the write loop can keep draining what was already buffered.
func (s *ConnectionSink) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}
