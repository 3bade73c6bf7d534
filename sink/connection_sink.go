package sink

import (
	"context"

	"pair-chat/domain/event"
	"pair-chat/errors"
)

// ConnectionSink buffers the events of one live connection.
// The transport's writer goroutine drains Events.
type ConnectionSink struct {
	events chan event.DomainEvent
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{events: make(chan event.DomainEvent, max(bufferSize, 1))}
}

// Consume is called by the presence router.
// It waits for buffer space until ctx is done, then gives up on this
// connection only.
func (s *ConnectionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	default:
	}
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return errors.ErrSlowConsumer
	}
}

func (s *ConnectionSink) Events() <-chan event.DomainEvent {
	return s.events
}
