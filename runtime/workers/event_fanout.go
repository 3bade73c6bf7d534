package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pair-chat/contract"
	"pair-chat/domain/event"
)

// EventFanout hands every delivered domain event to the permanent sinks
// (search index, broker relay).
//
// It provides best-effort fan-out with no guarantees regarding delivery or
// retries: live connections are served by the presence router before the
// event ever reaches this worker.
type EventFanout struct {
	log          *slog.Logger
	domainEvents <-chan event.DomainEvent
	sinkTimeout  time.Duration
	sinks        []contract.EventSink
}

func NewEventFanout(log *slog.Logger, domainEvents <-chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, domainEvents: domainEvents, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.domainEvents:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping domain event fan-out")
			return nil
		}
	}
}

// Fanout gives each sink at most sinkTimeout to consume the event and waits
// for all of them, so events reach a given sink in order.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var wg sync.WaitGroup
	for _, sink := range w.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, evt); err != nil {
				w.log.Warn("Sink failed to consume event",
					"conversation_id", evt.ConversationID(), "error", err)
			}
		}()
	}
	wg.Wait()
}
