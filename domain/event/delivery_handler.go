package event

import "log/slog"

// DeliveryHandler tallies the outcome of the send path:
// delivered messages, failed sends and events dropped for slow connections.
type DeliveryHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewDeliveryHandler(log *slog.Logger, counter *Counter) *DeliveryHandler {
	return &DeliveryHandler{log: log, counter: counter}
}

func (h *DeliveryHandler) Handle(event Event) {
	switch event.Type {
	case MessageDeliveredType:
		h.counter.Increment(MessageDeliveredType)
	case SendFailedType:
		h.counter.Increment(SendFailedType)
		if p, ok := event.Payload.(SendFailed); ok {
			h.log.Debug("Send failed", "conversation_id", p.ConversationID, "reason", p.Reason)
		}
	case DeliveryDroppedType:
		h.counter.Increment(DeliveryDroppedType)
		if p, ok := event.Payload.(DeliveryDropped); ok {
			h.log.Warn("Event dropped for slow connection",
				"connection_id", p.ConnectionID, "conversation_id", p.ConversationID)
		}
	}
}
