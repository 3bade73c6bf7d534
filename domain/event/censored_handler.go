package event

import (
	"log/slog"
	"sync"

	"pair-chat/errors"
)

type CensoredHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter *Counter
	hit     map[string]uint64
}

func NewCensoredHandler(log *slog.Logger, counter *Counter) *CensoredHandler {
	return &CensoredHandler{
		log:     log,
		counter: counter,
		hit:     make(map[string]uint64),
	}
}

func (h *CensoredHandler) Handle(event Event) {
	if event.Type != CensorshipHitType {
		return
	}
	payload, ok := event.Payload.(Censored)
	if !ok {
		h.log.Error(errors.ErrInvalidEvent.Error(), "type", event.Type)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counter.Increment(CensorshipHitType)
	for _, w := range payload.Words {
		h.hit[w]++
	}
}

// Hits returns how many times each word has been censored.
func (h *CensoredHandler) Hits() map[string]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]uint64, len(h.hit))
	for k, v := range h.hit {
		out[k] = v
	}
	return out
}
