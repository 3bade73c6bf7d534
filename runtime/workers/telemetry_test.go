package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pair-chat/domain/event"
)

func TestTelemetryWorker_DispatchesToHandlers(t *testing.T) {
	req := require.New(t)
	counter := event.NewCounter()
	telemetry := make(chan event.Event, 4)
	w := NewTelemetryWorker(slog.Default(), telemetry,
		event.NewDeliveryHandler(slog.Default(), counter),
		event.NewWorkerRestartedAfterPanicHandler(slog.Default(), counter),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	telemetry <- event.Event{Type: event.MessageDeliveredType}
	telemetry <- event.Event{Type: event.RestartedAfterPanicType, Payload: event.WorkerRestartedAfterPanic{WorkerName: "X"}}

	req.Eventually(func() bool {
		return counter.Get(event.MessageDeliveredType) == 1 && counter.Get(event.RestartedAfterPanicType) == 1
	}, time.Second, 5*time.Millisecond)
}
