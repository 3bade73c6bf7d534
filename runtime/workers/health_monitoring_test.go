package workers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthMonitoringWorker_SamplesOwnProcess(t *testing.T) {
	req := require.New(t)
	w := NewHealthMonitoringWorker(slog.Default(), 10*time.Millisecond)
	req.Zero(w.Snapshot())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	req.Eventually(func() bool {
		return !w.Snapshot().SampledAt.IsZero()
	}, time.Second, 10*time.Millisecond)

	snapshot := w.Snapshot()
	req.Equal(int32(os.Getpid()), snapshot.PID)
	req.Positive(snapshot.Goroutines)

	cancel()
	req.NoError(<-done)
}
