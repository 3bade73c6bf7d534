package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pair-chat/domain/event"
	"pair-chat/runtime"
	"pair-chat/runtime/workers"
)

type fakePresence struct{ stats runtime.PresenceStats }

func (f fakePresence) Stats() runtime.PresenceStats { return f.stats }

type fakeSampler struct{ snapshot workers.ProcessSnapshot }

func (f fakeSampler) Snapshot() workers.ProcessSnapshot { return f.snapshot }

func TestStatsService_Stats(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// Given a router, a sampler and some telemetry already handled
	counter := event.NewCounter()
	censored := event.NewCensoredHandler(nil, counter)
	censored.Handle(event.Event{Type: event.CensorshipHitType, Payload: event.Censored{Words: []string{"frog"}}})
	counter.Increment(event.MessageDeliveredType)

	svc := NewStatsService(
		fakePresence{runtime.PresenceStats{Connections: 3, Rooms: 2}},
		fakeSampler{workers.ProcessSnapshot{CPUPercent: 12.5, RSS: 2048, Goroutines: 40, SampledAt: at}},
		counter, censored)

	// When reading the stats
	stats := svc.Stats()

	// Then every source is reflected
	req.Equal(3, stats.Connections)
	req.Equal(2, stats.Rooms)
	req.Equal(12.5, stats.CPUPercent)
	req.Equal(uint64(2048), stats.RSS)
	req.Equal(40, stats.Goroutines)
	req.Equal(at, stats.SampledAt)
	req.Equal(uint64(1), stats.Counters[string(event.CensorshipHitType)])
	req.Equal(uint64(1), stats.Counters[string(event.MessageDeliveredType)])
	req.Equal(map[string]uint64{"frog": 1}, stats.CensoredWords)
}

func TestStatsService_Stats_Without_Optional_Sources(t *testing.T) {
	req := require.New(t)

	stats := NewStatsService(fakePresence{}, nil, nil, nil).Stats()

	req.Zero(stats.Connections)
	req.True(stats.SampledAt.IsZero())
	req.NotNil(stats.Counters)
	req.Empty(stats.CensoredWords)
}
