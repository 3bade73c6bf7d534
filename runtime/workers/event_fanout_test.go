package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pair-chat/domain/event"
	"pair-chat/mocks"
)

func TestEventFanout_Fanout(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	index := mocks.NewMockEventSink(ctrl)
	relay := mocks.NewMockEventSink(ctrl)
	evt := event.ConversationDeleted{ID: "c1"}

	// Given two permanent sinks expecting the event once each
	index.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	relay.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout := NewEventFanout(log, nil, time.Second).Add(index, relay)

	// When the event is fanned out
	fanout.Fanout(context.Background(), evt)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	stuck := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	// Given a sink that never returns before its deadline
	stuck.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)
	healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	fanout := NewEventFanout(log, nil, 20*time.Millisecond).Add(stuck, healthy)

	// When fanning out
	start := time.Now()
	fanout.Fanout(context.Background(), event.ConversationDeleted{ID: "c1"})

	// Then the stuck sink is abandoned after the timeout
	req.Less(time.Since(start), 500*time.Millisecond)
}

func TestEventFanout_Run(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventSink(ctrl)
	events := make(chan event.DomainEvent, 1)
	received := make(chan struct{})

	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			close(received)
			return nil
		}).Times(1)

	fanout := NewEventFanout(slog.Default(), events, time.Second).Add(sink)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	events <- event.ConversationDeleted{ID: "c1"}
	select {
	case <-received:
	case <-time.After(time.Second):
		req.Fail("event was not fanned out")
	}

	cancel()
	req.NoError(<-done)
}
