package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/wire"
	"pair-chat/services"
	"pair-chat/sink"
)

// FrameConn is one live client connection, whatever the transport.
// ReadFrame returns io.EOF once the client went away.
type FrameConn interface {
	ReadFrame() (wire.ClientFrame, error)
	WriteFrame(frame wire.ServerFrame) error
	Close() error
}

type Config struct {
	BufferSize    int
	RatePerSecond float64
	Burst         int
}

// Session drives the realtime protocol of a single connection: one reader
// handling client frames in order and one writer draining the connection's
// events.
type Session struct {
	log     *slog.Logger
	service services.IChatService
	conn    FrameConn
	id      chat.ConnectionID
	userID  string
	actorID string
	sink    *sink.ConnectionSink
	limiter *rate.Limiter
	replies chan wire.ServerFrame
}

// NewSession prepares a session for userID. actorID is the authenticated
// caller, empty when authentication is disabled.
func NewSession(log *slog.Logger, service services.IChatService, conn FrameConn,
	userID, actorID string, cfg Config) *Session {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	id := chat.ConnectionID(uuid.NewString())
	return &Session{
		log:     log.With("connection_id", id, "user_id", userID),
		service: service,
		conn:    conn,
		id:      id,
		userID:  userID,
		actorID: actorID,
		sink:    sink.NewConnectionSink(cfg.BufferSize),
		limiter: rate.NewLimiter(limit, burst),
		replies: make(chan wire.ServerFrame, 16),
	}
}

func (s *Session) ID() chat.ConnectionID {
	return s.id
}

// Serve blocks until the client disconnects or ctx is cancelled. The
// connection is unregistered from every room before returning.
func (s *Session) Serve(ctx context.Context) error {
	if err := s.service.Connect(s.id, s.userID, s.sink); err != nil {
		return err
	}
	defer s.service.Disconnect(s.id)
	s.log.Info("Session opened")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan error, 1)
	go func() {
		err := s.writeLoop(ctx)
		if err != nil {
			_ = s.conn.Close()
		}
		writerDone <- err
	}()

	readErr := s.readLoop(ctx)
	cancel()
	writeErr := <-writerDone
	s.log.Info("Session closed")

	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, context.Canceled) {
		return readErr
	}
	return writeErr
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		frame, err := s.conn.ReadFrame()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.handle(ctx, frame)
	}
}

func (s *Session) handle(ctx context.Context, frame wire.ClientFrame) {
	switch frame.Type {
	case wire.FrameJoinRoom:
		if err := s.service.JoinRoom(ctx, s.id, s.actorID, chat.ConversationID(frame.ConversationID)); err != nil {
			s.reply(ctx, wire.ErrorFrame(err))
		}
	case wire.FrameLeaveRoom:
		s.service.LeaveRoom(s.id, chat.ConversationID(frame.ConversationID))
	case wire.FrameSendMessage:
		s.send(ctx, frame)
	default:
		s.reply(ctx, wire.ErrorFrame(fmt.Errorf("%w: unknown frame type %q", apperrors.ErrValidation, frame.Type)))
	}
}

// send delivers the message and acknowledges it to this connection only.
func (s *Session) send(ctx context.Context, frame wire.ClientFrame) {
	if frame.Message == nil {
		s.reply(ctx, wire.ErrorFrame(fmt.Errorf("%w: missing message", apperrors.ErrValidation)))
		return
	}
	cmd := frame.Message.ToCommand()
	if cmd.ConversationID == "" {
		cmd.ConversationID = chat.ConversationID(frame.ConversationID)
	}
	if cmd.SenderID == "" {
		cmd.SenderID = s.userID
	}

	if !s.limiter.Allow() {
		s.service.Acknowledge(ctx, s.id, chat.Receipt{
			RequestID:      cmd.RequestID,
			State:          chat.Failed,
			ConversationID: cmd.ConversationID,
			Err:            apperrors.ErrRateLimited,
		})
		return
	}

	receipt, err := s.service.SendMessage(ctx, s.actorID, cmd)
	if err != nil {
		s.log.Debug("Send failed", "request_id", cmd.RequestID, "error", err)
		receipt.State = chat.Failed
		receipt.Err = err
	}
	receipt.RequestID = cmd.RequestID
	s.service.Acknowledge(ctx, s.id, receipt)
}

func (s *Session) reply(ctx context.Context, frame wire.ServerFrame) {
	select {
	case s.replies <- frame:
	case <-ctx.Done():
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-s.replies:
			if err := s.conn.WriteFrame(frame); err != nil {
				return err
			}
		case evt := <-s.sink.Events():
			frame, ok := wire.ToServerFrame(evt)
			if !ok {
				continue
			}
			if err := s.conn.WriteFrame(frame); err != nil {
				s.log.Warn("Failed to push event", "error", err)
				return err
			}
		}
	}
}
