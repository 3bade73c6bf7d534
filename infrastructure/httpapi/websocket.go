package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"pair-chat/infrastructure/realtime"
	"pair-chat/infrastructure/wire"
)

func (h *Handler) liveChannel() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		actorID, _ := c.Locals(actorKey).(string)
		userID := actorID
		if userID == "" {
			userID = c.Query("userId")
		}
		if userID == "" {
			_ = c.WriteJSON(wire.ServerFrame{Type: wire.FrameError, Error: "userId is required"})
			_ = c.Close()
			return
		}

		conn := newSocketConn(c, h.config)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go conn.keepAlive(ctx)

		session := realtime.NewSession(h.log, h.chatService, conn, userID, actorID, h.config.Session)
		if err := session.Serve(ctx); err != nil {
			h.log.Warn("Websocket session ended with error", "user_id", userID, "error", err)
		}
		_ = conn.Close()
	})
}

// socketConn adapts a websocket to a realtime connection. Reads happen on
// the session reader, writes on the session writer; pings go through
// WriteControl, which may run concurrently with both.
type socketConn struct {
	conn      *websocket.Conn
	pongWait  time.Duration
	ping      time.Duration
	writeWait time.Duration
	closeOnce sync.Once
}

func newSocketConn(c *websocket.Conn, config Config) *socketConn {
	ping := config.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	writeWait := config.WriteWait
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	if config.MaxFrameBytes > 0 {
		c.SetReadLimit(config.MaxFrameBytes)
	}
	s := &socketConn{conn: c, ping: ping, pongWait: ping * 2, writeWait: writeWait}
	_ = c.SetReadDeadline(time.Now().Add(s.pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(s.pongWait))
	})
	return s
}

func (s *socketConn) ReadFrame() (wire.ClientFrame, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return wire.ClientFrame{}, io.EOF
		}
		return wire.ClientFrame{}, err
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(s.pongWait))

	var frame wire.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		// Answered with an error frame by the session.
		return wire.ClientFrame{Type: "malformed"}, nil
	}
	return frame, nil
}

func (s *socketConn) WriteFrame(frame wire.ServerFrame) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return s.conn.WriteJSON(frame)
}

func (s *socketConn) Close() error {
	var err error
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(s.writeWait)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = s.conn.Close()
	})
	return err
}

func (s *socketConn) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(s.ping)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait)); err != nil {
				return
			}
		}
	}
}
