package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pair-chat/auth"
	"pair-chat/contract"
	"pair-chat/domain/chat"
	"pair-chat/domain/event"
	"pair-chat/domain/search"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/realtime"
	"pair-chat/infrastructure/wire"
	"pair-chat/mocks"
	"pair-chat/services"
)

type fixedStats struct{ stats services.Stats }

func (f fixedStats) Stats() services.Stats { return f.stats }

type harness struct {
	app         *fiber.App
	chatService *mocks.MockIChatService
	authService *mocks.MockIAuthService
	tokens      *auth.TokenManager
}

func newHarness(t *testing.T, authEnabled bool) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		chatService: mocks.NewMockIChatService(ctrl),
		authService: mocks.NewMockIAuthService(ctrl),
		tokens:      auth.NewTokenManager("test-secret", time.Hour),
	}
	stats := fixedStats{services.Stats{Connections: 3, Rooms: 2}}
	h.app = NewApp(slog.Default(), h.chatService, h.authService, stats, h.tokens, Config{
		AuthEnabled:  authEnabled,
		Session:      realtime.Config{BufferSize: 8},
		PingInterval: time.Second,
		WriteWait:    time.Second,
	})
	return h
}

func (h *harness) do(t *testing.T, method, path string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := h.tokens.Generate(userID, nil)
	require.NoError(t, err)
	return token
}

func TestRegister(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)
	h.authService.EXPECT().
		Register(gomock.Any(), "Alice", "alice@example.com", "Secret123!").
		Return(chat.Profile{UserID: "alice"}, nil)

	resp, body := h.do(t, http.MethodPost, "/api/register",
		wire.RegisterRequest{FullName: "Alice", Email: "alice@example.com", Password: "Secret123!"}, "")

	req.Equal(http.StatusCreated, resp.StatusCode)
	req.Contains(string(body), "User registered successfully")
}

func TestRegister_AlreadyExists(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)
	h.authService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(chat.Profile{}, apperrors.ErrUserAlreadyExists)

	resp, body := h.do(t, http.MethodPost, "/api/register", wire.RegisterRequest{Email: "a@b.c"}, "")

	req.Equal(http.StatusConflict, resp.StatusCode)
	var errResp wire.ErrorResponse
	req.NoError(json.Unmarshal(body, &errResp))
	req.Equal(apperrors.ErrUserAlreadyExists.Error(), errResp.Error)
}

func TestLogin(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)
	h.authService.EXPECT().
		Login(gomock.Any(), "alice@example.com", "Secret123!").
		Return(auth.LoginResult{Token: "jwt", Profile: chat.Profile{UserID: "alice", Email: "alice@example.com", FullName: "Alice"}}, nil)

	resp, body := h.do(t, http.MethodPost, "/api/login", wire.LoginRequest{Email: "alice@example.com", Password: "Secret123!"}, "")

	req.Equal(http.StatusOK, resp.StatusCode)
	var login wire.LoginResponse
	req.NoError(json.Unmarshal(body, &login))
	req.Equal("jwt", login.Token)
	req.Equal("alice", login.User.ID)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t, true)

	resp, _ := h.do(t, http.MethodGet, "/api/message/c1", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/message/c1", nil, "garbage")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendMessage_UsesTokenSubject(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)
	h.chatService.EXPECT().
		SendMessage(gomock.Any(), "alice", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, cmd chat.SendMessageCommand) (chat.Receipt, error) {
			req.Equal("bob", cmd.ReceiverID)
			req.Equal("hello", cmd.Body)
			req.Equal("k1", cmd.IdempotencyKey)
			return chat.Receipt{State: chat.Delivered, ConversationID: "c1", MessageID: "m1", Recipients: 1}, nil
		})

	resp, body := h.do(t, http.MethodPost, "/api/message",
		wire.SendMessageRequest{ReceiverID: "bob", Message: "hello", IdempotencyKey: "k1"}, h.token(t, "alice"))

	req.Equal(http.StatusOK, resp.StatusCode)
	var sent wire.SendMessageResponse
	req.NoError(json.Unmarshal(body, &sent))
	req.Equal("c1", sent.ConversationID)
	req.Equal("m1", sent.MessageID)
}

func TestSendMessage_Validation(t *testing.T) {
	h := newHarness(t, false)
	h.chatService.EXPECT().SendMessage(gomock.Any(), "", gomock.Any()).
		Return(chat.Receipt{State: chat.Failed}, apperrors.ErrValidation)

	resp, _ := h.do(t, http.MethodPost, "/api/message", wire.SendMessageRequest{SenderID: "alice", ConversationID: "c1"}, "")

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessage_MalformedBody(t *testing.T) {
	h := newHarness(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/message", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.app.Test(req, -1)

	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMessages_Sentinel(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)
	h.chatService.EXPECT().ListMessages(gomock.Any(), "", chat.NewConversationID).Return([]chat.EnrichedMessage{}, nil)

	resp, body := h.do(t, http.MethodGet, "/api/message/new", nil, "")

	req.Equal(http.StatusOK, resp.StatusCode)
	req.JSONEq("[]", string(body))
}

func TestListConversationsAndUsers(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)
	h.chatService.EXPECT().ListConversations(gomock.Any(), "", "alice").Return([]chat.ConversationSummary{{
		Conversation: chat.Conversation{ID: "c1", Members: chat.NewMemberPair("alice", "bob")},
		Counterpart:  chat.Profile{UserID: "bob", Email: "bob@example.com", FullName: "Bob"},
	}}, nil)
	h.chatService.EXPECT().ListUsers(gomock.Any(), "", "alice").Return([]chat.Profile{
		{UserID: "bob", Email: "bob@example.com", FullName: "Bob"},
	}, nil)

	_, body := h.do(t, http.MethodGet, "/api/conversations/alice", nil, "")
	var conversations []wire.Conversation
	req.NoError(json.Unmarshal(body, &conversations))
	req.Len(conversations, 1)
	req.Equal("c1", conversations[0].ConversationID)
	req.Equal("Bob", conversations[0].User.FullName)

	_, body = h.do(t, http.MethodGet, "/api/users?userId=alice", nil, "")
	var users []wire.DirectoryEntry
	req.NoError(json.Unmarshal(body, &users))
	req.Len(users, 1)
	req.Equal("bob", users[0].UserID)
	req.Equal("bob@example.com", users[0].User.Email)
}

func TestDeleteConversation(t *testing.T) {
	h := newHarness(t, false)
	h.chatService.EXPECT().DeleteConversation(gomock.Any(), "", chat.ConversationID("c1")).Return(nil)
	h.chatService.EXPECT().DeleteConversation(gomock.Any(), "", chat.ConversationID("c2")).Return(apperrors.ErrNotFound)

	resp, _ := h.do(t, http.MethodDelete, "/api/conversations/c1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/api/conversations/c2", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteConversation_ID_Outlives_Request(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)

	// Given the service keeps the id, as the deletion events do
	var kept []chat.ConversationID
	h.chatService.EXPECT().DeleteConversation(gomock.Any(), "", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, id chat.ConversationID) error {
			kept = append(kept, id)
			return nil
		}).Times(2)

	// When two deletions with ids of the same length follow each other
	resp, _ := h.do(t, http.MethodDelete, "/api/conversations/aaaa-1111", nil, "")
	req.Equal(http.StatusOK, resp.StatusCode)
	resp, _ = h.do(t, http.MethodDelete, "/api/conversations/bbbb-2222", nil, "")
	req.Equal(http.StatusOK, resp.StatusCode)

	// Then the first id was not overwritten by the second request
	req.Equal([]chat.ConversationID{"aaaa-1111", "bbbb-2222"}, kept)
}

func TestSearchAndStats(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)
	h.chatService.EXPECT().SearchMessages(gomock.Any(), "", "alice", "dinner", 5).
		Return([]search.Hit{{MessageID: "m1", ConversationID: "c1", Body: "dinner?", Score: 1.5}}, nil)

	_, body := h.do(t, http.MethodGet, "/api/search?userId=alice&q=dinner&limit=5", nil, "")
	var hits []wire.SearchHit
	req.NoError(json.Unmarshal(body, &hits))
	req.Len(hits, 1)
	req.Equal("dinner?", hits[0].Message)

	_, body = h.do(t, http.MethodGet, "/api/stats", nil, "")
	var stats wire.Stats
	req.NoError(json.Unmarshal(body, &stats))
	req.Equal(3, stats.Connections)
	req.Equal(2, stats.Rooms)
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	h := newHarness(t, false)
	h.chatService.EXPECT().ListUsers(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, io.ErrUnexpectedEOF)

	resp, body := h.do(t, http.MethodGet, "/api/users", nil, "")

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.NotContains(t, string(body), io.ErrUnexpectedEOF.Error())
}

func TestWebsocket_NeedsUpgrade(t *testing.T) {
	h := newHarness(t, false)
	resp, _ := h.do(t, http.MethodGet, "/ws", nil, "")
	require.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebsocket_LiveChannel(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	go func() { _ = h.app.Listener(listener) }()
	t.Cleanup(func() { _ = h.app.Shutdown() })

	// Given bob's live connection is registered and joined to c1
	sinks := make(chan contract.EventSink, 1)
	h.chatService.EXPECT().
		Connect(gomock.Any(), "bob", gomock.Any()).
		DoAndReturn(func(_ chat.ConnectionID, _ string, s contract.EventSink) error {
			sinks <- s
			return nil
		})
	joined := make(chan struct{})
	h.chatService.EXPECT().
		JoinRoom(gomock.Any(), gomock.Any(), "bob", chat.ConversationID("c1")).
		DoAndReturn(func(context.Context, chat.ConnectionID, string, chat.ConversationID) error {
			close(joined)
			return nil
		})
	h.chatService.EXPECT().Disconnect(gomock.Any()).AnyTimes()

	url := "ws://" + listener.Addr().String() + "/ws?token=" + h.token(t, "bob")
	conn, _, err := fastws.DefaultDialer.Dial(url, nil)
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.WriteJSON(wire.ClientFrame{Type: wire.FrameJoinRoom, ConversationID: "c1"}))
	sink := <-sinks
	<-joined

	// When a message is routed to bob
	msg := chat.EnrichedMessage{
		Message: chat.Message{ConversationID: "c1", SenderID: "alice", Body: "hi bob"},
		Sender:  chat.Profile{UserID: "alice", Email: "alice@example.com", FullName: "Alice"},
	}
	req.NoError(sink.Consume(context.Background(), event.MessageDelivered{Message: msg}))

	// Then it arrives as a messageReceived frame
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var frame wire.ServerFrame
	req.NoError(conn.ReadJSON(&frame))
	req.Equal(wire.FrameMessageReceived, frame.Type)
	req.Equal("hi bob", frame.Message.Message)
	req.Equal("alice@example.com", frame.Message.User.Email)
}
