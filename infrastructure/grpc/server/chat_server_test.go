package server

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"pair-chat/auth"
	"pair-chat/contract"
	"pair-chat/domain/chat"
	"pair-chat/domain/event"
	apperrors "pair-chat/errors"
	pb "pair-chat/infrastructure/grpc/chatv1"
	"pair-chat/infrastructure/realtime"
	"pair-chat/infrastructure/wire"
	"pair-chat/mocks"
)

type harness struct {
	client      *pb.ChatServiceClient
	chatService *mocks.MockIChatService
	authService *mocks.MockIAuthService
	tokens      *auth.TokenManager
}

func newHarness(t *testing.T, authEnabled bool) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	chatService := mocks.NewMockIChatService(ctrl)
	authService := mocks.NewMockIAuthService(ctrl)
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	var authenticator *Authenticator
	if authEnabled {
		authenticator = NewAuthenticator(tokens)
	}
	chatServer := NewChatServer(slog.Default(), chatService, authService, realtime.Config{BufferSize: 8})
	srv := NewGrpcServer(slog.Default(), chatServer, authenticator)

	listener := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(listener) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{
		client:      pb.NewChatServiceClient(conn),
		chatService: chatService,
		authService: authService,
		tokens:      tokens,
	}
}

func (h *harness) as(t *testing.T, userID string) context.Context {
	t.Helper()
	token, err := h.tokens.Generate(userID, nil)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestChatServer_LoginIsPublic(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)

	h.authService.EXPECT().
		Login(gomock.Any(), "alice@example.com", "Secret123!").
		Return(auth.LoginResult{Token: "jwt", Profile: chat.Profile{UserID: "alice", Email: "alice@example.com", FullName: "Alice"}}, nil)

	resp, err := h.client.Login(context.Background(), &wire.LoginRequest{Email: "alice@example.com", Password: "Secret123!"})

	req.NoError(err)
	req.Equal("jwt", resp.Token)
	req.Equal("Alice", resp.User.FullName)
}

func TestChatServer_RejectsMissingToken(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.client.ListMessages(context.Background(), &wire.ListMessagesRequest{ConversationID: "c1"})

	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestChatServer_RejectsInvalidToken(t *testing.T) {
	h := newHarness(t, true)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")

	_, err := h.client.ListUsers(ctx, &wire.ListUsersRequest{})

	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestChatServer_ActsAsTokenSubject(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)

	// Given alice is authenticated
	h.chatService.EXPECT().
		SendMessage(gomock.Any(), "alice", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, cmd chat.SendMessageCommand) (chat.Receipt, error) {
			req.Equal("bob", cmd.ReceiverID)
			req.Equal("hello", cmd.Body)
			return chat.Receipt{State: chat.Delivered, ConversationID: "c1", MessageID: "m1", Recipients: 2}, nil
		})

	// When she sends a message
	resp, err := h.client.SendMessage(h.as(t, "alice"), &wire.SendMessageRequest{
		ConversationID: "new",
		ReceiverID:     "bob",
		Message:        "hello",
	})

	// Then the service runs as alice
	req.NoError(err)
	req.Equal("c1", resp.ConversationID)
	req.Equal("m1", resp.MessageID)
	req.Equal(2, resp.Recipients)
}

func TestChatServer_MapsErrors(t *testing.T) {
	h := newHarness(t, false)

	testCases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"validation", apperrors.ErrValidation, codes.InvalidArgument},
		{"not found", apperrors.ErrNotFound, codes.NotFound},
		{"forbidden", apperrors.ErrForbidden, codes.PermissionDenied},
		{"persistence", apperrors.ErrPersistence, codes.Unavailable},
		{"timeout", apperrors.ErrPersistenceTimeout, codes.DeadlineExceeded},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h.chatService.EXPECT().DeleteConversation(gomock.Any(), "", chat.ConversationID("c1")).Return(tc.err)

			_, err := h.client.DeleteConversation(context.Background(), &wire.DeleteConversationRequest{ConversationID: "c1"})

			require.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestChatServer_ListMessages(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, false)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h.chatService.EXPECT().
		ListMessages(gomock.Any(), "", chat.ConversationID("c1")).
		Return([]chat.EnrichedMessage{{
			Message: chat.Message{ConversationID: "c1", SenderID: "alice", Body: "hi", CreatedAt: at},
			Sender:  chat.Profile{UserID: "alice", Email: "alice@example.com", FullName: "Alice"},
		}}, nil)

	resp, err := h.client.ListMessages(context.Background(), &wire.ListMessagesRequest{ConversationID: "c1"})

	req.NoError(err)
	req.Len(resp.Messages, 1)
	req.Equal("hi", resp.Messages[0].Message)
	req.Equal("alice@example.com", resp.Messages[0].User.Email)
	req.True(at.Equal(resp.Messages[0].CreatedAt))
}

func TestChatServer_SessionRequiresUser(t *testing.T) {
	h := newHarness(t, false)

	stream, err := h.client.Session(context.Background())
	require.NoError(t, err)
	_, err = stream.Recv()

	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestChatServer_SessionPushesMessages(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, true)

	// Given bob's session registers a sink and joins c1
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

	ctx, cancel := context.WithCancel(h.as(t, "bob"))
	defer cancel()
	stream, err := h.client.Session(ctx)
	req.NoError(err)
	req.NoError(stream.Send(&wire.ClientFrame{Type: wire.FrameJoinRoom, ConversationID: "c1"}))
	sink := <-sinks
	<-joined

	// When a message is routed to the connection
	msg := chat.EnrichedMessage{
		Message: chat.Message{ConversationID: "c1", SenderID: "alice", Body: "hello bob"},
		Sender:  chat.Profile{UserID: "alice", FullName: "Alice"},
	}
	req.NoError(sink.Consume(context.Background(), event.MessageDelivered{Message: msg}))

	// Then bob receives messageReceived
	frame, err := stream.Recv()
	req.NoError(err)
	req.Equal(wire.FrameMessageReceived, frame.Type)
	req.Equal("hello bob", frame.Message.Message)
	req.NoError(stream.CloseSend())
}
