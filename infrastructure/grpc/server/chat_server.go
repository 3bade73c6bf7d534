package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"pair-chat/auth"
	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
	pb "pair-chat/infrastructure/grpc/chatv1"
	"pair-chat/infrastructure/realtime"
	"pair-chat/infrastructure/wire"
	"pair-chat/services"
)

// UserIDHeader identifies the caller of a Session when authentication is disabled.
const UserIDHeader = "x-user-id"

type ChatServer struct {
	log           *slog.Logger
	chatService   services.IChatService
	authService   services.IAuthService
	sessionConfig realtime.Config
}

func NewChatServer(log *slog.Logger, chatService services.IChatService,
	authService services.IAuthService, sessionConfig realtime.Config) *ChatServer {
	return &ChatServer{
		log:           log,
		chatService:   chatService,
		authService:   authService,
		sessionConfig: sessionConfig,
	}
}

func (s *ChatServer) Register(ctx context.Context, req *wire.RegisterRequest) (*wire.User, error) {
	profile, err := s.authService.Register(ctx, req.FullName, req.Email, req.Password)
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	user := wire.ToUser(profile)
	return &user, nil
}

func (s *ChatServer) Login(ctx context.Context, req *wire.LoginRequest) (*wire.LoginResponse, error) {
	result, err := s.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	return &wire.LoginResponse{Token: result.Token, User: wire.ToUser(result.Profile)}, nil
}

func (s *ChatServer) CreateOrGetConversation(ctx context.Context, req *wire.ConversationRequest) (*wire.ConversationResponse, error) {
	id, err := s.chatService.CreateOrGetConversation(ctx, auth.UserIDFromContext(ctx), req.SenderID, req.ReceiverID)
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	return &wire.ConversationResponse{ConversationID: id.String()}, nil
}

func (s *ChatServer) ListConversations(ctx context.Context, req *wire.ListConversationsRequest) (*wire.ListConversationsResponse, error) {
	summaries, err := s.chatService.ListConversations(ctx, auth.UserIDFromContext(ctx), req.UserID)
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	return &wire.ListConversationsResponse{Conversations: wire.ToConversations(summaries)}, nil
}

// SendMessage persists then broadcasts the message. The sender sees its own
// message through its Session like any other room member.
func (s *ChatServer) SendMessage(ctx context.Context, req *wire.SendMessageRequest) (*wire.SendMessageResponse, error) {
	receipt, err := s.chatService.SendMessage(ctx, auth.UserIDFromContext(ctx), req.ToCommand())
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	response := wire.ToSendMessageResponse(receipt)
	return &response, nil
}

func (s *ChatServer) ListMessages(ctx context.Context, req *wire.ListMessagesRequest) (*wire.ListMessagesResponse, error) {
	messages, err := s.chatService.ListMessages(ctx, auth.UserIDFromContext(ctx), chat.ConversationID(req.ConversationID))
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	return &wire.ListMessagesResponse{Messages: wire.ToMessages(messages)}, nil
}

func (s *ChatServer) ListUsers(ctx context.Context, req *wire.ListUsersRequest) (*wire.ListUsersResponse, error) {
	users, err := s.chatService.ListUsers(ctx, auth.UserIDFromContext(ctx), req.UserID)
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	return &wire.ListUsersResponse{Users: wire.ToUsers(users)}, nil
}

func (s *ChatServer) DeleteConversation(ctx context.Context, req *wire.DeleteConversationRequest) (*wire.DeleteConversationResponse, error) {
	err := s.chatService.DeleteConversation(ctx, auth.UserIDFromContext(ctx), chat.ConversationID(req.ConversationID))
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	return &wire.DeleteConversationResponse{Deleted: true}, nil
}

func (s *ChatServer) SearchMessages(ctx context.Context, req *wire.SearchRequest) (*wire.SearchResponse, error) {
	hits, err := s.chatService.SearchMessages(ctx, auth.UserIDFromContext(ctx), req.UserID, req.Query, req.Limit)
	if err != nil {
		return nil, apperrors.MapToGRPCError(err)
	}
	return &wire.SearchResponse{Hits: wire.ToSearchHits(hits)}, nil
}

// Session is the live channel of one client. It blocks until the client
// disconnects; the connection leaves every room on the way out.
func (s *ChatServer) Session(stream pb.ChatService_SessionServer) error {
	ctx := stream.Context()
	actorID := auth.UserIDFromContext(ctx)
	userID := actorID
	if userID == "" {
		userID = userIDFromMetadata(ctx)
	}
	if userID == "" {
		return status.Error(codes.InvalidArgument, fmt.Sprintf("%s metadata is missing", UserIDHeader))
	}

	session := realtime.NewSession(s.log, s.chatService, &streamConn{stream: stream}, userID, actorID, s.sessionConfig)
	if err := session.Serve(ctx); err != nil {
		s.log.Warn("Session ended with error", "user_id", userID, "error", err)
		return apperrors.MapToGRPCError(err)
	}
	return nil
}

func userIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(UserIDHeader); len(values) > 0 {
		return values[0]
	}
	return ""
}

// streamConn adapts the bidi stream to a realtime connection.
type streamConn struct {
	stream pb.ChatService_SessionServer
}

func (c *streamConn) ReadFrame() (wire.ClientFrame, error) {
	frame, err := c.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return wire.ClientFrame{}, io.EOF
		}
		return wire.ClientFrame{}, err
	}
	return *frame, nil
}

func (c *streamConn) WriteFrame(frame wire.ServerFrame) error {
	return c.stream.Send(&frame)
}

// Close is a no-op: the stream ends when Session returns.
func (c *streamConn) Close() error {
	return nil
}
