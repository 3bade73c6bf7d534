// Package chatv1 describes the pairchat.v1.ChatService gRPC service.
// Messages are the JSON shapes of package wire, carried by a JSON codec.
package chatv1

import (
	"context"

	"google.golang.org/grpc"

	"pair-chat/infrastructure/wire"
)

const ServiceName = "pairchat.v1.ChatService"

// FullMethod returns the full gRPC method name, e.g. "/pairchat.v1.ChatService/Login".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var (
	ChatService_Register_FullMethodName = FullMethod("Register")
	ChatService_Login_FullMethodName    = FullMethod("Login")
)

type ChatServiceServer interface {
	Register(context.Context, *wire.RegisterRequest) (*wire.User, error)
	Login(context.Context, *wire.LoginRequest) (*wire.LoginResponse, error)
	CreateOrGetConversation(context.Context, *wire.ConversationRequest) (*wire.ConversationResponse, error)
	ListConversations(context.Context, *wire.ListConversationsRequest) (*wire.ListConversationsResponse, error)
	SendMessage(context.Context, *wire.SendMessageRequest) (*wire.SendMessageResponse, error)
	ListMessages(context.Context, *wire.ListMessagesRequest) (*wire.ListMessagesResponse, error)
	ListUsers(context.Context, *wire.ListUsersRequest) (*wire.ListUsersResponse, error)
	DeleteConversation(context.Context, *wire.DeleteConversationRequest) (*wire.DeleteConversationResponse, error)
	SearchMessages(context.Context, *wire.SearchRequest) (*wire.SearchResponse, error)
	Session(ChatService_SessionServer) error
}

type ChatService_SessionServer interface {
	Send(*wire.ServerFrame) error
	Recv() (*wire.ClientFrame, error)
	grpc.ServerStream
}

type ChatService_SessionClient interface {
	Send(*wire.ClientFrame) error
	Recv() (*wire.ServerFrame, error)
	grpc.ClientStream
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", ChatServiceServer.Register),
		unary("Login", ChatServiceServer.Login),
		unary("CreateOrGetConversation", ChatServiceServer.CreateOrGetConversation),
		unary("ListConversations", ChatServiceServer.ListConversations),
		unary("SendMessage", ChatServiceServer.SendMessage),
		unary("ListMessages", ChatServiceServer.ListMessages),
		unary("ListUsers", ChatServiceServer.ListUsers),
		unary("DeleteConversation", ChatServiceServer.DeleteConversation),
		unary("SearchMessages", ChatServiceServer.SearchMessages),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "pairchat/v1/chat.proto",
}

func unary[Req, Resp any](method string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatServiceServer).Session(&sessionServer{stream})
}

type sessionServer struct {
	grpc.ServerStream
}

func (x *sessionServer) Send(m *wire.ServerFrame) error {
	return x.ServerStream.SendMsg(m)
}

func (x *sessionServer) Recv() (*wire.ClientFrame, error) {
	m := new(wire.ClientFrame)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ChatServiceClient calls the service with the JSON codec.
type ChatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) *ChatServiceClient {
	return &ChatServiceClient{cc: cc}
}

func (c *ChatServiceClient) Register(ctx context.Context, in *wire.RegisterRequest, opts ...grpc.CallOption) (*wire.User, error) {
	return invoke[wire.User](ctx, c.cc, "Register", in, opts)
}

func (c *ChatServiceClient) Login(ctx context.Context, in *wire.LoginRequest, opts ...grpc.CallOption) (*wire.LoginResponse, error) {
	return invoke[wire.LoginResponse](ctx, c.cc, "Login", in, opts)
}

func (c *ChatServiceClient) CreateOrGetConversation(ctx context.Context, in *wire.ConversationRequest, opts ...grpc.CallOption) (*wire.ConversationResponse, error) {
	return invoke[wire.ConversationResponse](ctx, c.cc, "CreateOrGetConversation", in, opts)
}

func (c *ChatServiceClient) ListConversations(ctx context.Context, in *wire.ListConversationsRequest, opts ...grpc.CallOption) (*wire.ListConversationsResponse, error) {
	return invoke[wire.ListConversationsResponse](ctx, c.cc, "ListConversations", in, opts)
}

func (c *ChatServiceClient) SendMessage(ctx context.Context, in *wire.SendMessageRequest, opts ...grpc.CallOption) (*wire.SendMessageResponse, error) {
	return invoke[wire.SendMessageResponse](ctx, c.cc, "SendMessage", in, opts)
}

func (c *ChatServiceClient) ListMessages(ctx context.Context, in *wire.ListMessagesRequest, opts ...grpc.CallOption) (*wire.ListMessagesResponse, error) {
	return invoke[wire.ListMessagesResponse](ctx, c.cc, "ListMessages", in, opts)
}

func (c *ChatServiceClient) ListUsers(ctx context.Context, in *wire.ListUsersRequest, opts ...grpc.CallOption) (*wire.ListUsersResponse, error) {
	return invoke[wire.ListUsersResponse](ctx, c.cc, "ListUsers", in, opts)
}

func (c *ChatServiceClient) DeleteConversation(ctx context.Context, in *wire.DeleteConversationRequest, opts ...grpc.CallOption) (*wire.DeleteConversationResponse, error) {
	return invoke[wire.DeleteConversationResponse](ctx, c.cc, "DeleteConversation", in, opts)
}

func (c *ChatServiceClient) SearchMessages(ctx context.Context, in *wire.SearchRequest, opts ...grpc.CallOption) (*wire.SearchResponse, error) {
	return invoke[wire.SearchResponse](ctx, c.cc, "SearchMessages", in, opts)
}

func (c *ChatServiceClient) Session(ctx context.Context, opts ...grpc.CallOption) (ChatService_SessionClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ChatService_ServiceDesc.Streams[0], FullMethod("Session"), opts...)
	if err != nil {
		return nil, err
	}
	return &sessionClient{stream}, nil
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type sessionClient struct {
	grpc.ClientStream
}

func (x *sessionClient) Send(m *wire.ClientFrame) error {
	return x.ClientStream.SendMsg(m)
}

func (x *sessionClient) Recv() (*wire.ServerFrame, error) {
	m := new(wire.ServerFrame)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
