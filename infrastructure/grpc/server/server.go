package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"

	pb "pair-chat/infrastructure/grpc/chatv1"
)

// NewGrpcServer builds the gRPC server. A nil authenticator disables
// authentication: identities are then read from the requests.
func NewGrpcServer(log *slog.Logger, chatServer *ChatServer, authenticator *Authenticator) *grpc.Server {
	unary := []grpc.UnaryServerInterceptor{LoggingInterceptor(log)}
	var stream []grpc.StreamServerInterceptor
	if authenticator != nil {
		unary = append(unary, authenticator.Unary)
		stream = append(stream, authenticator.Stream)
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)
	pb.RegisterChatServiceServer(s, chatServer)
	return s
}

const shutdownGrace = 5 * time.Second

// GrpcWorker serves gRPC until its context is cancelled.
type GrpcWorker struct {
	log     *slog.Logger
	server  *grpc.Server
	address string
}

func NewGrpcWorker(log *slog.Logger, server *grpc.Server, address string) *GrpcWorker {
	return &GrpcWorker{log: log, server: server, address: address}
}

func (w *GrpcWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC server", "address", w.address)
		if err := w.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		w.log.Info("Stopping gRPC server")
		w.stop()
		return nil
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// stop drains calls in flight, then cuts the live sessions still open.
func (w *GrpcWorker) stop() {
	stopped := make(chan struct{})
	go func() {
		w.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownGrace):
		w.server.Stop()
	}
}
