package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrValidation         = fmt.Errorf("validation error")
	ErrNotFound           = fmt.Errorf("not found")
	ErrConflict           = fmt.Errorf("conflict")
	ErrPersistence        = fmt.Errorf("persistence error")
	ErrPersistenceTimeout = fmt.Errorf("%w: persistence deadline exceeded", ErrPersistence)
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrUnauthenticated    = fmt.Errorf("unauthenticated")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrSlowConsumer       = fmt.Errorf("connection is not draining its events")
	ErrAlreadyConnected   = fmt.Errorf("connection already registered")

	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrInvalidEvent = fmt.Errorf("unexpected event type")
	ErrEmptyWords   = fmt.Errorf("no censored words loaded")
)

// MapToGRPCError translates domain errors into gRPC status errors.
// Unknown errors are reported as Internal without leaking their message.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidPassword):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrUserAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, ErrPersistenceTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ErrPersistence):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
