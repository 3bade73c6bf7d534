package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pair-chat/auth"
	"pair-chat/errors"
	"pair-chat/infrastructure/storage"
	"pair-chat/mocks"
)

const strongPassword = "ComplexPass123!"

func newAuthService(t *testing.T) (*AuthService, *mocks.MockIUserRepository, *auth.TokenManager) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(slog.Default(), repo, tokens), repo, tokens
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newAuthService(t)

		// Expect CreateUser with a normalized email and a hashed password
		repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, u storage.NewUser) (storage.User, error) {
				req.Equal("alice@example.com", u.Email)
				req.Equal("Alice", u.FullName)
				req.NotEqual(strongPassword, u.PasswordHash)
				req.NotEmpty(u.PasswordHash)
				return storage.User{ID: "user-uuid", Email: u.Email, FullName: u.FullName}, nil
			}).Times(1)

		profile, err := svc.Register(ctx, " Alice ", " Alice@Example.com ", strongPassword)

		req.NoError(err)
		req.Equal("user-uuid", profile.UserID)
		req.Equal("alice@example.com", profile.Email)
	})

	t.Run("should fail fast when password is too simple", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newAuthService(t)

		// Repository must not be called
		repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register(ctx, "Alice", "alice@example.com", "simplepassword")

		req.ErrorIs(err, errors.ErrValidation)
		req.ErrorIs(err, errors.ErrInvalidPassword)
	})

	t.Run("should fail when email is malformed", func(t *testing.T) {
		req := require.New(t)
		svc, _, _ := newAuthService(t)

		_, err := svc.Register(ctx, "Alice", "not-an-email", strongPassword)

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should surface a duplicate email", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newAuthService(t)

		repo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(storage.User{}, errors.ErrUserAlreadyExists).Times(1)

		_, err := svc.Register(ctx, "Alice", "alice@example.com", strongPassword)

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword(strongPassword)
	require.NoError(t, err)
	user := storage.User{ID: "alice-id", Email: "alice@example.com", FullName: "Alice", PasswordHash: hash}

	t.Run("should issue and store a token", func(t *testing.T) {
		req := require.New(t)
		svc, repo, tokens := newAuthService(t)

		repo.EXPECT().GetUserByEmail(gomock.Any(), "alice@example.com").Return(user, nil).Times(1)
		var stored string
		repo.EXPECT().SetToken(gomock.Any(), "alice-id", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, token string) error {
				stored = token
				return nil
			}).Times(1)

		result, err := svc.Login(ctx, "ALICE@example.com", strongPassword)

		req.NoError(err)
		req.Equal(stored, result.Token)
		req.Equal("Alice", result.Profile.FullName)
		claims, err := tokens.Validate(result.Token)
		req.NoError(err)
		req.Equal("alice-id", claims.UserID)
	})

	t.Run("should reject a wrong password", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newAuthService(t)

		repo.EXPECT().GetUserByEmail(gomock.Any(), "alice@example.com").Return(user, nil).Times(1)
		repo.EXPECT().SetToken(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Login(ctx, "alice@example.com", "WrongPass123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should report an unknown email", func(t *testing.T) {
		req := require.New(t)
		svc, repo, _ := newAuthService(t)

		repo.EXPECT().GetUserByEmail(gomock.Any(), "ghost@example.com").Return(storage.User{}, errors.ErrNotFound).Times(1)

		_, err := svc.Login(ctx, "ghost@example.com", strongPassword)

		req.ErrorIs(err, errors.ErrNotFound)
	})

	t.Run("should validate before looking up", func(t *testing.T) {
		req := require.New(t)
		svc, _, _ := newAuthService(t)

		_, err := svc.Login(ctx, "", "")

		req.ErrorIs(err, errors.ErrValidation)
	})
}
