//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pair-chat/auth"
	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/storage"
)

type IAuthService interface {
	Register(ctx context.Context, fullName, email, password string) (chat.Profile, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
}

type AuthService struct {
	log            *slog.Logger
	userRepository storage.IUserRepository
	tokens         *auth.TokenManager
}

func NewAuthService(log *slog.Logger, repo storage.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (chat.Profile, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	// Rules are checked before any expensive cryptographic operation.
	if err := auth.ValidateRegister(auth.RegisterRequest{FullName: fullName, Email: email, Password: password}); err != nil {
		return chat.Profile{}, err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return chat.Profile{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(ctx, storage.NewUser{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return chat.Profile{}, err
	}
	s.log.Info("User registered", "user_id", user.ID)
	return toProfile(user), nil
}

// Login checks the credentials, issues a token and stores it on the user,
// replacing the previous one.
func (s *AuthService) Login(ctx context.Context, email, password string) (auth.LoginResult, error) {
	email = normalizeEmail(email)
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return auth.LoginResult{}, err
	}

	user, err := s.userRepository.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return auth.LoginResult{}, fmt.Errorf("%w: no account for this email", apperrors.ErrNotFound)
		}
		return auth.LoginResult{}, err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return auth.LoginResult{}, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return auth.LoginResult{}, apperrors.ErrTokenGeneration
	}
	if err = s.userRepository.SetToken(ctx, user.ID, token); err != nil {
		return auth.LoginResult{}, err
	}
	return auth.LoginResult{Token: token, Profile: toProfile(user)}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toProfile(u storage.User) chat.Profile {
	return chat.Profile{UserID: u.ID, Email: u.Email, FullName: u.FullName}
}
