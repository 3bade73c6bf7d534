package services

import (
	"context"

	"github.com/samber/lo"

	"pair-chat/domain/chat"
	"pair-chat/infrastructure/storage"
)

// DirectoryService is the user directory backed by the user repository.
type DirectoryService struct {
	users storage.IUserRepository
}

func NewDirectoryService(users storage.IUserRepository) *DirectoryService {
	return &DirectoryService{users: users}
}

func (d *DirectoryService) Profile(ctx context.Context, userID string) (chat.Profile, error) {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return chat.Profile{}, err
	}
	return toProfile(user), nil
}

// ListUsers returns every profile except the one of excludingUserID.
func (d *DirectoryService) ListUsers(ctx context.Context, excludingUserID string) ([]chat.Profile, error) {
	users, err := d.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	others := lo.Filter(users, func(u storage.User, _ int) bool {
		return u.ID != excludingUserID
	})
	return lo.Map(others, func(u storage.User, _ int) chat.Profile {
		return toProfile(u)
	}), nil
}
