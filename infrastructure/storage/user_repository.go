//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "pair-chat/errors"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, user NewUser) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	SetToken(ctx context.Context, id, token string) error
}

type NewUser struct {
	Email        string
	FullName     string
	PasswordHash string
}

// User is the repository view of an account.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Token        string
	Roles        []string
	CreatedAt    time.Time
}

type UserRepository struct {
	db  *badger.DB
	now func() time.Time
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// CreateUser persists the user and its email index in one transaction.
// A concurrent registration of the same email loses with ErrUserAlreadyExists.
func (u *UserRepository) CreateUser(ctx context.Context, user NewUser) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	record := userRecord{
		ID:           uuid.New().String(),
		Email:        user.Email,
		FullName:     user.FullName,
		PasswordHash: user.PasswordHash,
		Roles:        []string{"user"},
		CreatedAt:    u.now().UTC(),
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userEmailKey(user.Email)); err == nil {
			return apperrors.ErrUserAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(userEmailKey(user.Email), []byte(record.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(record.ID), record.marshal())
	})
	if errors.Is(err, badger.ErrConflict) {
		return User{}, apperrors.ErrUserAlreadyExists
	}
	if err != nil {
		return User{}, mapBadgerError(err)
	}
	return toUser(record), nil
}

func (u *UserRepository) GetUser(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	var record userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return User{}, mapBadgerError(err)
	}
	return toUser(record), nil
}

// GetUserByEmail resolves the email index then loads the user.
func (u *UserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	var record userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record, err = getUser(txn, string(id))
		return err
	})
	if err != nil {
		return User{}, mapBadgerError(err)
	}
	return toUser(record), nil
}

// ListUsers returns every user ordered by full name then id.
func (u *UserRepository) ListUsers(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users := make([]User, 0)
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				record, err := unmarshalUser(val)
				if err != nil {
					return err
				}
				users = append(users, toUser(record))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapBadgerError(err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].FullName != users[j].FullName {
			return users[i].FullName < users[j].FullName
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// SetToken replaces the session token stored on the user.
func (u *UserRepository) SetToken(ctx context.Context, id, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		record, err := getUser(txn, id)
		if err != nil {
			return err
		}
		record.Token = token
		return txn.Set(userKey(id), record.marshal())
	})
	return mapBadgerError(err)
}

func getUser(txn *badger.Txn, id string) (userRecord, error) {
	item, err := txn.Get(userKey(id))
	if err != nil {
		return userRecord{}, err
	}
	var record userRecord
	err = item.Value(func(val []byte) error {
		record, err = unmarshalUser(val)
		return err
	})
	return record, err
}

func toUser(r userRecord) User {
	return User{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		PasswordHash: r.PasswordHash,
		Token:        r.Token,
		Roles:        r.Roles,
		CreatedAt:    r.CreatedAt,
	}
}
