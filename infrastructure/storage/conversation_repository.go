//go:generate go run go.uber.org/mock/mockgen -source=conversation_repository.go -destination=../../mocks/mock_conversation_repository.go -package=mocks
package storage

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
)

type IConversationRepository interface {
	Resolve(ctx context.Context, pair chat.MemberPair) (chat.Conversation, error)
	GetOrCreate(ctx context.Context, pair chat.MemberPair) (chat.Conversation, error)
	Get(ctx context.Context, id chat.ConversationID) (chat.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error)
	Delete(ctx context.Context, id chat.ConversationID) error
}

// ConversationRepository stores one record per unordered member pair.
// The pair index key is read and written in the creating transaction, so two
// concurrent creations of the same pair cannot both commit: the loser fails
// with ErrConflict and must re-resolve.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) *ConversationRepository {
	return &ConversationRepository{db: db, log: log, now: time.Now}
}

// Resolve returns the conversation of the pair, or ErrNotFound.
func (r *ConversationRepository) Resolve(ctx context.Context, pair chat.MemberPair) (chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return chat.Conversation{}, err
	}
	var record conversationRecord
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getPair(txn, pair)
		if err != nil {
			return err
		}
		record, err = getConversation(txn, id)
		return err
	})
	if err != nil {
		return chat.Conversation{}, mapBadgerError(err)
	}
	return record.toConversation(), nil
}

// GetOrCreate returns the existing conversation of the pair or creates it.
// ErrConflict means another caller created it concurrently.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, pair chat.MemberPair) (chat.Conversation, error) {
	if !pair.Valid() {
		return chat.Conversation{}, apperrors.ErrValidation
	}
	var record conversationRecord
	err := r.db.Update(func(txn *badger.Txn) error {
		id, err := getPair(txn, pair)
		switch {
		case err == nil:
			record, err = getConversation(txn, id)
			return err
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		record = fromConversation(chat.Conversation{
			ID:        chat.NewConversationIDFrom(uuid.New()),
			Members:   pair,
			CreatedAt: r.now().UTC(),
		})
		id = chat.ConversationID(record.ID)
		if err = txn.Set(pairKey(pair), []byte(record.ID)); err != nil {
			return err
		}
		if err = txn.Set(conversationKey(id), record.marshal()); err != nil {
			return err
		}
		for _, member := range pair.Slice() {
			if err = txn.Set(memberKey(member, id), nil); err != nil {
				return err
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return chat.Conversation{}, mapBadgerError(err)
	}
	return record.toConversation(), nil
}

func (r *ConversationRepository) Get(ctx context.Context, id chat.ConversationID) (chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return chat.Conversation{}, err
	}
	if !id.IsEstablished() {
		return chat.Conversation{}, apperrors.ErrNotFound
	}
	var record conversationRecord
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = getConversation(txn, id)
		return err
	})
	if err != nil {
		return chat.Conversation{}, mapBadgerError(err)
	}
	return record.toConversation(), nil
}

// ListForUser returns the user's conversations, oldest first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conversations := make([]chat.Conversation, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := memberScanPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := chat.ConversationID(it.Item().Key()[len(prefix):])
			record, err := getConversation(txn, id)
			if errors.Is(err, badger.ErrKeyNotFound) {
				r.log.Warn("Dangling membership entry", "user_id", userID, "conversation_id", id)
				continue
			}
			if err != nil {
				return err
			}
			conversations = append(conversations, record.toConversation())
		}
		return nil
	})
	if err != nil {
		return nil, mapBadgerError(err)
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt.Before(conversations[j].CreatedAt)
	})
	return conversations, nil
}

// Delete removes the conversation, its pair and membership index entries,
// every message and every idempotency entry in a single transaction.
func (r *ConversationRepository) Delete(ctx context.Context, id chat.ConversationID) error {
	if !id.IsEstablished() {
		return apperrors.ErrNotFound
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		record, err := getConversation(txn, id)
		if err != nil {
			return err
		}
		pair := chat.MemberPair{First: record.First, Second: record.Second}

		keys := [][]byte{conversationKey(id), pairKey(pair)}
		for _, member := range pair.Slice() {
			keys = append(keys, memberKey(member, id))
		}
		keys = append(keys, collectKeys(txn, messageScanPrefix(id))...)
		keys = append(keys, collectKeys(txn, idempotencyScanPrefix(id))...)

		for _, key := range keys {
			if err = txn.Delete(key); err != nil {
				return err
			}
		}
		return ctx.Err()
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		r.log.Error("Conversation too large to delete atomically", "conversation_id", id)
	}
	return mapBadgerError(err)
}

func getPair(txn *badger.Txn, pair chat.MemberPair) (chat.ConversationID, error) {
	item, err := txn.Get(pairKey(pair))
	if err != nil {
		return "", err
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return chat.ConversationID(id), nil
}

func getConversation(txn *badger.Txn, id chat.ConversationID) (conversationRecord, error) {
	item, err := txn.Get(conversationKey(id))
	if err != nil {
		return conversationRecord{}, err
	}
	var record conversationRecord
	err = item.Value(func(val []byte) error {
		record, err = unmarshalConversation(val)
		return err
	})
	return record, err
}

func collectKeys(txn *badger.Txn, prefix []byte) [][]byte {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}
