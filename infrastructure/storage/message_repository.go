//go:generate go run go.uber.org/mock/mockgen -source=message_repository.go -destination=../../mocks/mock_message_repository.go -package=mocks
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
)

const (
	sequenceBandwidth  = 1000
	maxConflictRetries = 3
)

type IMessageRepository interface {
	// Append durably stores the draft. When idempotencyKey was already used by
	// the same sender in the same conversation, the original message is
	// returned with duplicate set to true and nothing is written.
	Append(ctx context.Context, draft chat.MessageDraft, idempotencyKey string) (msg chat.Message, duplicate bool, err error)
	List(ctx context.Context, id chat.ConversationID) ([]chat.Message, error)
}

type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	sequence *badger.Sequence
	now      func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("%w: message sequence: %w", apperrors.ErrPersistence, err)
	}
	return &MessageRepository{db: db, log: log, sequence: seq, now: time.Now}, nil
}

// NewMessageReader serves List only, for databases opened read-only.
func NewMessageReader(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, now: time.Now}
}

// Close returns the unused part of the leased sequence range.
func (m *MessageRepository) Close() error {
	if m.sequence == nil {
		return nil
	}
	return m.sequence.Release()
}

// Append persists a message under "msg:{conversation_id}:{created_at}:{sequence}".
// The conversation record is read inside the same transaction, so a message
// can never be committed for a conversation deleted concurrently.
func (m *MessageRepository) Append(ctx context.Context, draft chat.MessageDraft, idempotencyKey string) (chat.Message, bool, error) {
	if !chat.HasContent(draft.Body, draft.Attachments) {
		return chat.Message{}, false, fmt.Errorf("%w: message has neither body nor attachments", apperrors.ErrValidation)
	}
	if !draft.ConversationID.IsEstablished() {
		return chat.Message{}, false, apperrors.ErrNotFound
	}
	if m.sequence == nil {
		return chat.Message{}, false, fmt.Errorf("%w: repository is read-only", apperrors.ErrPersistence)
	}

	var (
		msg       chat.Message
		duplicate bool
		err       error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		msg, duplicate, err = m.append(ctx, draft, idempotencyKey)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		m.log.Debug("Append conflicted, retrying", "conversation_id", draft.ConversationID, "attempt", attempt+1)
	}
	if err != nil {
		return chat.Message{}, false, mapBadgerError(err)
	}
	return msg, duplicate, nil
}

func (m *MessageRepository) append(ctx context.Context, draft chat.MessageDraft, idempotencyKey string) (chat.Message, bool, error) {
	seq, err := m.sequence.Next()
	if err != nil {
		return chat.Message{}, false, err
	}
	msg := chat.Message{
		ID:             uuid.New(),
		ConversationID: draft.ConversationID,
		SenderID:       draft.SenderID,
		Body:           draft.Body,
		Attachments:    draft.Attachments,
		CreatedAt:      m.now().UTC(),
		Sequence:       seq,
	}
	duplicate := false

	err = m.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(conversationKey(draft.ConversationID)); err != nil {
			return err
		}

		key := messageKey(msg.ConversationID, msg.CreatedAt, msg.Sequence)
		if idempotencyKey != "" {
			idemKey := idempotencyIndexKey(draft.ConversationID, draft.SenderID, idempotencyKey)
			item, err := txn.Get(idemKey)
			switch {
			case err == nil:
				original, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				msg, err = getMessage(txn, original)
				duplicate = err == nil
				return err
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			if err = txn.Set(idemKey, key); err != nil {
				return err
			}
		}
		if err := txn.Set(key, marshalMessage(msg)); err != nil {
			return err
		}
		return ctx.Err()
	})
	return msg, duplicate, err
}

// List returns the conversation's messages oldest first. Ids that cannot
// denote a stored conversation yield an empty list.
func (m *MessageRepository) List(ctx context.Context, id chat.ConversationID) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages := make([]chat.Message, 0)
	if !id.IsEstablished() {
		return messages, nil
	}
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := messageScanPrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				msg, err := unmarshalMessage(val)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
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
	return messages, nil
}

func getMessage(txn *badger.Txn, key []byte) (chat.Message, error) {
	item, err := txn.Get(key)
	if err != nil {
		return chat.Message{}, err
	}
	var msg chat.Message
	err = item.Value(func(val []byte) error {
		msg, err = unmarshalMessage(val)
		return err
	})
	return msg, err
}
