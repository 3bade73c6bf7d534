package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"

	"pair-chat/domain/chat"
	"pair-chat/domain/event"
	"pair-chat/domain/search"
	"pair-chat/errors"
)

const (
	fieldID           = "_id"
	fieldBody         = "body"
	fieldConversation = "conversation_id"
	fieldSender       = "sender_id"
	fieldCreatedAt    = "created_at"
)

// MessageIndex keeps a full-text index of message bodies.
// It is fed by the event fan-out and is eventually consistent with storage.
type MessageIndex struct {
	log    *slog.Logger
	writer *bluge.Writer
}

// Open opens the index at path, or an in-memory index when path is empty.
func Open(path string, log *slog.Logger) (*MessageIndex, error) {
	cfg := bluge.InMemoryOnlyConfig()
	if path != "" {
		cfg = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	return &MessageIndex{log: log, writer: writer}, nil
}

func (i *MessageIndex) Close() error {
	return i.writer.Close()
}

// Consume indexes delivered messages and forgets deleted conversations.
func (i *MessageIndex) Consume(ctx context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageDelivered:
		return i.Index(evt.Message.Message)
	case event.ConversationDeleted:
		return i.DeleteConversation(ctx, evt.ID)
	default:
		return nil
	}
}

func (i *MessageIndex) Index(msg chat.Message) error {
	if msg.Body == "" {
		return nil
	}
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField(fieldBody, msg.Body).StoreValue()).
		AddField(bluge.NewKeywordField(fieldConversation, msg.ConversationID.String()).StoreValue()).
		AddField(bluge.NewKeywordField(fieldSender, msg.SenderID).StoreValue()).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, msg.CreatedAt).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// DeleteConversation removes every indexed message of the conversation.
func (i *MessageIndex) DeleteConversation(ctx context.Context, id chat.ConversationID) error {
	reader, err := i.writer.Reader()
	if err != nil {
		return err
	}
	defer reader.Close()

	q := bluge.NewTermQuery(id.String()).SetField(fieldConversation)
	matches, err := reader.Search(ctx, bluge.NewAllMatches(q))
	if err != nil {
		return err
	}

	batch := bluge.NewBatch()
	count := 0
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == fieldID {
				batch.Delete(bluge.Identifier(value))
				count++
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		match, err = matches.Next()
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	i.log.Debug("Removing conversation from index", "conversation_id", id, "documents", count)
	return i.writer.Batch(batch)
}

// Search returns the best matching messages among the given conversations.
func (i *MessageIndex) Search(ctx context.Context, q *search.Query, conversations []chat.ConversationID) ([]search.Hit, error) {
	if q.Empty() {
		return nil, fmt.Errorf("%w: empty search", errors.ErrValidation)
	}
	hits := make([]search.Hit, 0)
	if len(conversations) == 0 {
		return hits, nil
	}

	scope := bluge.NewBooleanQuery().SetMinShould(1)
	for _, id := range conversations {
		scope.AddShould(bluge.NewTermQuery(id.String()).SetField(fieldConversation))
	}
	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(q.Terms).SetField(fieldBody)).
		AddMust(scope)
	if q.SenderID != "" {
		query.AddMust(bluge.NewTermQuery(q.SenderID).SetField(fieldSender))
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(q.Limit, query))
	if err != nil {
		return nil, err
	}
	match, err := matches.Next()
	for err == nil && match != nil {
		hit := search.Hit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldID:
				hit.MessageID = string(value)
			case fieldBody:
				hit.Body = string(value)
			case fieldConversation:
				hit.ConversationID = string(value)
			case fieldSender:
				hit.SenderID = string(value)
			case fieldCreatedAt:
				if at, decodeErr := bluge.DecodeDateTime(value); decodeErr == nil {
					hit.CreatedAt = at.UTC()
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
