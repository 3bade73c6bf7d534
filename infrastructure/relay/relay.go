package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"pair-chat/domain/chat"
	"pair-chat/domain/event"
)

const (
	kindMessageDelivered    = "messageDelivered"
	kindConversationDeleted = "conversationDeleted"
)

//go:generate go run go.uber.org/mock/mockgen -source=relay.go -destination=../../mocks/mock_publisher.go -package=mocks
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Envelope is the payload written to the broker for every relayed event.
type Envelope struct {
	Kind           string          `json:"kind"`
	ConversationID string          `json:"conversationId"`
	Message        *RelayedMessage `json:"message,omitempty"`
	Recipients     int             `json:"recipients,omitempty"`
	Members        []string        `json:"members,omitempty"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

type RelayedMessage struct {
	ID          string            `json:"id"`
	SenderID    string            `json:"senderId"`
	SenderName  string            `json:"senderName,omitempty"`
	ReceiverID  string            `json:"receiverId"`
	Body        string            `json:"body"`
	Attachments []chat.Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Relay forwards delivered messages and deletions to a broker, one subject per conversation.
type Relay struct {
	log       *slog.Logger
	publisher Publisher
	prefix    string
}

func NewRelay(log *slog.Logger, publisher Publisher, prefix string) *Relay {
	return &Relay{log: log, publisher: publisher, prefix: prefix}
}

func (r *Relay) Subject(id chat.ConversationID) string {
	return fmt.Sprintf("%s.%s", r.prefix, id)
}

func (r *Relay) Consume(ctx context.Context, e event.DomainEvent) error {
	envelope, ok := toEnvelope(e)
	if !ok {
		return nil
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", envelope.Kind, err)
	}
	subject := r.Subject(e.ConversationID())
	if err := r.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject '%s': %w", subject, err)
	}
	r.log.Debug("Relayed event", "subject", subject, "kind", envelope.Kind)
	return nil
}

func toEnvelope(e event.DomainEvent) (Envelope, bool) {
	switch evt := e.(type) {
	case event.MessageDelivered:
		msg := evt.Message
		return Envelope{
			Kind:           kindMessageDelivered,
			ConversationID: msg.ConversationID.String(),
			Recipients:     evt.Recipients,
			OccurredAt:     msg.CreatedAt,
			Message: &RelayedMessage{
				ID:          msg.ID.String(),
				SenderID:    msg.SenderID,
				SenderName:  msg.Sender.FullName,
				ReceiverID:  msg.ReceiverID,
				Body:        msg.Body,
				Attachments: msg.Attachments,
				CreatedAt:   msg.CreatedAt,
			},
		}, true
	case event.ConversationDeleted:
		return Envelope{
			Kind:           kindConversationDeleted,
			ConversationID: evt.ID.String(),
			Members:        evt.Members.Slice(),
			OccurredAt:     evt.DeletedAt,
		}, true
	default:
		return Envelope{}, false
	}
}

// JetStreamPublisher publishes to a JetStream stream that captures "<prefix>.*".
type JetStreamPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect dials the broker and makes sure the stream exists.
func Connect(ctx context.Context, log *slog.Logger, url, stream, prefix string) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("pair-chat"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	if _, err := js.Stream(ctx, stream); err != nil {
		log.Info("Stream not found, creating it", "stream", stream)
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        stream,
			Description: "Relayed pair-chat events",
			Subjects:    []string{fmt.Sprintf("%s.*", prefix)},
			MaxAge:      24 * time.Hour,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream '%s': %w", stream, err)
		}
	}
	return &JetStreamPublisher{nc: nc, js: js}, nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.js.Publish(ctx, subject, data)
	return err
}

func (p *JetStreamPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
	}
}
