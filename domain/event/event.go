package event

import (
	"time"

	"pair-chat/domain/chat"
)

// DomainEvent is anything routed to the members of a conversation.
type DomainEvent interface {
	ConversationID() chat.ConversationID
}

// MessageDelivered is emitted once a message has been persisted and
// broadcast to its room.
type MessageDelivered struct {
	Message    chat.EnrichedMessage
	Recipients int
}

func (m MessageDelivered) ConversationID() chat.ConversationID {
	return m.Message.ConversationID
}

type ConversationDeleted struct {
	ID        chat.ConversationID
	Members   chat.MemberPair
	DeletedAt time.Time
}

func (c ConversationDeleted) ConversationID() chat.ConversationID {
	return c.ID
}

// SendAcknowledged is addressed to the single connection that issued the send.
type SendAcknowledged struct {
	Receipt chat.Receipt
}

func (s SendAcknowledged) ConversationID() chat.ConversationID {
	return s.Receipt.ConversationID
}
