package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Attachment struct {
	ID        string
	Name      string
	Size      int64
	MimeType  string
	MimeClass string
	Locator   string
}

// Message represents an immutable chat message.
type Message struct {
	ID             uuid.UUID
	ConversationID ConversationID
	SenderID       string
	Body           string
	Attachments    []Attachment
	CreatedAt      time.Time
	// Sequence is the store insertion order, used to break createdAt ties.
	Sequence uint64
}

// HasContent is false when the body is blank and nothing is attached.
func HasContent(body string, attachments []Attachment) bool {
	return strings.TrimSpace(body) != "" || len(attachments) > 0
}

// MessageDraft is what the delivery path hands to the message store.
type MessageDraft struct {
	ConversationID ConversationID
	SenderID       string
	Body           string
	Attachments    []Attachment
}

// EnrichedMessage is a message decorated with its sender's profile,
// ready to be delivered to clients.
type EnrichedMessage struct {
	Message
	Sender     Profile
	ReceiverID string
}
