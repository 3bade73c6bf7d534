package chat

type SendMessageCommand struct {
	// ConversationID may be empty or NewConversationID when ReceiverID is set.
	ConversationID ConversationID
	SenderID       string
	ReceiverID     string
	Body           string
	Attachments    []Attachment
	IdempotencyKey string
	RequestID      string
}

type DeliveryState string

const (
	Received            DeliveryState = "RECEIVED"
	ResolveConversation DeliveryState = "RESOLVE_CONVERSATION"
	Persist             DeliveryState = "PERSIST"
	Enrich              DeliveryState = "ENRICH"
	Broadcast           DeliveryState = "BROADCAST"
	Delivered           DeliveryState = "DELIVERED"
	Failed              DeliveryState = "FAILED"
)

// Receipt is the outcome of a send request.
type Receipt struct {
	RequestID      string
	State          DeliveryState
	ConversationID ConversationID
	MessageID      string
	Recipients     int
	Duplicate      bool
	Err            error
}

type ConnectionID string
