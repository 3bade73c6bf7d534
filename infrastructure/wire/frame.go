package wire

// Realtime frame types.
const (
	FrameJoinRoom            = "joinRoom"
	FrameLeaveRoom           = "leaveRoom"
	FrameSendMessage         = "sendMessage"
	FrameMessageReceived     = "messageReceived"
	FrameSendAck             = "sendAck"
	FrameConversationDeleted = "conversationDeleted"
	FrameError               = "error"
)

// ClientFrame is sent by a client over a live session.
type ClientFrame struct {
	Type           string              `json:"type"`
	ConversationID string              `json:"conversationId,omitempty"`
	Message        *SendMessageRequest `json:"message,omitempty"`
}

// ServerFrame is pushed by the server over a live session.
type ServerFrame struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversationId,omitempty"`
	Message        *Message `json:"message,omitempty"`
	Ack            *Receipt `json:"ack,omitempty"`
	Error          string   `json:"error,omitempty"`
}
