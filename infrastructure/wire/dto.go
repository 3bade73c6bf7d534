// Package wire holds the JSON shapes shared by the HTTP, websocket and gRPC
// transports, and the conversions from domain types.
package wire

import "time"

type User struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type Attachment struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
	MimeClass string `json:"mimeClass,omitempty"`
	Locator   string `json:"locator"`
}

type Message struct {
	ID             string       `json:"id"`
	User           User         `json:"user"`
	Message        string       `json:"message"`
	SenderID       string       `json:"senderId"`
	ReceiverID     string       `json:"receiverId,omitempty"`
	ConversationID string       `json:"conversationId"`
	CreatedAt      time.Time    `json:"createdAt"`
	Attachments    []Attachment `json:"attachments"`
}

type Conversation struct {
	ConversationID string    `json:"conversationId"`
	User           User      `json:"user"`
	CreatedAt      time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ConversationRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type ConversationResponse struct {
	ConversationID string `json:"conversationId"`
}

type ListConversationsRequest struct {
	UserID string `json:"userId"`
}

type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type SendMessageRequest struct {
	ConversationID string       `json:"conversationId"`
	SenderID       string       `json:"senderId"`
	ReceiverID     string       `json:"receiverId"`
	Message        string       `json:"message"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
	RequestID      string       `json:"requestId,omitempty"`
}

type SendMessageResponse struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Recipients     int    `json:"recipients"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}

type ListMessagesRequest struct {
	ConversationID string `json:"conversationId"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type ListUsersRequest struct {
	UserID string `json:"userId"`
}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

type DeleteConversationRequest struct {
	ConversationID string `json:"conversationId"`
}

type DeleteConversationResponse struct {
	Deleted bool `json:"deleted"`
}

type SearchRequest struct {
	UserID string `json:"userId"`
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
}

type SearchHit struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
	Score          float64   `json:"score"`
}

type SearchResponse struct {
	Hits []SearchHit `json:"hits"`
}

type Receipt struct {
	RequestID      string `json:"requestId,omitempty"`
	State          string `json:"state"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId,omitempty"`
	Recipients     int    `json:"recipients"`
	Duplicate      bool   `json:"duplicate,omitempty"`
	Error          string `json:"error,omitempty"`
}

type Stats struct {
	Connections   int               `json:"connections"`
	Rooms         int               `json:"rooms"`
	CPUPercent    float64           `json:"cpuPercent"`
	MemoryPercent float32           `json:"memoryPercent"`
	RSS           uint64            `json:"rss"`
	Goroutines    int               `json:"goroutines"`
	SampledAt     time.Time         `json:"sampledAt"`
	Counters      map[string]uint64 `json:"counters"`
	CensoredWords map[string]uint64 `json:"censoredWords"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// DirectoryEntry is one row of the user directory as listed over HTTP.
type DirectoryEntry struct {
	User   User   `json:"user"`
	UserID string `json:"userId"`
}

type StatusResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}
