//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"pair-chat/domain/chat"
	"pair-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives the events routed to one consumer: a live connection,
// the search index, the broker relay.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// UserDirectory resolves user ids to display profiles.
type UserDirectory interface {
	Profile(ctx context.Context, userID string) (chat.Profile, error)
}

// BodyFilter rewrites a message body before it is stored.
// It returns the filtered body and the words that were masked.
type BodyFilter interface {
	Censor(body string) (string, []string)
}

type IPresenceRouter interface {
	Connect(id chat.ConnectionID, userID string, sink EventSink) error
	Join(id chat.ConnectionID, conversationID chat.ConversationID) error
	Leave(id chat.ConnectionID, conversationID chat.ConversationID)
	Disconnect(id chat.ConnectionID)
	// Publish delivers the event to every connection currently in the room
	// and returns how many accepted it.
	Publish(ctx context.Context, conversationID chat.ConversationID, e event.DomainEvent) int
	// Send delivers the event to a single connection.
	Send(ctx context.Context, id chat.ConnectionID, e event.DomainEvent) error
	// Evict empties the room, used once its conversation is deleted.
	Evict(conversationID chat.ConversationID)
}

type IDeliveryCoordinator interface {
	Send(ctx context.Context, cmd chat.SendMessageCommand) (chat.Receipt, error)
	ResolveConversation(ctx context.Context, senderID, receiverID string) (chat.Conversation, error)
	DeleteConversation(ctx context.Context, id chat.ConversationID) error
}
