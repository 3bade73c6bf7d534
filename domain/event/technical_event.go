package event

import "pair-chat/domain/chat"

type Type string

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	CensorshipHitType       Type = "CENSORSHIP_HIT"
	MessageDeliveredType    Type = "MESSAGE_DELIVERED"
	DeliveryDroppedType     Type = "DELIVERY_DROPPED"
	SendFailedType          Type = "SEND_FAILED"
)

// Event is a technical event, consumed by the telemetry handlers only.
type Event struct {
	Type    Type
	Payload any
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type Censored struct {
	ConversationID chat.ConversationID
	Words          []string
}

type DeliveryDropped struct {
	ConnectionID   chat.ConnectionID
	ConversationID chat.ConversationID
}

type SendFailed struct {
	ConversationID chat.ConversationID
	Reason         string
}
