package wire

import (
	"github.com/samber/lo"

	"pair-chat/domain/chat"
	"pair-chat/domain/event"
	"pair-chat/domain/search"
	"pair-chat/services"
)

func ToUser(p chat.Profile) User {
	return User{ID: p.UserID, Email: p.Email, FullName: p.FullName}
}

func ToUsers(profiles []chat.Profile) []User {
	return lo.Map(profiles, func(p chat.Profile, _ int) User { return ToUser(p) })
}

func ToMessage(m chat.EnrichedMessage) Message {
	return Message{
		ID:             m.ID.String(),
		User:           ToUser(m.Sender),
		Message:        m.Body,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ConversationID: m.ConversationID.String(),
		CreatedAt:      m.CreatedAt,
		Attachments:    toAttachments(m.Attachments),
	}
}

func ToMessages(messages []chat.EnrichedMessage) []Message {
	return lo.Map(messages, func(m chat.EnrichedMessage, _ int) Message { return ToMessage(m) })
}

func ToConversations(summaries []chat.ConversationSummary) []Conversation {
	return lo.Map(summaries, func(s chat.ConversationSummary, _ int) Conversation {
		return Conversation{
			ConversationID: s.Conversation.ID.String(),
			User:           ToUser(s.Counterpart),
			CreatedAt:      s.Conversation.CreatedAt,
		}
	})
}

func ToSearchHits(hits []search.Hit) []SearchHit {
	return lo.Map(hits, func(h search.Hit, _ int) SearchHit {
		return SearchHit{
			MessageID:      h.MessageID,
			ConversationID: h.ConversationID,
			SenderID:       h.SenderID,
			Message:        h.Body,
			CreatedAt:      h.CreatedAt,
			Score:          h.Score,
		}
	})
}

func ToReceipt(r chat.Receipt) Receipt {
	receipt := Receipt{
		RequestID:      r.RequestID,
		State:          string(r.State),
		ConversationID: r.ConversationID.String(),
		MessageID:      r.MessageID,
		Recipients:     r.Recipients,
		Duplicate:      r.Duplicate,
	}
	if r.Err != nil {
		receipt.Error = r.Err.Error()
	}
	return receipt
}

func ToSendMessageResponse(r chat.Receipt) SendMessageResponse {
	return SendMessageResponse{
		ConversationID: r.ConversationID.String(),
		MessageID:      r.MessageID,
		Recipients:     r.Recipients,
		Duplicate:      r.Duplicate,
	}
}

func ToStats(s services.Stats) Stats {
	return Stats{
		Connections:   s.Connections,
		Rooms:         s.Rooms,
		CPUPercent:    s.CPUPercent,
		MemoryPercent: s.MemoryPercent,
		RSS:           s.RSS,
		Goroutines:    s.Goroutines,
		SampledAt:     s.SampledAt,
		Counters:      s.Counters,
		CensoredWords: s.CensoredWords,
	}
}

// ToCommand turns a send payload into a delivery command.
func (r SendMessageRequest) ToCommand() chat.SendMessageCommand {
	return chat.SendMessageCommand{
		ConversationID: chat.ConversationID(r.ConversationID),
		SenderID:       r.SenderID,
		ReceiverID:     r.ReceiverID,
		Body:           r.Message,
		Attachments: lo.Map(r.Attachments, func(a Attachment, _ int) chat.Attachment {
			return chat.Attachment{ID: a.ID, Name: a.Name, Size: a.Size, MimeType: a.MimeType, Locator: a.Locator}
		}),
		IdempotencyKey: r.IdempotencyKey,
		RequestID:      r.RequestID,
	}
}

// ToServerFrame maps an event routed to a connection onto the frame pushed to the client.
func ToServerFrame(e event.DomainEvent) (ServerFrame, bool) {
	switch evt := e.(type) {
	case event.MessageDelivered:
		msg := ToMessage(evt.Message)
		return ServerFrame{Type: FrameMessageReceived, ConversationID: msg.ConversationID, Message: &msg}, true
	case event.SendAcknowledged:
		ack := ToReceipt(evt.Receipt)
		return ServerFrame{Type: FrameSendAck, ConversationID: ack.ConversationID, Ack: &ack}, true
	case event.ConversationDeleted:
		return ServerFrame{Type: FrameConversationDeleted, ConversationID: evt.ID.String()}, true
	default:
		return ServerFrame{}, false
	}
}

func ErrorFrame(err error) ServerFrame {
	return ServerFrame{Type: FrameError, Error: err.Error()}
}

func toAttachments(attachments []chat.Attachment) []Attachment {
	out := make([]Attachment, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, Attachment{
			ID:        a.ID,
			Name:      a.Name,
			Size:      a.Size,
			MimeType:  a.MimeType,
			MimeClass: a.MimeClass,
			Locator:   a.Locator,
		})
	}
	return out
}

func ToDirectory(profiles []chat.Profile) []DirectoryEntry {
	return lo.Map(profiles, func(p chat.Profile, _ int) DirectoryEntry {
		return DirectoryEntry{User: User{Email: p.Email, FullName: p.FullName}, UserID: p.UserID}
	})
}
