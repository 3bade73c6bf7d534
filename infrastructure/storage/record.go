package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"pair-chat/domain/chat"
)

// Records are stored in protobuf wire format. Field numbers are part of
// the on-disk layout and must never be reused.

type userRecord struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Token        string
	Roles        []string
	CreatedAt    time.Time
}

func (r userRecord) marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendString(b, 2, r.Email)
	b = appendString(b, 3, r.FullName)
	b = appendString(b, 4, r.PasswordHash)
	b = appendString(b, 5, r.Token)
	b = appendTime(b, 6, r.CreatedAt)
	for _, role := range r.Roles {
		b = appendString(b, 7, role)
	}
	return b
}

func unmarshalUser(b []byte) (userRecord, error) {
	var r userRecord
	err := walk(b, func(num protowire.Number, raw []byte, v uint64) error {
		switch num {
		case 1:
			r.ID = string(raw)
		case 2:
			r.Email = string(raw)
		case 3:
			r.FullName = string(raw)
		case 4:
			r.PasswordHash = string(raw)
		case 5:
			r.Token = string(raw)
		case 6:
			r.CreatedAt = fromNanos(v)
		case 7:
			r.Roles = append(r.Roles, string(raw))
		}
		return nil
	})
	return r, err
}

type conversationRecord struct {
	ID        string
	First     string
	Second    string
	CreatedAt time.Time
}

func (r conversationRecord) marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendString(b, 2, r.First)
	b = appendString(b, 3, r.Second)
	b = appendTime(b, 4, r.CreatedAt)
	return b
}

func unmarshalConversation(b []byte) (conversationRecord, error) {
	var r conversationRecord
	err := walk(b, func(num protowire.Number, raw []byte, v uint64) error {
		switch num {
		case 1:
			r.ID = string(raw)
		case 2:
			r.First = string(raw)
		case 3:
			r.Second = string(raw)
		case 4:
			r.CreatedAt = fromNanos(v)
		}
		return nil
	})
	return r, err
}

func (r conversationRecord) toConversation() chat.Conversation {
	return chat.Conversation{
		ID:        chat.ConversationID(r.ID),
		Members:   chat.MemberPair{First: r.First, Second: r.Second},
		CreatedAt: r.CreatedAt,
	}
}

func fromConversation(c chat.Conversation) conversationRecord {
	return conversationRecord{
		ID:        c.ID.String(),
		First:     c.Members.First,
		Second:    c.Members.Second,
		CreatedAt: c.CreatedAt,
	}
}

func marshalMessage(m chat.Message) []byte {
	var b []byte
	b = appendString(b, 1, m.ID.String())
	b = appendString(b, 2, m.ConversationID.String())
	b = appendString(b, 3, m.SenderID)
	b = appendString(b, 4, m.Body)
	b = appendTime(b, 5, m.CreatedAt)
	b = protowire.AppendTag(b, 6, protowire.VarintType)
	b = protowire.AppendVarint(b, m.Sequence)
	for _, a := range m.Attachments {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalAttachment(a))
	}
	return b
}

func unmarshalMessage(b []byte) (chat.Message, error) {
	var m chat.Message
	err := walk(b, func(num protowire.Number, raw []byte, v uint64) error {
		switch num {
		case 1:
			id, err := uuid.Parse(string(raw))
			if err != nil {
				return fmt.Errorf("message id: %w", err)
			}
			m.ID = id
		case 2:
			m.ConversationID = chat.ConversationID(raw)
		case 3:
			m.SenderID = string(raw)
		case 4:
			m.Body = string(raw)
		case 5:
			m.CreatedAt = fromNanos(v)
		case 6:
			m.Sequence = v
		case 7:
			a, err := unmarshalAttachment(raw)
			if err != nil {
				return err
			}
			m.Attachments = append(m.Attachments, a)
		}
		return nil
	})
	return m, err
}

func marshalAttachment(a chat.Attachment) []byte {
	var b []byte
	b = appendString(b, 1, a.ID)
	b = appendString(b, 2, a.Name)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.Size))
	b = appendString(b, 4, a.MimeType)
	b = appendString(b, 5, a.MimeClass)
	b = appendString(b, 6, a.Locator)
	return b
}

func unmarshalAttachment(b []byte) (chat.Attachment, error) {
	var a chat.Attachment
	err := walk(b, func(num protowire.Number, raw []byte, v uint64) error {
		switch num {
		case 1:
			a.ID = string(raw)
		case 2:
			a.Name = string(raw)
		case 3:
			a.Size = int64(v)
		case 4:
			a.MimeType = string(raw)
		case 5:
			a.MimeClass = string(raw)
		case 6:
			a.Locator = string(raw)
		}
		return nil
	})
	return a, err
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(t.UnixNano()))
}

func fromNanos(v uint64) time.Time {
	return time.Unix(0, int64(v)).UTC()
}

// walk visits every varint and length-delimited field of b.
// Fields of other wire types are skipped.
func walk(b []byte, visit func(num protowire.Number, raw []byte, v uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := visit(num, nil, v); err != nil {
				return err
			}
		case protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := visit(num, raw, 0); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}
