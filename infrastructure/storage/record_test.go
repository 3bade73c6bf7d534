package storage

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"pair-chat/domain/chat"
)

func TestMessageRecord_KeepsAttachmentOrder(t *testing.T) {
	req := require.New(t)
	msg := chat.Message{
		ID:             uuid.New(),
		ConversationID: "c1",
		SenderID:       "alice",
		CreatedAt:      time.Unix(0, 1_700_000_000_123_456_789).UTC(),
		Sequence:       42,
		Attachments: []chat.Attachment{
			{ID: "a1", Name: "cat.png", Size: 2048, MimeType: "image/png", MimeClass: "image", Locator: "/files/a1"},
			{ID: "a2", Name: "cv.pdf", Size: 10, MimeType: "application/pdf", MimeClass: "pdf"},
		},
	}

	decoded, err := unmarshalMessage(marshalMessage(msg))

	req.NoError(err)
	req.Empty(cmp.Diff(msg, decoded))
}

func TestRecord_SkipsUnknownFields(t *testing.T) {
	req := require.New(t)
	// Given a record written by a newer version with an extra fixed64 field
	b := conversationRecord{ID: "c1", First: "a", Second: "b"}.marshal()
	b = protowire.AppendTag(b, 99, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 7)

	record, err := unmarshalConversation(b)

	req.NoError(err)
	req.Equal("c1", record.ID)
	req.Equal("b", record.Second)
}

func TestRecord_RejectsTruncatedInput(t *testing.T) {
	b := userRecord{ID: "u1", Email: "alice@example.com"}.marshal()
	_, err := unmarshalUser(b[:len(b)-3])
	require.Error(t, err)
}
