package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
)

func newMessageFixture(t *testing.T) (*ConversationRepository, *MessageRepository) {
	t.Helper()
	db := openTestDB(t)
	messages, err := NewMessageRepository(db, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	return NewConversationRepository(db, slog.Default()), messages
}

func Test_Append_And_List_Sorted_Messages(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	conversations, messages := newMessageFixture(t)
	conv, err := conversations.GetOrCreate(ctx, chat.NewMemberPair("alice", "bob"))
	req.NoError(err)

	// Given a frozen clock, so every message shares the same createdAt
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	messages.now = func() time.Time { return at }

	var appended []chat.Message
	for i := range 5 {
		msg, dup, err := messages.Append(ctx, chat.MessageDraft{
			ConversationID: conv.ID,
			SenderID:       "alice",
			Body:           fmt.Sprintf("message %d", i),
		}, "")
		req.NoError(err)
		req.False(dup)
		appended = append(appended, msg)
	}

	// When fetching the messages
	listed, err := messages.List(ctx, conv.ID)
	req.NoError(err)

	// Then ties on createdAt are broken by insertion order
	req.Equal(appended, listed)
}

func Test_Append_Concurrent_Keeps_NonDecreasing_Order(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	conversations, messages := newMessageFixture(t)
	conv, err := conversations.GetOrCreate(ctx, chat.NewMemberPair("alice", "bob"))
	req.NoError(err)

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := messages.Append(ctx, chat.MessageDraft{ConversationID: conv.ID, SenderID: "bob", Body: fmt.Sprint(i)}, "")
			req.NoError(err)
		}()
	}
	wg.Wait()

	listed, err := messages.List(ctx, conv.ID)
	req.NoError(err)
	req.Len(listed, n)
	for i := 1; i < len(listed); i++ {
		prev, cur := listed[i-1], listed[i]
		req.False(cur.CreatedAt.Before(prev.CreatedAt))
		if cur.CreatedAt.Equal(prev.CreatedAt) {
			req.Greater(cur.Sequence, prev.Sequence)
		}
	}
}

func Test_Append_Rejects_Empty_Message(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	conversations, messages := newMessageFixture(t)
	conv, err := conversations.GetOrCreate(ctx, chat.NewMemberPair("alice", "bob"))
	req.NoError(err)

	_, _, err = messages.Append(ctx, chat.MessageDraft{ConversationID: conv.ID, SenderID: "alice", Body: "   "}, "")
	req.ErrorIs(err, apperrors.ErrValidation)

	listed, err := messages.List(ctx, conv.ID)
	req.NoError(err)
	req.Empty(listed)
}

func Test_Append_Attachment_Only(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	conversations, messages := newMessageFixture(t)
	conv, err := conversations.GetOrCreate(ctx, chat.NewMemberPair("alice", "bob"))
	req.NoError(err)

	msg, _, err := messages.Append(ctx, chat.MessageDraft{
		ConversationID: conv.ID,
		SenderID:       "alice",
		Attachments:    []chat.Attachment{{ID: "a1", Name: "cat.png", MimeType: "image/png", MimeClass: "image"}},
	}, "")

	req.NoError(err)
	req.Empty(msg.Body)
	req.Len(msg.Attachments, 1)
}

func Test_Append_Unknown_Conversation(t *testing.T) {
	ctx := context.Background()
	_, messages := newMessageFixture(t)

	_, _, err := messages.Append(ctx, chat.MessageDraft{ConversationID: "missing", SenderID: "alice", Body: "hi"}, "")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = messages.Append(ctx, chat.MessageDraft{ConversationID: chat.NewConversationID, SenderID: "alice", Body: "hi"}, "")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func Test_Append_Idempotency_Key(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	conversations, messages := newMessageFixture(t)
	conv, err := conversations.GetOrCreate(ctx, chat.NewMemberPair("alice", "bob"))
	req.NoError(err)
	draft := chat.MessageDraft{ConversationID: conv.ID, SenderID: "alice", Body: "hello"}

	// When the same request is appended twice
	first, dup, err := messages.Append(ctx, draft, "req-1")
	req.NoError(err)
	req.False(dup)
	second, dup, err := messages.Append(ctx, draft, "req-1")
	req.NoError(err)

	// Then the original message is returned and stored once
	req.True(dup)
	req.Equal(first, second)
	listed, err := messages.List(ctx, conv.ID)
	req.NoError(err)
	req.Len(listed, 1)

	// And the same key from the other member is a different request
	_, dup, err = messages.Append(ctx, chat.MessageDraft{ConversationID: conv.ID, SenderID: "bob", Body: "hello"}, "req-1")
	req.NoError(err)
	req.False(dup)
}

func Test_Append_Cancelled_Context_Does_Not_Commit(t *testing.T) {
	req := require.New(t)
	conversations, messages := newMessageFixture(t)
	conv, err := conversations.GetOrCreate(context.Background(), chat.NewMemberPair("alice", "bob"))
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = messages.Append(ctx, chat.MessageDraft{ConversationID: conv.ID, SenderID: "alice", Body: "late"}, "")
	req.ErrorIs(err, context.Canceled)

	listed, err := messages.List(context.Background(), conv.ID)
	req.NoError(err)
	req.Empty(listed)
}

func Test_List_Sentinel_And_Unknown(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	_, messages := newMessageFixture(t)

	for _, id := range []chat.ConversationID{chat.NewConversationID, "", "does-not-exist"} {
		listed, err := messages.List(ctx, id)
		req.NoError(err)
		req.NotNil(listed)
		req.Empty(listed)
	}
}

func Test_Message_Reader_Lists_But_Refuses_Appends(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	conversations, messages := newMessageFixture(t)
	conv, err := conversations.GetOrCreate(ctx, chat.NewMemberPair("alice", "bob"))
	req.NoError(err)
	_, _, err = messages.Append(ctx, chat.MessageDraft{ConversationID: conv.ID, SenderID: "alice", Body: "hi"}, "")
	req.NoError(err)

	reader := NewMessageReader(messages.db, slog.Default())

	listed, err := reader.List(ctx, conv.ID)
	req.NoError(err)
	req.Len(listed, 1)
	_, _, err = reader.Append(ctx, chat.MessageDraft{ConversationID: conv.ID, SenderID: "alice", Body: "again"}, "")
	req.ErrorIs(err, apperrors.ErrPersistence)
	req.NoError(reader.Close())
}
