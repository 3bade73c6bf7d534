package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/storage"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	dir := t.TempDir()
	var out bytes.Buffer

	// Given an empty directory seeded twice
	opts := options{path: dir, users: 3, messages: 4, password: defaultPassword}
	req.NoError(seed(ctx, &out, opts))
	req.NoError(seed(ctx, &out, opts))
	req.Contains(out.String(), "user3@example.com")

	// Then accounts are reused and messages appended
	db, err := storage.OpenReadOnly(dir)
	req.NoError(err)
	defer db.Close()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users, err := storage.NewUserRepository(db).ListUsers(ctx)
	req.NoError(err)
	req.Len(users, 3)

	conversations, err := storage.NewConversationRepository(db, log).ListForUser(ctx, users[0].ID)
	req.NoError(err)
	req.NotEmpty(conversations)

	messages, err := storage.NewMessageReader(db, log).List(ctx, conversations[0].ID)
	req.NoError(err)
	req.Len(messages, 8)
	req.Len(messages[3].Attachments, 1)
	req.Equal("pdf", messages[3].Attachments[0].MimeClass)
}

func TestSeed_Needs_Two_Users(t *testing.T) {
	err := seed(context.Background(), io.Discard, options{path: t.TempDir(), users: 1})
	require.ErrorIs(t, err, apperrors.ErrValidation)
}
