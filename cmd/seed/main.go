package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/urfave/cli/v2"

	"pair-chat/auth"
	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/storage"
	"pair-chat/runtime"
	"pair-chat/services"
)

const defaultPassword = "SeedPassword#1"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("seed: %v", err))
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "seed",
		Usage:  "fill a pair-chat Badger directory with demo users and conversations",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: database.DefaultPath, EnvVars: []string{"BADGER_FILEPATH"}},
			&cli.IntFlag{Name: "users", Value: 3, Usage: "number of demo accounts"},
			&cli.IntFlag{Name: "messages", Value: 5, Usage: "messages per conversation"},
			&cli.StringFlag{Name: "password", Value: defaultPassword, Usage: "password of every demo account"},
		},
		Action: func(c *cli.Context) error {
			return seed(c.Context, c.App.Writer, options{
				path:     c.String("db"),
				users:    c.Int("users"),
				messages: c.Int("messages"),
				password: c.String("password"),
			})
		},
	}
}

type options struct {
	path     string
	users    int
	messages int
	password string
}

// seed registers user1..userN, then writes messages between each pair of
// consecutive users. Existing accounts are reused, so seeding twice only
// appends messages.
func seed(ctx context.Context, out io.Writer, opts options) error {
	if opts.users < 2 {
		return fmt.Errorf("%w: at least two users are needed", apperrors.ErrValidation)
	}
	db, err := storage.Open(opts.path, false)
	if err != nil {
		return fmt.Errorf("error while opening Badger: %w", err)
	}
	defer db.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := storage.NewUserRepository(db)
	conversations := storage.NewConversationRepository(db, log)
	messages, err := storage.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = messages.Close() }()

	directory := services.NewDirectoryService(users)
	router := runtime.NewPresenceRouter(log, 1, time.Second, nil)
	coordinator := runtime.NewDeliveryCoordinator(log, conversations, messages, directory, router, nil, nil, nil,
		runtime.DeliveryConfig{PersistTimeout: 5 * time.Second})
	authService := services.NewAuthService(log, users, auth.NewTokenManager("seed", time.Minute))

	ids := make([]string, 0, opts.users)
	for i := 1; i <= opts.users; i++ {
		email := fmt.Sprintf("user%d@example.com", i)
		profile, err := authService.Register(ctx, fmt.Sprintf("User %d", i), email, opts.password)
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			var existing storage.User
			if existing, err = users.GetUserByEmail(ctx, email); err == nil {
				profile = chat.Profile{UserID: existing.ID}
			}
		}
		if err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
		ids = append(ids, profile.UserID)
		fmt.Fprintf(out, "👤 %s %s\n", color.Green.Sprint(email), profile.UserID)
	}

	for i := 0; i+1 < len(ids); i++ {
		conversation, err := coordinator.ResolveConversation(ctx, ids[i], ids[i+1])
		if err != nil {
			return err
		}
		for n := range opts.messages {
			sender := ids[i+n%2]
			cmd := chat.SendMessageCommand{
				ConversationID: conversation.ID,
				SenderID:       sender,
				Body:           fmt.Sprintf("message %d from %s", n+1, sender),
			}
			if n == opts.messages-1 {
				cmd.Attachments = []chat.Attachment{{Name: "report.pdf", Size: 2048, MimeType: "application/pdf", Locator: "seed://report.pdf"}}
			}
			if _, err = coordinator.Send(ctx, cmd); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "💬 %s %d messages\n", color.Cyan.Sprint(conversation.ID), opts.messages)
	}
	return nil
}
