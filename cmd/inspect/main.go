package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"pair-chat/domain/chat"
	"pair-chat/infrastructure/storage"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("inspect: %v", err))
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "inspect",
		Usage:  "print the content of a pair-chat Badger directory",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the Badger directory",
				Value:   database.DefaultPath,
				EnvVars: []string{"BADGER_FILEPATH"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "users",
				Usage:  "list registered users",
				Action: withStore(printUsers),
			},
			{
				Name:   "conversations",
				Usage:  "list conversations, optionally for one user",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "user", Usage: "only conversations of this user id"}},
				Action: withStore(printConversations),
			},
			{
				Name:      "messages",
				Usage:     "list the messages of a conversation, oldest first",
				ArgsUsage: "<conversation-id>",
				Action:    withStore(printMessages),
			},
		},
	}
}

type store struct {
	users         *storage.UserRepository
	conversations *storage.ConversationRepository
	messages      *storage.MessageRepository
}

func withStore(action func(c *cli.Context, s store) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := storage.OpenReadOnly(c.String("db"))
		if err != nil {
			return fmt.Errorf("error while opening Badger: %w", err)
		}
		defer db.Close()
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		return action(c, store{
			users:         storage.NewUserRepository(db),
			conversations: storage.NewConversationRepository(db, log),
			messages:      storage.NewMessageReader(db, log),
		})
	}
}

func printUsers(c *cli.Context, s store) error {
	users, err := s.users.ListUsers(c.Context)
	if err != nil {
		return err
	}
	table := newTable(c.App.Writer, "ID", "Full name", "Email", "Logged in", "Created at")
	for _, u := range users {
		table.Append([]string{u.ID, u.FullName, u.Email, strconv.FormatBool(u.Token != ""), formatTime(u.CreatedAt)})
	}
	table.Render()
	return nil
}

func printConversations(c *cli.Context, s store) error {
	userIDs := []string{c.String("user")}
	if userIDs[0] == "" {
		users, err := s.users.ListUsers(c.Context)
		if err != nil {
			return err
		}
		userIDs = userIDs[:0]
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
	}

	seen := make(map[chat.ConversationID]struct{})
	table := newTable(c.App.Writer, "ID", "First member", "Second member", "Messages", "Created at")
	for _, userID := range userIDs {
		conversations, err := s.conversations.ListForUser(c.Context, userID)
		if err != nil {
			return err
		}
		for _, conv := range conversations {
			if _, ok := seen[conv.ID]; ok {
				continue
			}
			seen[conv.ID] = struct{}{}
			messages, err := s.messages.List(c.Context, conv.ID)
			if err != nil {
				return err
			}
			table.Append([]string{
				conv.ID.String(), conv.Members.First, conv.Members.Second,
				strconv.Itoa(len(messages)), formatTime(conv.CreatedAt),
			})
		}
	}
	table.Render()
	return nil
}

func printMessages(c *cli.Context, s store) error {
	if c.NArg() != 1 {
		return cli.ShowCommandHelp(c, "messages")
	}
	id := chat.ConversationID(c.Args().First())
	if _, err := s.conversations.Get(c.Context, id); err != nil {
		return fmt.Errorf("conversation %s: %w", id, err)
	}
	messages, err := s.messages.List(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, color.New(color.FgGreen, color.OpBold).Sprintf("%d message(s) in %s", len(messages), id))
	table := newTable(c.App.Writer, "Seq", "Created at", "Sender", "Body", "Attachments")
	for _, m := range messages {
		table.Append([]string{
			strconv.FormatUint(m.Sequence, 10), formatTime(m.CreatedAt), m.SenderID,
			m.Body, strconv.Itoa(len(m.Attachments)),
		})
	}
	table.Render()
	return nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
