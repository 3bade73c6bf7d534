//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"pair-chat/contract"
	"pair-chat/domain/chat"
	"pair-chat/domain/event"
	"pair-chat/domain/search"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/storage"
)

// IChatService is what the transports call. Every operation takes the
// authenticated caller as actorID; an empty actorID means authentication is
// disabled and the identities found in the request are trusted.
type IChatService interface {
	CreateOrGetConversation(ctx context.Context, actorID, senderID, receiverID string) (chat.ConversationID, error)
	ListConversations(ctx context.Context, actorID, userID string) ([]chat.ConversationSummary, error)
	SendMessage(ctx context.Context, actorID string, cmd chat.SendMessageCommand) (chat.Receipt, error)
	ListMessages(ctx context.Context, actorID string, id chat.ConversationID) ([]chat.EnrichedMessage, error)
	ListUsers(ctx context.Context, actorID, excludingUserID string) ([]chat.Profile, error)
	DeleteConversation(ctx context.Context, actorID string, id chat.ConversationID) error
	SearchMessages(ctx context.Context, actorID, userID, query string, limit int) ([]search.Hit, error)

	Connect(id chat.ConnectionID, userID string, sink contract.EventSink) error
	JoinRoom(ctx context.Context, id chat.ConnectionID, actorID string, conversationID chat.ConversationID) error
	LeaveRoom(id chat.ConnectionID, conversationID chat.ConversationID)
	Disconnect(id chat.ConnectionID)
	Acknowledge(ctx context.Context, id chat.ConnectionID, receipt chat.Receipt)
}

type MessageSearcher interface {
	Search(ctx context.Context, q *search.Query, conversations []chat.ConversationID) ([]search.Hit, error)
}

type ChatService struct {
	log           *slog.Logger
	coordinator   contract.IDeliveryCoordinator
	conversations storage.IConversationRepository
	messages      storage.IMessageRepository
	directory     *DirectoryService
	router        contract.IPresenceRouter
	searcher      MessageSearcher
}

func NewChatService(
	log *slog.Logger,
	coordinator contract.IDeliveryCoordinator,
	conversations storage.IConversationRepository,
	messages storage.IMessageRepository,
	directory *DirectoryService,
	router contract.IPresenceRouter,
	searcher MessageSearcher,
) *ChatService {
	return &ChatService{
		log:           log,
		coordinator:   coordinator,
		conversations: conversations,
		messages:      messages,
		directory:     directory,
		router:        router,
		searcher:      searcher,
	}
}

func (s *ChatService) CreateOrGetConversation(ctx context.Context, actorID, senderID, receiverID string) (chat.ConversationID, error) {
	senderID, err := actAs(actorID, senderID)
	if err != nil {
		return "", err
	}
	conversation, err := s.coordinator.ResolveConversation(ctx, senderID, receiverID)
	if err != nil {
		return "", err
	}
	return conversation.ID, nil
}

// ListConversations enriches each conversation with the counterpart's
// profile. Conversations whose counterpart vanished are left out.
func (s *ChatService) ListConversations(ctx context.Context, actorID, userID string) ([]chat.ConversationSummary, error) {
	userID, err := actAs(actorID, userID)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", apperrors.ErrValidation)
	}
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]chat.ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		counterpartID, _ := c.Members.Counterpart(userID)
		profile, err := s.directory.Profile(ctx, counterpartID)
		if errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("Counterpart not found, conversation omitted", "conversation_id", c.ID, "user_id", counterpartID)
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, chat.ConversationSummary{Conversation: c, Counterpart: profile})
	}
	return summaries, nil
}

func (s *ChatService) SendMessage(ctx context.Context, actorID string, cmd chat.SendMessageCommand) (chat.Receipt, error) {
	senderID, err := actAs(actorID, cmd.SenderID)
	if err != nil {
		return chat.Receipt{RequestID: cmd.RequestID, State: chat.Failed, ConversationID: cmd.ConversationID, Err: err}, err
	}
	cmd.SenderID = senderID
	return s.coordinator.Send(ctx, cmd)
}

// ListMessages returns the conversation's messages oldest first, each
// decorated with its sender's profile. The "new" sentinel and unknown ids
// yield an empty list.
func (s *ChatService) ListMessages(ctx context.Context, actorID string, id chat.ConversationID) ([]chat.EnrichedMessage, error) {
	enriched := make([]chat.EnrichedMessage, 0)
	if !id.IsEstablished() {
		return enriched, nil
	}
	conversation, err := s.conversations.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return enriched, nil
	}
	if err != nil {
		return nil, err
	}
	if actorID != "" && !conversation.Members.Has(actorID) {
		return nil, apperrors.ErrForbidden
	}

	messages, err := s.messages.List(ctx, id)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]chat.Profile, 2)
	for _, m := range messages {
		profile, ok := profiles[m.SenderID]
		if !ok {
			profile, err = s.directory.Profile(ctx, m.SenderID)
			if err != nil {
				s.log.Warn("Sender profile unavailable", "user_id", m.SenderID, "error", err)
				profile = chat.Profile{UserID: m.SenderID}
			}
			profiles[m.SenderID] = profile
		}
		receiverID, _ := conversation.Members.Counterpart(m.SenderID)
		enriched = append(enriched, chat.EnrichedMessage{Message: m, Sender: profile, ReceiverID: receiverID})
	}
	return enriched, nil
}

func (s *ChatService) ListUsers(ctx context.Context, actorID, excludingUserID string) ([]chat.Profile, error) {
	if excludingUserID == "" {
		excludingUserID = actorID
	}
	return s.directory.ListUsers(ctx, excludingUserID)
}

func (s *ChatService) DeleteConversation(ctx context.Context, actorID string, id chat.ConversationID) error {
	if err := s.checkMember(ctx, actorID, id); err != nil {
		return err
	}
	return s.coordinator.DeleteConversation(ctx, id)
}

// SearchMessages looks for query in the conversations the user belongs to.
func (s *ChatService) SearchMessages(ctx context.Context, actorID, userID, query string, limit int) ([]search.Hit, error) {
	userID, err := actAs(actorID, userID)
	if err != nil {
		return nil, err
	}
	q := search.NewSearchQuery(query).WithLimit(limit)
	if q.Empty() || userID == "" {
		return nil, fmt.Errorf("%w: search needs a user and some terms", apperrors.ErrValidation)
	}
	conversations, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(conversations, func(c chat.Conversation, _ int) chat.ConversationID { return c.ID })
	if q.ConversationID != "" {
		ids = lo.Filter(ids, func(id chat.ConversationID, _ int) bool { return id.String() == q.ConversationID })
	}
	if len(ids) == 0 {
		return []search.Hit{}, nil
	}
	return s.searcher.Search(ctx, q, ids)
}

func (s *ChatService) Connect(id chat.ConnectionID, userID string, sink contract.EventSink) error {
	return s.router.Connect(id, userID, sink)
}

// JoinRoom subscribes the connection to a conversation's live messages.
// Joining the "new" sentinel is accepted and does nothing.
func (s *ChatService) JoinRoom(ctx context.Context, id chat.ConnectionID, actorID string, conversationID chat.ConversationID) error {
	if !conversationID.IsEstablished() {
		return nil
	}
	if err := s.checkMember(ctx, actorID, conversationID); err != nil {
		return err
	}
	return s.router.Join(id, conversationID)
}

func (s *ChatService) LeaveRoom(id chat.ConnectionID, conversationID chat.ConversationID) {
	s.router.Leave(id, conversationID)
}

func (s *ChatService) Disconnect(id chat.ConnectionID) {
	s.router.Disconnect(id)
}

// Acknowledge sends the outcome of a send back to the connection that issued it.
func (s *ChatService) Acknowledge(ctx context.Context, id chat.ConnectionID, receipt chat.Receipt) {
	if err := s.router.Send(ctx, id, event.SendAcknowledged{Receipt: receipt}); err != nil {
		s.log.Debug("Acknowledgment not delivered", "connection_id", id, "request_id", receipt.RequestID, "error", err)
	}
}

// checkMember verifies the conversation exists and, when authenticated,
// that the actor is one of its members.
func (s *ChatService) checkMember(ctx context.Context, actorID string, id chat.ConversationID) error {
	conversation, err := s.conversations.Get(ctx, id)
	if err != nil {
		return err
	}
	if actorID != "" && !conversation.Members.Has(actorID) {
		return apperrors.ErrForbidden
	}
	return nil
}

// actAs returns the identity an operation runs as. Authenticated callers can
// only act as themselves.
func actAs(actorID, claimedID string) (string, error) {
	switch {
	case actorID == "":
		return claimedID, nil
	case claimedID == "" || claimedID == actorID:
		return actorID, nil
	default:
		return "", fmt.Errorf("%w: cannot act as %s", apperrors.ErrForbidden, claimedID)
	}
}
