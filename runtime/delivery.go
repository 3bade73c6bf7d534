package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"pair-chat/auth"
	"pair-chat/contract"
	"pair-chat/domain/chat"
	"pair-chat/domain/event"
	"pair-chat/domain/mimetypes"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/storage"
)

type DeliveryConfig struct {
	PersistTimeout time.Duration
	MaxBodyLength  int
	MaxAttachments int
}

// DeliveryCoordinator runs the persist-then-publish protocol of a send.
// Sends to the same conversation are serialized, so broadcasts happen in
// append order. Once persistence has started the caller's cancellation is
// ignored: the send ends DELIVERED or FAILED.
type DeliveryCoordinator struct {
	log           *slog.Logger
	conversations storage.IConversationRepository
	messages      storage.IMessageRepository
	directory     contract.UserDirectory
	router        contract.IPresenceRouter
	filter        contract.BodyFilter
	domainEvents  chan<- event.DomainEvent
	telemetryChan chan<- event.Event
	locks         *KeyedMutex
	config        DeliveryConfig
}

func NewDeliveryCoordinator(
	log *slog.Logger,
	conversations storage.IConversationRepository,
	messages storage.IMessageRepository,
	directory contract.UserDirectory,
	router contract.IPresenceRouter,
	filter contract.BodyFilter,
	domainEvents chan<- event.DomainEvent,
	telemetryChan chan<- event.Event,
	config DeliveryConfig,
) *DeliveryCoordinator {
	return &DeliveryCoordinator{
		log:           log,
		conversations: conversations,
		messages:      messages,
		directory:     directory,
		router:        router,
		filter:        filter,
		domainEvents:  domainEvents,
		telemetryChan: telemetryChan,
		locks:         NewKeyedMutex(),
		config:        config,
	}
}

type appendResult struct {
	msg       chat.Message
	duplicate bool
	err       error
}

// Send walks a request through RECEIVED, RESOLVE_CONVERSATION, PERSIST,
// ENRICH and BROADCAST. The returned receipt is always filled in, even when
// an error is returned alongside it.
func (d *DeliveryCoordinator) Send(ctx context.Context, cmd chat.SendMessageCommand) (chat.Receipt, error) {
	receipt := chat.Receipt{RequestID: cmd.RequestID, State: chat.Received, ConversationID: cmd.ConversationID}

	attachments, err := d.validate(cmd)
	if err != nil {
		return d.fail(receipt, err)
	}

	receipt.State = chat.ResolveConversation
	conversation, err := d.conversationFor(ctx, cmd)
	if err != nil {
		return d.fail(receipt, err)
	}
	receipt.ConversationID = conversation.ID

	unlock := d.locks.Lock(conversation.ID.String())
	defer unlock()

	body := cmd.Body
	if d.filter != nil {
		var words []string
		if body, words = d.filter.Censor(body); len(words) > 0 {
			d.emitTelemetry(event.Event{
				Type:    event.CensorshipHitType,
				Payload: event.Censored{ConversationID: conversation.ID, Words: words},
			})
		}
	}

	receipt.State = chat.Persist
	result := d.persist(ctx, chat.MessageDraft{
		ConversationID: conversation.ID,
		SenderID:       cmd.SenderID,
		Body:           body,
		Attachments:    attachments,
	}, cmd.IdempotencyKey)
	if result.err != nil {
		return d.fail(receipt, result.err)
	}
	receipt.MessageID = result.msg.ID.String()
	if result.duplicate {
		d.log.Debug("Duplicate send, not broadcast again",
			"conversation_id", conversation.ID, "message_id", result.msg.ID)
		receipt.State = chat.Delivered
		receipt.Duplicate = true
		return receipt, nil
	}

	// From here on the message is durable: nothing may fail the send.
	deliveryCtx := context.WithoutCancel(ctx)

	receipt.State = chat.Enrich
	receiverID, _ := conversation.Members.Counterpart(cmd.SenderID)
	enriched := chat.EnrichedMessage{
		Message:    result.msg,
		Sender:     d.profile(deliveryCtx, cmd.SenderID),
		ReceiverID: receiverID,
	}

	receipt.State = chat.Broadcast
	delivered := event.MessageDelivered{Message: enriched}
	delivered.Recipients = d.router.Publish(deliveryCtx, conversation.ID, delivered)

	receipt.State = chat.Delivered
	receipt.Recipients = delivered.Recipients
	d.emitDomain(delivered)
	d.emitTelemetry(event.Event{Type: event.MessageDeliveredType, Payload: delivered})
	return receipt, nil
}

// ResolveConversation returns the conversation of the pair, creating it on
// first contact. A concurrent creation is resolved by reading the winner.
func (d *DeliveryCoordinator) ResolveConversation(ctx context.Context, senderID, receiverID string) (chat.Conversation, error) {
	pair := chat.NewMemberPair(senderID, receiverID)
	if !pair.Valid() {
		return chat.Conversation{}, fmt.Errorf("%w: a conversation needs two distinct members", apperrors.ErrValidation)
	}
	for _, member := range pair.Slice() {
		if _, err := d.directory.Profile(ctx, member); err != nil {
			return chat.Conversation{}, fmt.Errorf("user %s: %w", member, err)
		}
	}

	conversation, err := d.conversations.GetOrCreate(ctx, pair)
	if errors.Is(err, apperrors.ErrConflict) {
		d.log.Debug("Concurrent conversation creation, re-resolving", "pair", pair.Key())
		conversation, err = d.conversations.Resolve(ctx, pair)
		if errors.Is(err, apperrors.ErrNotFound) {
			conversation, err = d.conversations.GetOrCreate(ctx, pair)
		}
	}
	if errors.Is(err, apperrors.ErrConflict) {
		return chat.Conversation{}, fmt.Errorf("%w: conversation %s kept conflicting", apperrors.ErrPersistence, pair.Key())
	}
	return conversation, err
}

// DeleteConversation removes the conversation with all its messages, then
// tells the room and empties it.
func (d *DeliveryCoordinator) DeleteConversation(ctx context.Context, id chat.ConversationID) error {
	conversation, err := d.conversations.Get(ctx, id)
	if err != nil {
		return err
	}

	unlock := d.locks.Lock(id.String())
	defer unlock()

	if err = d.conversations.Delete(ctx, id); err != nil {
		return err
	}
	deleted := event.ConversationDeleted{ID: id, Members: conversation.Members, DeletedAt: time.Now().UTC()}
	deliveryCtx := context.WithoutCancel(ctx)
	d.router.Publish(deliveryCtx, id, deleted)
	d.router.Evict(id)
	d.emitDomain(deleted)
	d.log.Info("Conversation deleted", "conversation_id", id)
	return nil
}

func (d *DeliveryCoordinator) validate(cmd chat.SendMessageCommand) ([]chat.Attachment, error) {
	err := auth.ValidateSend(auth.SendRequest{
		SenderID: cmd.SenderID,
		Body:     cmd.Body,
		Attachments: lo.Map(cmd.Attachments, func(a chat.Attachment, _ int) auth.AttachmentSpec {
			return auth.AttachmentSpec{Name: a.Name, Size: a.Size}
		}),
	}, auth.SendLimits{MaxBodyLength: d.config.MaxBodyLength, MaxAttachments: d.config.MaxAttachments})
	if err != nil {
		return nil, err
	}
	if len(cmd.Attachments) == 0 {
		return nil, nil
	}

	attachments := make([]chat.Attachment, 0, len(cmd.Attachments))
	for _, a := range cmd.Attachments {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.MimeClass = string(mimetypes.Classify(a.MimeType))
		attachments = append(attachments, a)
	}
	return attachments, nil
}

func (d *DeliveryCoordinator) conversationFor(ctx context.Context, cmd chat.SendMessageCommand) (chat.Conversation, error) {
	if !cmd.ConversationID.IsEstablished() {
		if cmd.ReceiverID == "" {
			return chat.Conversation{}, fmt.Errorf("%w: receiver is required to start a conversation", apperrors.ErrValidation)
		}
		return d.ResolveConversation(ctx, cmd.SenderID, cmd.ReceiverID)
	}

	conversation, err := d.conversations.Get(ctx, cmd.ConversationID)
	if err != nil {
		return chat.Conversation{}, err
	}
	if !conversation.Members.Has(cmd.SenderID) {
		return chat.Conversation{}, fmt.Errorf("%w: %s is not a member of %s", apperrors.ErrForbidden, cmd.SenderID, cmd.ConversationID)
	}
	return conversation, nil
}

// persist waits at most PersistTimeout for the append to commit. The append
// runs detached from the caller so that a disconnecting client cannot abort
// it half way.
func (d *DeliveryCoordinator) persist(ctx context.Context, draft chat.MessageDraft, idempotencyKey string) appendResult {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.PersistTimeout)
	defer cancel()

	done := make(chan appendResult, 1)
	go func() {
		msg, duplicate, err := d.messages.Append(persistCtx, draft, idempotencyKey)
		done <- appendResult{msg: msg, duplicate: duplicate, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil && errors.Is(result.err, context.DeadlineExceeded) {
			result.err = apperrors.ErrPersistenceTimeout
		}
		return result
	case <-persistCtx.Done():
		d.log.Error("Persistence timed out", "conversation_id", draft.ConversationID, "timeout", d.config.PersistTimeout)
		return appendResult{err: apperrors.ErrPersistenceTimeout}
	}
}

func (d *DeliveryCoordinator) profile(ctx context.Context, userID string) chat.Profile {
	profile, err := d.directory.Profile(ctx, userID)
	if err != nil {
		d.log.Warn("Sender enrichment failed, broadcasting bare profile", "user_id", userID, "error", err)
		return chat.Profile{UserID: userID}
	}
	return profile
}

func (d *DeliveryCoordinator) fail(receipt chat.Receipt, err error) (chat.Receipt, error) {
	failedAt := receipt.State
	receipt.State = chat.Failed
	receipt.Err = err
	d.log.Debug("Send failed", "state", failedAt, "conversation_id", receipt.ConversationID, "error", err)
	d.emitTelemetry(event.Event{
		Type:    event.SendFailedType,
		Payload: event.SendFailed{ConversationID: receipt.ConversationID, Reason: err.Error()},
	})
	return receipt, err
}

func (d *DeliveryCoordinator) emitDomain(e event.DomainEvent) {
	if d.domainEvents == nil {
		return
	}
	select {
	case d.domainEvents <- e:
	default:
		d.log.Warn("Domain event channel full, dropping event", "conversation_id", e.ConversationID())
	}
}

func (d *DeliveryCoordinator) emitTelemetry(e event.Event) {
	if d.telemetryChan == nil {
		return
	}
	select {
	case d.telemetryChan <- e:
	default:
	}
}
