package httpapi

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"pair-chat/domain/chat"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/wire"
)

func (h *Handler) register(c *fiber.Ctx) error {
	var req wire.RegisterRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if _, err := h.authService.Register(c.UserContext(), req.FullName, req.Email, req.Password); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(wire.StatusResponse{Message: "User registered successfully"})
}

func (h *Handler) login(c *fiber.Ctx) error {
	var req wire.LoginRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(wire.LoginResponse{Token: result.Token, User: wire.ToUser(result.Profile)})
}

func (h *Handler) createConversation(c *fiber.Ctx) error {
	var req wire.ConversationRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	id, err := h.chatService.CreateOrGetConversation(c.UserContext(), actor(c), req.SenderID, req.ReceiverID)
	if err != nil {
		return err
	}
	return c.JSON(wire.ConversationResponse{ConversationID: id.String()})
}

func (h *Handler) listConversations(c *fiber.Ctx) error {
	summaries, err := h.chatService.ListConversations(c.UserContext(), actor(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(wire.ToConversations(summaries))
}

func (h *Handler) deleteConversation(c *fiber.Ctx) error {
	id := chat.ConversationID(c.Params("conversationId"))
	if err := h.chatService.DeleteConversation(c.UserContext(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(wire.StatusResponse{Message: "Conversation deleted successfully"})
}

func (h *Handler) sendMessage(c *fiber.Ctx) error {
	var req wire.SendMessageRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	receipt, err := h.chatService.SendMessage(c.UserContext(), actor(c), req.ToCommand())
	if err != nil {
		return err
	}
	return c.JSON(wire.ToSendMessageResponse(receipt))
}

func (h *Handler) listMessages(c *fiber.Ctx) error {
	messages, err := h.chatService.ListMessages(c.UserContext(), actor(c), chat.ConversationID(c.Params("conversationId")))
	if err != nil {
		return err
	}
	return c.JSON(wire.ToMessages(messages))
}

func (h *Handler) listUsers(c *fiber.Ctx) error {
	users, err := h.chatService.ListUsers(c.UserContext(), actor(c), c.Query("userId"))
	if err != nil {
		return err
	}
	return c.JSON(wire.ToDirectory(users))
}

func (h *Handler) searchMessages(c *fiber.Ctx) error {
	hits, err := h.chatService.SearchMessages(c.UserContext(), actor(c), c.Query("userId"), c.Query("q"), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(wire.ToSearchHits(hits))
}

func (h *Handler) getStats(c *fiber.Ctx) error {
	return c.JSON(wire.ToStats(h.stats.Stats()))
}

func parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: malformed body: %v", apperrors.ErrValidation, err)
	}
	return nil
}
