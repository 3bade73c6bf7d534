package httpapi

import (
	"fmt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"pair-chat/auth"
	apperrors "pair-chat/errors"
)

const actorKey = "actor_id"

// authenticate resolves the bearer token into the acting user. Without
// authentication every request runs with an empty actor.
func (h *Handler) authenticate(c *fiber.Ctx) error {
	if !h.config.AuthEnabled {
		return c.Next()
	}
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return fmt.Errorf("%w: authorization token is missing", apperrors.ErrUnauthenticated)
	}
	return h.identify(c, token)
}

// upgrade only lets websocket handshakes through. Browsers cannot set
// headers on a handshake, so the token may also come as ?token=.
func (h *Handler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if !h.config.AuthEnabled {
		return c.Next()
	}
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		return fmt.Errorf("%w: authorization token is missing", apperrors.ErrUnauthenticated)
	}
	return h.identify(c, token)
}

func (h *Handler) identify(c *fiber.Ctx, token string) error {
	claims, err := h.tokens.Validate(token)
	if err != nil {
		return fmt.Errorf("%w: invalid or expired token", apperrors.ErrUnauthenticated)
	}
	c.Locals(actorKey, claims.UserID)
	c.SetUserContext(auth.WithIdentity(c.UserContext(), claims))
	return c.Next()
}

func actor(c *fiber.Ctx) string {
	id, _ := c.Locals(actorKey).(string)
	return id
}
