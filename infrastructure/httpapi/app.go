package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"pair-chat/auth"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/realtime"
	"pair-chat/infrastructure/wire"
	"pair-chat/services"
)

type Config struct {
	AuthEnabled   bool
	AccessLog     bool
	Session       realtime.Config
	PingInterval  time.Duration
	WriteWait     time.Duration
	MaxFrameBytes int64
}

type statsProvider interface {
	Stats() services.Stats
}

type Handler struct {
	log         *slog.Logger
	chatService services.IChatService
	authService services.IAuthService
	stats       statsProvider
	tokens      *auth.TokenManager
	config      Config
}

// NewApp builds the fiber application serving the REST API and the /ws
// live channel.
func NewApp(log *slog.Logger, chatService services.IChatService, authService services.IAuthService,
	stats statsProvider, tokens *auth.TokenManager, config Config) *fiber.App {
	h := &Handler{
		log:         log,
		chatService: chatService,
		authService: authService,
		stats:       stats,
		tokens:      tokens,
		config:      config,
	}

	// Immutable: route params end up in events consumed after the handler
	// returns, when fasthttp has already reused the request buffer.
	app := fiber.New(fiber.Config{
		AppName:               "pair-chat",
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	app.Use(recover.New())
	if config.AccessLog {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	api.Post("/register", h.register)
	api.Post("/login", h.login)

	protected := api.Group("", h.authenticate)
	protected.Post("/conversation", h.createConversation)
	protected.Get("/conversations/:userId", h.listConversations)
	protected.Delete("/conversations/:conversationId", h.deleteConversation)
	protected.Post("/message", h.sendMessage)
	protected.Get("/message/:conversationId", h.listMessages)
	protected.Get("/users", h.listUsers)
	protected.Get("/search", h.searchMessages)
	protected.Get("/stats", h.getStats)

	app.Use("/ws", h.upgrade)
	app.Get("/ws", h.liveChannel())

	return app
}

// errorHandler turns domain errors into JSON error responses.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	code := StatusCode(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		h.log.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal Server Error"
	}
	return c.Status(code).JSON(wire.ErrorResponse{Error: message})
}

func StatusCode(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidCredentials), errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrPersistenceTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperrors.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
