package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

const shutdownGrace = 5 * time.Second

// HttpWorker serves the fiber app until its context is cancelled.
type HttpWorker struct {
	log     *slog.Logger
	app     *fiber.App
	address string
}

func NewHttpWorker(log *slog.Logger, app *fiber.App, address string) *HttpWorker {
	return &HttpWorker{log: log, app: app, address: address}
}

func (w *HttpWorker) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", w.address)
		errChan <- w.app.Listen(w.address)
	}()

	select {
	case <-ctx.Done():
		w.log.Info("Stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return w.app.ShutdownWithContext(shutdownCtx)
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}
}
