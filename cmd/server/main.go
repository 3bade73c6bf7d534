package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mama165/sdk-go/logs"

	"pair-chat/auth"
	"pair-chat/contract"
	"pair-chat/domain/event"
	apperrors "pair-chat/errors"
	"pair-chat/infrastructure/grpc/server"
	"pair-chat/infrastructure/httpapi"
	"pair-chat/infrastructure/index"
	"pair-chat/infrastructure/realtime"
	"pair-chat/infrastructure/relay"
	"pair-chat/infrastructure/storage"
	"pair-chat/internal"
	"pair-chat/moderation"
	"pair-chat/runtime"
	"pair-chat/runtime/workers"
	"pair-chat/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until SIGINT/SIGTERM, so that all
// deferred cleanups run before the process exits.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage
	db, err := storage.Open(config.BadgerFilepath, strings.EqualFold(config.LogLevel, "DEBUG"))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users := storage.NewUserRepository(db)
	conversations := storage.NewConversationRepository(db, log)
	messages, err := storage.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() { _ = messages.Close() }()

	messageIndex, err := index.Open(config.BlugeFilepath, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing search index...")
		_ = messageIndex.Close()
	}()

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Events, telemetry & supervision
	telemetryChan := make(chan event.Event, config.EventBufferSize)
	domainEvents := make(chan event.DomainEvent, config.EventBufferSize)
	counter := event.NewCounter()
	censored := event.NewCensoredHandler(log, counter)
	supervisor := workers.NewSupervisor(log, telemetryChan, config.RestartInterval)

	filter, err := buildFilter(config, log)
	if err != nil {
		return err
	}

	// 5. Delivery engine
	router := runtime.NewPresenceRouter(log, config.RoomShards, config.DeliveryTimeout, telemetryChan)
	directory := services.NewDirectoryService(users)
	coordinator := runtime.NewDeliveryCoordinator(log, conversations, messages, directory, router, filter,
		domainEvents, telemetryChan, runtime.DeliveryConfig{
			PersistTimeout: config.PersistTimeout,
			MaxBodyLength:  config.MaxBodyLength,
			MaxAttachments: config.MaxAttachments,
		})

	tokens := auth.NewTokenManager(config.JwtSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(log, users, tokens)
	chatService := services.NewChatService(log, coordinator, conversations, messages, directory, router, messageIndex)
	health := workers.NewHealthMonitoringWorker(log, config.MetricInterval)
	statsService := services.NewStatsService(router, health, counter, censored)

	// 6. Transports
	sessionConfig := realtime.Config{
		BufferSize:    config.ConnectionBufferSize,
		RatePerSecond: config.SendRatePerSecond,
		Burst:         config.SendBurst,
	}
	app := httpapi.NewApp(log, chatService, authService, statsService, tokens, httpapi.Config{
		AuthEnabled: config.AuthEnabled,
		AccessLog:   strings.EqualFold(config.LogLevel, "DEBUG"),
		Session:     sessionConfig,
	})
	var authenticator *server.Authenticator
	if config.AuthEnabled {
		authenticator = server.NewAuthenticator(tokens)
	} else {
		log.Warn("Authentication is disabled, identities are taken from requests")
	}
	grpcServer := server.NewGrpcServer(log, server.NewChatServer(log, chatService, authService, sessionConfig), authenticator)

	// 7. Workers
	fanout := workers.NewEventFanout(log, domainEvents, config.SinkTimeout).Add(messageIndex)
	if config.NatsURL != "" {
		publisher, err := relay.Connect(ctx, log, config.NatsURL, config.NatsStream, config.NatsSubjectPrefix)
		if err != nil {
			return err
		}
		defer publisher.Close()
		fanout.Add(relay.NewRelay(log, publisher, config.NatsSubjectPrefix))
	}
	supervisor.Add(
		workers.NewTelemetryWorker(log, telemetryChan,
			event.NewWorkerRestartedAfterPanicHandler(log, counter),
			event.NewDeliveryHandler(log, counter),
			censored,
		),
		fanout,
		health,
		httpapi.NewHttpWorker(log, app, config.HttpAddress()),
		server.NewGrpcWorker(log, grpcServer, config.GrpcAddress()),
	)

	log.Info("pair-chat started", "http", config.HttpAddress(), "grpc", config.GrpcAddress(), "auth", config.AuthEnabled)
	supervisor.Run(ctx)
	log.Info("Program stopped cleanly")
	return nil
}

func buildFilter(config internal.Config, log *slog.Logger) (contract.BodyFilter, error) {
	if config.CensoredDir == "" && config.CensoredWords == "" {
		return nil, nil
	}
	char, err := internal.CharacterRune(config.CharacterReplacement)
	if err != nil {
		return nil, err
	}
	var fsys = os.DirFS(".")
	dir := ""
	if config.CensoredDir != "" {
		fsys, dir = os.DirFS(config.CensoredDir), "."
	}
	list, err := moderation.LoadWords(fsys, dir, strings.Split(config.CensoredWords, ",")...)
	if errors.Is(err, apperrors.ErrEmptyWords) {
		log.Warn("No censored words found, moderation disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load censored words: %w", err)
	}
	log.Info("Moderation enabled", "words", len(list.Words), "languages", list.Languages)
	return moderation.NewModerator(list.Words, char, log)
}
