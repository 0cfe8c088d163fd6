package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/auth"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/search"
	"chat-relay/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database cleanup
// included) executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB message log + Bluge search index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Core state & hub
	stats := observability.NewMonitor(log)
	messageRepository := repositories.NewMessageRepository(db, log, config.PageSize)
	userRepository := repositories.NewUserRepository(db)
	rooms := runtime.NewRoomRegistry()
	presence := runtime.NewPresenceTracker()
	registry := runtime.NewRegistry()
	hub := runtime.NewChatHub(log, rooms, presence, registry,
		messageRepository, index, stats, config.BufferSize, config.HistoryLimit)

	// 4. Supervised fanout pipeline
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewEventFanout(log, registry, hub.Events(), stats, config.SinkTimeout))
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 5. Services & transports
	tokens := auth.NewTokenManager(config.TokenSecret, config.TokenIssuer, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, tokens)
	chatService := services.NewChatService(hub, messageRepository, index)

	mux := http.NewServeMux()
	httpapi.NewServer(log, chatService, authService, stats).Register(mux)
	mux.Handle("GET /ws", ws.NewHandler(log, chatService, authService, config.ConnectionBufferSize))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")

	return nil
}
