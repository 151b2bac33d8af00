package main

import (
	"chat-desk/auth"
	"chat-desk/completion"
	"chat-desk/infrastructure/http/server"
	"chat-desk/repositories"
	"chat-desk/runtime"
	"chat-desk/runtime/workers"
	"chat-desk/search"
	"chat-desk/services"
	"chat-desk/storage"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Desk terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns their lifecycle, so deferred cleanups always run
// before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	completionConfig, err := completion.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("completion config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB) and search index (Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories & collaborators
	identityRepository, err := repositories.NewIdentityRepository(db, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		_ = identityRepository.Close()
	}()
	messageRepository, err := repositories.NewMessageRepository(db, log, config.LimitMessages)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		_ = messageRepository.Close()
	}()

	attachments, err := storage.NewAttachmentStore(config.UploadDir, config.MaxContentLength, log)
	if err != nil {
		return exitRuntime, err
	}
	if completionConfig.APIKey == "" {
		log.Warn("COMPLETION_API_KEY is empty, the assistant channel will fail upstream")
	}
	completionClient := completion.NewClient(completionConfig, &http.Client{}, log)
	index := search.NewIndex(blugeWriter, log)

	// 4. Supervision & Orchestration
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, index, config.IndexBufferSize)

	// 5. Services
	tokens := auth.NewTokenIssuer([]byte(config.SessionSecret), config.SessionDuration)
	gate := auth.NewGate(config.OperatorSecret, tokens, log)
	identityService := services.NewIdentityService(identityRepository, tokens, log)
	router := services.NewChannelRouter(messageRepository, completionClient, orchestrator, config.CompletionTimeout, log)
	desk := services.NewDeskService(gate, identityRepository, messageRepository, index, orchestrator, log)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		_ = orchestrator.Start(ctx)
	}()

	// 7. HTTP Server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr: address,
		Handler: server.NewServer(identityService, router, desk, gate, attachments, server.Config{
			MaxContentLength: int64(config.MaxContentLength),
			LimitMessages:    config.LimitMessages,
			SessionDuration:  config.SessionDuration,
			SecureCookie:     config.SecureCookie,
			UploadDir:        config.UploadDir,
		}, log).Routes(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	code := exitOK
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		code = exitRuntime
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("HTTP server shutdown incomplete", "error", shutdownErr)
	}
	stop()
	<-orchestratorDone
	log.Info("Program stopped cleanly")

	return code, err
}
