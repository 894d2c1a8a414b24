package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"pollboard/internal/api"
	"pollboard/internal/archive"
	"pollboard/internal/broadcast"
	"pollboard/internal/chat"
	"pollboard/internal/config"
	"pollboard/internal/hub"
	"pollboard/internal/poll"
	"pollboard/internal/presence"
	"pollboard/internal/store"
	"pollboard/internal/websocket"
)

// Application wires every component and owns startup/shutdown. Dependency
// order: store, registry, gateway, archive, then the poll/presence/chat
// managers, the hub, and finally the transport and API surfaces.
type Application struct {
	config     *config.Config
	store      *store.Store
	registry   *websocket.Registry
	archive    *archive.Manager
	sessionHub *hub.Hub
	httpServer *http.Server
}

// NewApplication builds the application from cfg (nil means defaults).
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	sessionStore := store.New(cfg.Session.ChatHistoryLimit)
	registry := websocket.NewRegistry()
	gateway := broadcast.NewGateway(registry)

	archiveManager, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	pollManager := poll.NewManager(sessionStore, gateway, archiveManager, cfg.Session.GraceDelay)
	presenceRegistry := presence.NewRegistry(sessionStore, gateway)
	chatRelay := chat.NewRelay(sessionStore, gateway)

	sessionHub := hub.NewHub(registry, sessionStore, pollManager, presenceRegistry, chatRelay)

	wsHandler := websocket.NewHandler(sessionHub, chatRelay,
		cfg.WebSocket.BufferSize, cfg.WebSocket.PingInterval, cfg.WebSocket.ReadTimeout)
	apiServer := api.NewServer(sessionStore, registry, archiveManager)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      sessionStore,
		registry:   registry,
		archive:    archiveManager,
		sessionHub: sessionHub,
		httpServer: httpServer,
	}, nil
}

// Start brings the hub up before the HTTP server accepts connections.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting Pollboard on %s", app.httpServer.Addr)

	if err := app.sessionHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.sessionHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Pollboard started")
		return nil
	case <-ctx.Done():
		_ = app.sessionHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: HTTP first, then the hub,
// then the archive.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down Pollboard")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.sessionHub.Stop(); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
	if err := app.archive.Close(); err != nil {
		log.Printf("Archive shutdown error: %v", err)
	}

	log.Printf("Pollboard shutdown complete")
	return nil
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
