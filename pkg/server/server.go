// Package server exposes the record store over HTTP: paginated listing with
// ETags, create/update/delete, and the export endpoints used by browser
// extensions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/promptdeck/pkg/logging"
	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/ratelimit"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

// Store is the persistence the server needs.
type Store interface {
	ListPrompts(ctx context.Context, req pagination.Request) (pagination.Page[records.Prompt], error)
	ListPromptSummaries(ctx context.Context, req pagination.Request) (pagination.Page[records.PromptSummary], error)
	ListVariables(ctx context.Context, req pagination.Request) (pagination.Page[records.Variable], error)
	GetPromptContent(ctx context.Context, ownerID, id string) (string, error)
	VariableValues(ctx context.Context, ownerID string) (map[string]string, error)

	CreatePrompt(ctx context.Context, ownerID string, p records.Prompt) (records.Prompt, error)
	UpdatePrompt(ctx context.Context, ownerID, id string, p records.Prompt) (records.Prompt, error)
	DeletePrompt(ctx context.Context, ownerID, id string) error
	CreateVariable(ctx context.Context, ownerID string, v records.Variable) (records.Variable, error)
	UpdateVariable(ctx context.Context, ownerID, id string, v records.Variable) (records.Variable, error)
	DeleteVariable(ctx context.Context, ownerID, id string) error

	LogError(ctx context.Context, e records.ErrorLog) (records.ErrorLog, error)
}

// Optimizer rewrites a prompt for the optimize-prompt extension endpoint.
type Optimizer interface {
	Optimize(ctx context.Context, prompt string) (string, error)
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address (default: ":8080")
	Addr string

	// Tokens maps bearer tokens to owner IDs.
	Tokens map[string]string

	// Limiter gates requests per owner. Nil disables limiting.
	Limiter ratelimit.Limiter

	// Optimizer backs /api/extension/optimize-prompt. Nil answers 503.
	Optimizer Optimizer

	// ShutdownTimeout bounds graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration

	// Logger defaults to the global logger with component=server.
	Logger *zerolog.Logger
}

// Server is the promptdeck HTTP server.
type Server struct {
	store   Store
	config  Config
	logger  zerolog.Logger
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a server backed by store.
func New(store Store, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	logger := logging.NewLogger("server")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Server{
		store:  store,
		config: cfg,
		logger: logger,
	}
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.handler = s.instrument(mux)
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound address once Run is listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
