// Package gateway exposes the orchestrator over HTTP: agent
// registration and listing, task execution and health probes.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"learnloop/internal/infra/config"
	"learnloop/internal/infra/middleware"
	"learnloop/internal/orchestrator"
	"learnloop/internal/plugin"
)

// Server is the HTTP API server.
type Server struct {
	orch    *orchestrator.Orchestrator
	plugins *plugin.Registry
	auth    Authenticator
	cfg     config.GatewayConfig
	logger  *slog.Logger

	httpSrv   *http.Server
	boundAddr string
}

// NewServer creates the gateway. auth may be nil, in which case the API
// is open; intended only for local development.
func NewServer(
	orch *orchestrator.Orchestrator,
	plugins *plugin.Registry,
	auth Authenticator,
	cfg config.GatewayConfig,
	logger *slog.Logger,
) *Server {
	return &Server{
		orch:    orch,
		plugins: plugins,
		auth:    auth,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start begins serving. Blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /agents/register", s.handleRegister)
	mux.HandleFunc("GET /agents", s.handleListAgents)
	mux.HandleFunc("GET /agents/{id}", s.handleGetAgent)
	mux.HandleFunc("GET /agents/{id}/health", s.handleAgentHealth)
	mux.HandleFunc("POST /tasks/execute", s.handleExecuteTask)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	var handler http.Handler = mux
	handler = s.authenticate(handler)
	if s.cfg.RateLimit.Enabled {
		handler = middleware.RateLimit(ctx,
			s.cfg.RateLimit.RequestsPerMin, s.cfg.RateLimit.BurstSize)(handler)
	}
	handler = middleware.SecurityHeaders(handler)

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()

	s.httpSrv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("gateway started", "addr", s.boundAddr)

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr returns the actual address the server bound to. Only valid
// after Start.
func (s *Server) BoundAddr() string { return s.boundAddr }

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		client, err := s.auth.Authenticate(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.logger.Debug("authenticated request", "client", client.Name, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
