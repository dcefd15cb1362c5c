package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gurukul-labs/gurukul/internal/log"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger   log.Logger
	Content  ContentService // Required
	DB       Pinger         // Optional: nil means /ready reports unavailable
	Degraded func() bool    // Optional: surfaced in /ready when true
	RateRPS  float64        // Token refill per second per IP (0 = default 10)
	Burst    int            // Rate limiter burst per IP (0 = default 20)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Content == nil {
		return nil, errors.New("content service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &contentHandler{service: cfg.Content, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/content/chunks", ch.ingestChunk)
	mux.HandleFunc("POST /api/v1/content/documents", ch.ingestDocument)
	mux.HandleFunc("POST /api/v1/content/search", ch.search)
	mux.HandleFunc("POST /api/v1/content/answer", ch.answer)

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> RateLimit -> Routes
	// RequestID runs before Logging so request_id appears in log attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack so orchestrator checks are
	// never rate limited.
	hh := &healthHandler{db: cfg.DB, degraded: cfg.Degraded, logger: logger}
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", hh.liveness)
	topMux.HandleFunc("GET /ready", hh.readiness)
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves HTTP on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(err, <-errCh)
	}
	return <-errCh
}
