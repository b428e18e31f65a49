// Package server provides the Connect RPC server for lexidx.
//
// Procedures are unary and carry plain Go structs encoded as JSON
// (application/json) or MessagePack (application/msgpack).
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"lexidx/internal/logging"
	"lexidx/internal/lookup"
)

// Version is set at build time.
var Version = "dev"

const (
	limiterCleanupInterval = time.Minute
	limiterStaleAfter      = 10 * time.Minute
)

// Config holds server configuration.
type Config struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// RateLimit is requests per second per client IP for Export and Reload.
	// Zero or negative disables limiting.
	RateLimit float64
	RateBurst int
}

// Server is the Connect RPC server for lexidx.
type Server struct {
	tables  lookup.Registry
	logger  *slog.Logger
	limiter *rateLimiter // nil when rate limiting is disabled

	mu       sync.Mutex
	server   *http.Server
	draining atomic.Bool
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a new Server.
func New(tables lookup.Registry, cfg Config) *Server {
	s := &Server{
		tables: tables,
		logger: logging.Default(cfg.Logger).With("component", "server"),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newRateLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	return s
}

// registerProbes adds Kubernetes liveness and readiness probe endpoints.
func (s *Server) registerProbes(mux *http.ServeMux) {
	// Liveness probe - returns 200 if the process is alive
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Readiness probe - returns 200 once every lexicon has loaded
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.tables.Ready() && !s.draining.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
}

// buildMux creates a new ServeMux with all RPC handlers and probe endpoints registered.
func (s *Server) buildMux() *http.ServeMux {
	mux := http.NewServeMux()

	opts := append(codecOptions(), connect.WithInterceptors(loggingInterceptor(s.logger)))
	NewLexiconService(s.tables).register(mux, opts...)

	s.registerProbes(mux)
	return mux
}

// Handler returns the full middleware chain. Useful for testing or
// embedding in another server.
func (s *Server) Handler() http.Handler {
	var h http.Handler = compressMiddleware(s.buildMux())
	if s.limiter != nil {
		h = rateLimitMiddleware(s.limiter)(h)
	}
	return h2c.NewHandler(h, &http2.Server{})
}

// Serve starts the server on the given listener.
// It blocks until the server is stopped or an error occurs. Serve after
// Stop returns nil immediately.
func (s *Server) Serve(listener net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.draining.Load() {
		s.mu.Unlock()
		cancel()
		_ = listener.Close()
		return nil
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.stop = cancel
	srv := s.server
	if s.limiter != nil {
		s.limiter.startCleanup(ctx, &s.wg, limiterCleanupInterval, limiterStaleAfter)
	}
	s.mu.Unlock()

	s.logger.Info("server starting", "addr", listener.Addr().String(), "lexicons", len(s.tables))

	err := srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeTCP starts the server on a TCP address.
func (s *Server) ServeTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Stop gracefully stops the server. Readiness reports unavailable while
// in-flight requests drain.
func (s *Server) Stop(ctx context.Context) error {
	s.draining.Store(true)

	s.mu.Lock()
	srv := s.server
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	defer s.wg.Wait()

	if srv == nil {
		return nil
	}
	s.logger.Info("server stopping")
	return srv.Shutdown(ctx)
}
