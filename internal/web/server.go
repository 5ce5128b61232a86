// Package web provides the HTTP API for cleaning credit application files.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/creditclean/internal/config"
	"github.com/JonMunkholm/creditclean/internal/core"
	"github.com/JonMunkholm/creditclean/internal/metrics"
	weblog "github.com/JonMunkholm/creditclean/internal/web/middleware"
)

// Saver persists cleaned tables. *store.Store implements it.
type Saver interface {
	Save(ctx context.Context, t *core.Table, runID string) (int64, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the cleaning API.
type Server struct {
	cfg     *config.Config
	cleaner *core.Cleaner
	columns core.ColumnSet
	limiter *core.RunLimiter
	metrics *metrics.Recorder
	store   Saver // nil when no database is configured
	router  *chi.Mux
	server  *http.Server
}

// Deps are the collaborators a Server needs besides its configuration.
// Metrics and Store are optional.
type Deps struct {
	Limiter *core.RunLimiter
	Metrics *metrics.Recorder
	Store   Saver
}

// NewServer creates a new Server instance. A limiter is built from
// cfg.Limits when deps carries none.
func NewServer(cfg *config.Config, deps Deps) *Server {
	opts := core.DefaultOptions()

	limiter := deps.Limiter
	if limiter == nil {
		limiter = core.NewRunLimiter(cfg.Limits.MaxConcurrent, cfg.Limits.MaxWait)
	}

	s := &Server{
		cfg:     cfg,
		cleaner: core.NewCleaner(opts),
		columns: opts.Columns,
		limiter: limiter,
		metrics: deps.Metrics,
		store:   deps.Store,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(weblog.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(weblog.Logger(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(weblog.APIKeyAuth(s.cfg.Security))

			r.Post("/clean", s.handleClean)
			r.Post("/duplicates", s.handleDuplicates)
			r.Post("/summary", s.handleSummary)
		})
	})
}

// Start begins listening for HTTP requests. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	slog.Info("starting server", "addr", sc.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Limiter returns the run limiter shared by the clean endpoints.
func (s *Server) Limiter() *core.RunLimiter {
	return s.limiter
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// The API serves no documents
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
