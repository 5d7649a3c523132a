// Package notify is the always-on HTTP endpoint the tracker calls back
// with approved/rejected status updates. It runs concurrently with the
// chat gateway and never sends a DM inline: delivery is handed off into
// the chat domain's task queue.
package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pantrybot/internal/metrics"
	"pantrybot/internal/transport"
)

// Resolver finds a live member for a "name#discriminator" handle.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (transport.Member, bool)
}

// Deliverer marshals a DM into the chat domain; it must not block and the
// eventual send outcome is fire-and-forget from this side.
type Deliverer interface {
	DeliverDM(userID, text string)
}

type Config struct {
	ListenAddr string
	Secret     string
	BotName    string
	// SheetURL is the fixed footer link appended to every status message.
	SheetURL string
}

type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        Config
	resolver   Resolver
	deliverer  Deliverer
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewServer(cfg Config, resolver Resolver, deliverer Deliverer, m *metrics.Metrics, log zerolog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		resolver:  resolver,
		deliverer: deliverer,
		metrics:   m,
		log:       log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/notify", s.handleNotify)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("http request")
	})
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting notify listener")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
