// Package api exposes the HTTP interface for the webhook service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/apperr"
	"github.com/JakeFAU/leaderboard-webhooks/internal/certificate"
	"github.com/JakeFAU/leaderboard-webhooks/internal/linkpreview"
	"github.com/JakeFAU/leaderboard-webhooks/internal/metrics"
	"github.com/JakeFAU/leaderboard-webhooks/internal/pipeline"
)

const requestTimeout = 2 * time.Minute

// Operations are the pipeline entry points the trigger endpoints call.
type Operations interface {
	PostLeaderboard(ctx context.Context) (pipeline.LeaderboardResult, error)
	Announce(ctx context.Context, blocks []slack.Block) error
	Digest(ctx context.Context, items []linkpreview.Item) ([]slack.Block, error)
}

// Options configure a Server.
type Options struct {
	// APISecret is the bearer token every /api route requires.
	APISecret string
	// StaticDir is served under /dist when set.
	StaticDir string
}

// Server wires HTTP handlers to the pipeline and certificate generator.
type Server struct {
	router chi.Router
	ops    Operations
	certs  certificate.Requester
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(ops Operations, certs certificate.Requester, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ops:    ops,
		certs:  certs,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeAppError(w, apperr.NotFound())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeAppError(w, apperr.MethodNotAllowed())
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if opts.StaticDir != "" {
		r.Get("/dist/*", http.StripPrefix("/dist/", http.FileServer(http.Dir(opts.StaticDir))).ServeHTTP)
	}

	// Handlers in the group see the secret check; method mismatches are
	// answered by the parent router first.
	r.Group(func(r chi.Router) {
		r.Use(secretMiddleware(opts.APISecret))
		r.Post("/api/advent-of-code", s.postLeaderboard)
		r.Post("/api/announcement", s.announce)
		r.Post("/api/certificate", s.renderCertificates)
		r.Post("/api/mail-parser", s.linkDigest)
		r.Post("/api/link-preview", s.linkDigest)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
