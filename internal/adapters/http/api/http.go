// Package api exposes sync control and the dashboard queries over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/nutrimon/internal/adapters/http/swagger"
	"github.com/okian/nutrimon/internal/adapters/repository"
	"github.com/okian/nutrimon/internal/domain/analytics"
	"github.com/okian/nutrimon/internal/domain/model"
	"github.com/okian/nutrimon/pkg/logger"
	"github.com/okian/nutrimon/pkg/metrics"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	SyncData(ctx context.Context) (bool, string)
	SyncIcons(ctx context.Context) bool
	History(ctx context.Context, n int) ([]repository.SyncRun, error)

	Authenticate(ctx context.Context, username, password string) bool
	Crops(ctx context.Context, username string) []string
	Dates(ctx context.Context, username, crop string) []time.Time
	Aggregate(ctx context.Context, q analytics.Query) analytics.View
	Records(ctx context.Context, username, crop string) ([]model.SampleRecord, []string)
	Ranges() analytics.Ranges

	IconPath(crop string) (string, error)
	LogoPath() (string, error)
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	deps    Dependencies
	tokens  *tokenIssuer
	origins []string
	logger  logger.Logger

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// Option configures a Server.
type Option func(*Server)

// WithJWT sets the token signing secret and lifetime. An empty secret keeps
// the random per-process one.
func WithJWT(secret string, ttl time.Duration) Option {
	return func(s *Server) {
		if secret != "" {
			s.tokens.secret = []byte(secret)
			s.tokens.ephemeral = false
		}
		if ttl > 0 {
			s.tokens.ttl = ttl
		}
	}
}

// WithCORSOrigins sets the browser origins allowed to call the API.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithClock overrides time.Now for token issuance and validation.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.tokens.now = now
		}
	}
}

// WithLogger sets the API logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		tokens:        newTokenIssuer(),
		logger:        logger.Get().Named("api"),
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens.ephemeral {
		s.logger.Warn(context.Background(), "no jwt secret configured; tokens are signed with a random key and end with the process")
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.With(MetricsMiddleware("healthz")).Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	swagger.Register(r)
	r.With(MetricsMiddleware("stats")).Get("/stats", s.statsHandler.HandleStats)
	r.With(MetricsMiddleware("login")).Post("/login", s.handleLogin)

	r.With(MetricsMiddleware("icons")).Get("/icons/{crop}", s.handleIcon)
	r.With(MetricsMiddleware("logo")).Get("/logo", s.handleLogo)

	r.Group(func(pr chi.Router) {
		pr.Use(s.authMiddleware)
		pr.With(MetricsMiddleware("crops")).Get("/crops", s.handleCrops)
		pr.With(MetricsMiddleware("dates")).Get("/dates", s.handleDates)
		pr.With(MetricsMiddleware("aggregate")).Get("/aggregate", s.handleAggregate)
		pr.With(MetricsMiddleware("dataset")).Get("/dataset", s.handleDataset)

		pr.Route("/sync", func(sr chi.Router) {
			sr.With(MetricsMiddleware("sync_data")).Post("/data", s.handleSyncData)
			sr.With(MetricsMiddleware("sync_icons")).Post("/icons", s.handleSyncIcons)
			sr.With(MetricsMiddleware("sync_history")).Get("/history", s.handleHistory)
		})
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code, name := status(err)
	msg := http.StatusText(code)
	if err != nil && code < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, code, errorResponse{Code: name, Message: msg})
}
