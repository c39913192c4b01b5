// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package api exposes the recommendation contract over HTTP. It is a thin
// façade: parsing, validation, and response shaping live here; all
// scoring semantics live in the engine.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/config"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/similarity"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/trending"
)

// RecommendationService is the engine surface the API consumes.
type RecommendationService interface {
	GetRecommendations(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	RecordInteraction(ctx context.Context, userID, workID string, liked bool) error
	ClearUserCache(userID string)
	Profile(ctx context.Context, userID string) (*models.UserProfile, error)
	SimilarWorks(ctx context.Context, workID string, limit int) ([]similarity.ScoredWork, error)
	TrendingWorks(ctx context.Context, days, limit int) ([]trending.TrendingWork, error)
	TrendingSubjects(ctx context.Context, days, limit int) ([]trending.TrendingSubject, error)
	Status(ctx context.Context) recommend.Status
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server hosts the HTTP façade.
type Server struct {
	engine   RecommendationService
	health   HealthChecker
	cfg      *config.ServerConfig
	log      zerolog.Logger
	validate *validator.Validate
	router   chi.Router
}

// NewServer builds the router with middleware and routes attached.
func NewServer(engine RecommendationService, health HealthChecker, cfg *config.ServerConfig, log zerolog.Logger) *Server {
	s := &Server{
		engine:   engine,
		health:   health,
		cfg:      cfg,
		log:      log.With().Str("component", "api").Logger(),
		validate: validator.New(),
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.cfg.RateLimitRequests > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimitRequests, s.cfg.RateLimitWindow))
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommendations", s.handleGetRecommendations)
		r.Post("/recommendations", s.handlePostRecommendations)
		r.Post("/interactions", s.handleRecordInteraction)
		r.Delete("/cache", s.handleClearCache)
		r.Get("/works/{workID}/similar", s.handleSimilarWorks)
		r.Get("/trending", s.handleTrendingWorks)
		r.Get("/trending/subjects", s.handleTrendingSubjects)
		r.Get("/users/{userID}/profile", s.handleUserProfile)
		r.Get("/status", s.handleStatus)
	})

	return r
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
