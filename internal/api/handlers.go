// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend"
)

// recommendationsBody is the POST variant of a recommendations request.
type recommendationsBody struct {
	UserID     string   `json:"userId"`
	Limit      int      `json:"limit" validate:"gte=0,lte=100"`
	ExcludeIDs []string `json:"excludeIds" validate:"max=500"`
}

// interactionBody records one like/dislike.
type interactionBody struct {
	UserID string `json:"userId" validate:"required"`
	WorkID string `json:"workId" validate:"required"`
	Liked  *bool  `json:"liked" validate:"required"`
}

func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	limit, err := parseIntParam(q.Get("limit"), 0)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return
	}

	req := recommend.Request{
		UserID:     q.Get("userId"),
		Limit:      limit,
		ExcludeIDs: splitIDs(q.Get("excludeIds")),
	}
	s.serveRecommendations(w, r, req, start)
}

func (s *Server) handlePostRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body recommendationsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req := recommend.Request{
		UserID:     body.UserID,
		Limit:      body.Limit,
		ExcludeIDs: body.ExcludeIDs,
	}
	s.serveRecommendations(w, r, req, start)
}

func (s *Server) serveRecommendations(w http.ResponseWriter, r *http.Request, req recommend.Request, start time.Time) {
	resp, err := s.engine.GetRecommendations(r.Context(), req)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidRequest) {
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).
			Msg("recommendations failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal", "recommendation request failed")
		return
	}
	s.writeData(w, r, http.StatusOK, resp, start)
}

func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body interactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := s.engine.RecordInteraction(r.Context(), body.UserID, body.WorkID, *body.Liked); err != nil {
		if errors.Is(err, recommend.ErrInvalidRequest) {
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).
			Msg("record interaction failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal", "interaction could not be recorded")
		return
	}
	s.writeData(w, r, http.StatusAccepted, map[string]string{"status": "recorded"}, start)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.engine.ClearUserCache(r.URL.Query().Get("userId"))
	s.writeData(w, r, http.StatusOK, map[string]string{"status": "cleared"}, start)
}

func (s *Server) handleSimilarWorks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	workID := chi.URLParam(r, "workID")

	limit, err := parseIntParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return
	}

	similar, err := s.engine.SimilarWorks(r.Context(), workID, limit)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrWorkNotFound):
			s.writeError(w, r, http.StatusNotFound, "not_found", "work not found")
		case errors.Is(err, recommend.ErrInvalidRequest):
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			s.log.Error().Err(err).Str("request_id", requestID(r.Context())).
				Msg("similar works failed")
			s.writeError(w, r, http.StatusInternalServerError, "internal", "similar works lookup failed")
		}
		return
	}
	s.writeData(w, r, http.StatusOK, similar, start)
}

func (s *Server) handleTrendingWorks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	days, err := parseIntParam(q.Get("days"), 0)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "days must be an integer")
		return
	}
	limit, err := parseIntParam(q.Get("limit"), 10)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return
	}

	works, err := s.engine.TrendingWorks(r.Context(), days, limit)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("trending works failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal", "trending lookup failed")
		return
	}
	s.writeData(w, r, http.StatusOK, works, start)
}

func (s *Server) handleTrendingSubjects(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	days, err := parseIntParam(q.Get("days"), 0)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "days must be an integer")
		return
	}
	limit, err := parseIntParam(q.Get("limit"), 10)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "limit must be an integer")
		return
	}

	subjects, err := s.engine.TrendingSubjects(r.Context(), days, limit)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("trending subjects failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal", "trending lookup failed")
		return
	}
	s.writeData(w, r, http.StatusOK, subjects, start)
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := chi.URLParam(r, "userID")

	profile, err := s.engine.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidRequest) {
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("profile lookup failed")
		s.writeError(w, r, http.StatusInternalServerError, "internal", "profile lookup failed")
		return
	}
	s.writeData(w, r, http.StatusOK, profile, start)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.writeData(w, r, http.StatusOK, s.engine.Status(r.Context()), start)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, "unavailable", "store unreachable")
			return
		}
	}
	s.writeData(w, r, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

// writeData writes the standard success envelope.
func (s *Server) writeData(w http.ResponseWriter, r *http.Request, status int, data any, start time.Time) {
	resp := models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	}
	s.writeJSON(w, r, status, resp)
}

// writeError writes the standard error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message},
	}
	s.writeJSON(w, r, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("response encode failed")
	}
}

func parseIntParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
