// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package recommend

import (
	"context"
	"time"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// Store is the full data access surface the engine needs. A single
// implementation (the DuckDB store) satisfies it along with the narrower
// per-component interfaces.
type Store interface {
	// GetWork fetches a single work, or nil when it does not exist.
	GetWork(ctx context.Context, workID string) (*models.Work, error)

	// GetWorks fetches up to limit works in recency order, skipping
	// excludeIDs.
	GetWorks(ctx context.Context, excludeIDs []string, limit int) ([]models.Work, error)

	// GetWorksByIDs fetches the works for the given ids. Missing ids are
	// silently absent from the result.
	GetWorksByIDs(ctx context.Context, ids []string) ([]models.Work, error)

	// CountWorks returns the catalog size.
	CountWorks(ctx context.Context) (int, error)

	// GetUserInteractions returns the user's most recent interactions,
	// newest first, up to limit.
	GetUserInteractions(ctx context.Context, userID string, limit int) ([]models.UserInteraction, error)

	// GetUsersForWorks returns the ids of users who interacted with any of
	// the given works, excluding excludeUserID.
	GetUsersForWorks(ctx context.Context, workIDs []string, excludeUserID string) ([]string, error)

	// GetInteractionsSince returns all interactions created at or after
	// since.
	GetInteractionsSince(ctx context.Context, since time.Time) ([]models.UserInteraction, error)

	// AppendInteraction appends one interaction to the log. Never
	// idempotent: repeated calls create distinct entries.
	AppendInteraction(ctx context.Context, in models.UserInteraction) error
}

// Publisher emits interaction events for downstream consumers.
type Publisher interface {
	PublishInteraction(in models.UserInteraction) error
}

// Request asks for recommendations. An empty UserID requests the
// anonymous popular list.
type Request struct {
	UserID     string
	Limit      int
	ExcludeIDs []string
}

// Response carries an ordered recommendation list plus context about how
// it was produced.
type Response struct {
	Recommendations []models.RecommendationScore `json:"recommendations"`
	UserProfile     *models.UserProfile          `json:"userProfile,omitempty"`
	TotalAvailable  int                          `json:"totalAvailable"`
	Cached          bool                         `json:"cached"`
}
