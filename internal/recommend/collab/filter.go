// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package collab implements user-to-user collaborative filtering.
//
// Similar users are found by comparing interaction histories: two users
// are similar when they interacted with overlapping works and mostly agree
// on whether they liked them. Recommendations aggregate the liked works of
// similar users, weighted by similarity and supporter count.
package collab

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

const (
	// maxInteractionsPerUser bounds how much of each user's history the
	// similarity computation considers.
	maxInteractionsPerUser = 500

	// minSimilarity is the floor below which a candidate user is discarded.
	minSimilarity = 0.1

	// confidenceDivisor scales supporter counts into [0, 1] confidence.
	confidenceDivisor = 5.0

	agreementWeight = 0.7
	overlapWeight   = 0.3
)

// Store is the data access needed for collaborative filtering.
type Store interface {
	// GetUserInteractions returns the user's most recent interactions,
	// newest first, up to limit.
	GetUserInteractions(ctx context.Context, userID string, limit int) ([]models.UserInteraction, error)

	// GetUsersForWorks returns the ids of users who interacted with any of
	// the given works, excluding excludeUserID.
	GetUsersForWorks(ctx context.Context, workIDs []string, excludeUserID string) ([]string, error)
}

// Config tunes the similar-user search.
type Config struct {
	// MinCommonInteractions is both the minimum history size for the target
	// user and the minimum overlap required with a candidate user.
	MinCommonInteractions int

	// MaxSimilarUsers caps the neighborhood size.
	MaxSimilarUsers int
}

// DefaultConfig returns the standard collaborative filter tuning.
func DefaultConfig() Config {
	return Config{
		MinCommonInteractions: 3,
		MaxSimilarUsers:       20,
	}
}

// SimilarUser is a neighbor with its similarity to the target user.
type SimilarUser struct {
	UserID      string  `json:"userId"`
	Similarity  float64 `json:"similarity"`
	CommonWorks int     `json:"commonWorks"`
}

// Recommendation is a work endorsed by the target's neighborhood.
type Recommendation struct {
	WorkID          string  `json:"workId"`
	Score           float64 `json:"score"`
	SupportingUsers int     `json:"supportingUsers"`
	Confidence      float64 `json:"confidence"`
}

// Filter finds similar users and aggregates their liked works.
type Filter struct {
	store Store
	cfg   Config
	log   zerolog.Logger
}

// NewFilter creates a collaborative filter backed by the given store.
func NewFilter(store Store, cfg Config, log zerolog.Logger) *Filter {
	if cfg.MinCommonInteractions <= 0 {
		cfg.MinCommonInteractions = DefaultConfig().MinCommonInteractions
	}
	if cfg.MaxSimilarUsers <= 0 {
		cfg.MaxSimilarUsers = DefaultConfig().MaxSimilarUsers
	}
	return &Filter{
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "collab_filter").Logger(),
	}
}

// FindSimilarUsers returns up to MaxSimilarUsers neighbors ordered by
// similarity descending. A target with fewer than MinCommonInteractions
// total interactions has no neighborhood.
func (f *Filter) FindSimilarUsers(ctx context.Context, userID string) ([]SimilarUser, error) {
	target, err := f.store.GetUserInteractions(ctx, userID, maxInteractionsPerUser)
	if err != nil {
		return nil, err
	}
	if len(target) < f.cfg.MinCommonInteractions {
		return []SimilarUser{}, nil
	}

	targetLikes := likeMap(target)
	targetWorkIDs := make([]string, 0, len(targetLikes))
	for workID := range targetLikes {
		targetWorkIDs = append(targetWorkIDs, workID)
	}

	candidates, err := f.store.GetUsersForWorks(ctx, targetWorkIDs, userID)
	if err != nil {
		return nil, err
	}

	similar := make([]SimilarUser, 0, len(candidates))
	for _, candidateID := range candidates {
		other, err := f.store.GetUserInteractions(ctx, candidateID, maxInteractionsPerUser)
		if err != nil {
			f.log.Warn().Err(err).Str("user_id", candidateID).Msg("skipping candidate, history unavailable")
			continue
		}

		sim, common := similarity(targetLikes, likeMap(other))
		if sim >= minSimilarity && common >= f.cfg.MinCommonInteractions {
			similar = append(similar, SimilarUser{
				UserID:      candidateID,
				Similarity:  sim,
				CommonWorks: common,
			})
		}
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Similarity > similar[j].Similarity
	})
	if len(similar) > f.cfg.MaxSimilarUsers {
		similar = similar[:f.cfg.MaxSimilarUsers]
	}
	return similar, nil
}

// Recommendations aggregates liked works across the target's neighborhood,
// excluding the target's own interacted works and excludeIDs, ranked by
// score times confidence.
func (f *Filter) Recommendations(ctx context.Context, userID string, excludeIDs map[string]struct{}, limit int) ([]Recommendation, error) {
	similar, err := f.FindSimilarUsers(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(similar) == 0 {
		return []Recommendation{}, nil
	}

	own, err := f.store.GetUserInteractions(ctx, userID, maxInteractionsPerUser)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(own))
	for _, in := range own {
		seen[in.WorkID] = struct{}{}
	}

	type tally struct {
		similaritySum float64
		supporters    int
	}
	tallies := make(map[string]*tally)

	for _, su := range similar {
		interactions, err := f.store.GetUserInteractions(ctx, su.UserID, maxInteractionsPerUser)
		if err != nil {
			f.log.Warn().Err(err).Str("user_id", su.UserID).Msg("skipping neighbor, history unavailable")
			continue
		}
		counted := make(map[string]struct{})
		for _, in := range interactions {
			if !in.Liked {
				continue
			}
			if _, own := seen[in.WorkID]; own {
				continue
			}
			if _, excluded := excludeIDs[in.WorkID]; excluded {
				continue
			}
			if _, dup := counted[in.WorkID]; dup {
				continue
			}
			counted[in.WorkID] = struct{}{}

			t := tallies[in.WorkID]
			if t == nil {
				t = &tally{}
				tallies[in.WorkID] = t
			}
			t.similaritySum += su.Similarity
			t.supporters++
		}
	}

	recs := make([]Recommendation, 0, len(tallies))
	neighborhood := float64(len(similar))
	for workID, t := range tallies {
		confidence := float64(t.supporters) / confidenceDivisor
		if confidence > 1 {
			confidence = 1
		}
		recs = append(recs, Recommendation{
			WorkID:          workID,
			Score:           t.similaritySum / neighborhood,
			SupportingUsers: t.supporters,
			Confidence:      confidence,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score*recs[i].Confidence > recs[j].Score*recs[j].Confidence
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// likeMap collapses an interaction history into workId -> latest liked
// status. Histories arrive newest first, so the first sighting wins.
func likeMap(interactions []models.UserInteraction) map[string]bool {
	m := make(map[string]bool, len(interactions))
	for _, in := range interactions {
		if _, ok := m[in.WorkID]; !ok {
			m[in.WorkID] = in.Liked
		}
	}
	return m
}

// similarity scores two users' like maps: 0.7 weight on how often they
// agree about common works, 0.3 on the Jaccard overlap of their histories.
func similarity(a, b map[string]bool) (float64, int) {
	agreements, disagreements := 0, 0
	for workID, likedA := range a {
		likedB, ok := b[workID]
		if !ok {
			continue
		}
		if likedA == likedB {
			agreements++
		} else {
			disagreements++
		}
	}

	common := agreements + disagreements
	if common == 0 {
		return 0, 0
	}

	union := len(a) + len(b) - common
	agreementRatio := float64(agreements) / float64(common)
	jaccard := float64(common) / float64(union)

	return agreementWeight*agreementRatio + overlapWeight*jaccard, common
}
