// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package models

// RecommendationScore is the per-candidate result of a scoring pass.
// Scores are created per request and never persisted.
type RecommendationScore struct {
	// WorkID is the opaque identifier of the scored work.
	WorkID string `json:"work_id"`

	// ContentScore is the content-based affinity in [0, 1].
	ContentScore float64 `json:"content_score"`

	// CollaborativeScore is the collaborative-filtering affinity in [0, 1].
	CollaborativeScore float64 `json:"collaborative_score"`

	// NoveltyBonus rewards works that introduce new subjects or authors.
	NoveltyBonus float64 `json:"novelty_bonus"`

	// NegativeMultiplier dampens works matching disliked subjects, places
	// or authors. Always in [0.1^3, 1].
	NegativeMultiplier float64 `json:"negative_multiplier"`

	// FinalScore is the combined ranking score.
	FinalScore float64 `json:"final_score"`

	// Reasons provides interpretable explanations for the recommendation.
	Reasons []string `json:"reasons"`
}
