// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package recommend

import "time"

// Config tunes the recommendation engine. Immutable after construction;
// changing tuning means building a new engine.
type Config struct {
	// DefaultLimit is used when a request asks for zero recommendations.
	DefaultLimit int

	// MaxLimit caps how many recommendations one request may ask for.
	MaxLimit int

	// CandidateMultiplier sizes the scoring pool relative to the requested
	// limit.
	CandidateMultiplier int

	// ProfileCacheTTL is how long a derived profile stays cached.
	ProfileCacheTTL time.Duration

	// RecommendationCacheTTL is how long a finished list stays cached.
	RecommendationCacheTTL time.Duration

	// SerendipityRate is the fraction of slots given to high-novelty picks.
	SerendipityRate float64

	// MinCommonInteractions and MaxSimilarUsers tune the collaborative
	// filter neighborhood.
	MinCommonInteractions int
	MaxSimilarUsers       int

	// SimilarWorksPool is the candidate pool size for similar-work lookups.
	SimilarWorksPool int

	// CorpusRefreshLimit bounds how many works feed the text corpus and
	// document-frequency table on refresh.
	CorpusRefreshLimit int
}

// DefaultEngineConfig returns the standard engine tuning.
func DefaultEngineConfig() Config {
	return Config{
		DefaultLimit:           10,
		MaxLimit:               100,
		CandidateMultiplier:    3,
		ProfileCacheTTL:        time.Hour,
		RecommendationCacheTTL: 30 * time.Minute,
		SerendipityRate:        0.1,
		MinCommonInteractions:  3,
		MaxSimilarUsers:        20,
		SimilarWorksPool:       200,
		CorpusRefreshLimit:     5000,
	}
}

// withDefaults fills unset fields from the defaults.
func (c Config) withDefaults() Config {
	d := DefaultEngineConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = d.CandidateMultiplier
	}
	if c.ProfileCacheTTL <= 0 {
		c.ProfileCacheTTL = d.ProfileCacheTTL
	}
	if c.RecommendationCacheTTL <= 0 {
		c.RecommendationCacheTTL = d.RecommendationCacheTTL
	}
	if c.SerendipityRate <= 0 {
		c.SerendipityRate = d.SerendipityRate
	}
	if c.MinCommonInteractions <= 0 {
		c.MinCommonInteractions = d.MinCommonInteractions
	}
	if c.MaxSimilarUsers <= 0 {
		c.MaxSimilarUsers = d.MaxSimilarUsers
	}
	if c.SimilarWorksPool <= 0 {
		c.SimilarWorksPool = d.SimilarWorksPool
	}
	if c.CorpusRefreshLimit <= 0 {
		c.CorpusRefreshLimit = d.CorpusRefreshLimit
	}
	return c
}
