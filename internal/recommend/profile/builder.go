// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package profile derives per-user preference profiles from the append-only
// interaction log.
//
// A profile is a cacheable view: Build reconstructs it fully from the log,
// Update applies a single interaction incrementally to a cached copy. Both
// are pure with respect to their inputs; Update returns a new profile and
// never mutates the one passed in.
package profile

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// maxBuildInteractions bounds how much history a full rebuild considers.
const maxBuildInteractions = 1000

// updateStep is the per-interaction weight increment applied by Update.
const updateStep = 0.1

// Store is the data access needed to build profiles.
type Store interface {
	// GetUserInteractions returns the user's most recent interactions,
	// newest first, up to limit.
	GetUserInteractions(ctx context.Context, userID string, limit int) ([]models.UserInteraction, error)

	// GetWorksByIDs fetches the works for the given ids. Missing ids are
	// silently absent from the result.
	GetWorksByIDs(ctx context.Context, ids []string) ([]models.Work, error)

	// GetWork fetches a single work, or nil when it does not exist.
	GetWork(ctx context.Context, workID string) (*models.Work, error)
}

// Builder constructs and incrementally updates user profiles.
type Builder struct {
	store Store
	log   zerolog.Logger
}

// NewBuilder creates a profile builder backed by the given store.
func NewBuilder(store Store, log zerolog.Logger) *Builder {
	return &Builder{
		store: store,
		log:   log.With().Str("component", "profile_builder").Logger(),
	}
}

// Build reconstructs a user's profile from their interaction history.
// Considers at most the 1,000 most recent interactions. A user with no
// history gets an empty profile, not an error.
func (b *Builder) Build(ctx context.Context, userID string) (*models.UserProfile, error) {
	interactions, err := b.store.GetUserInteractions(ctx, userID, maxBuildInteractions)
	if err != nil {
		return nil, err
	}

	p := models.NewUserProfile(userID)
	if len(interactions) == 0 {
		return p, nil
	}

	likedIDs := make([]string, 0, len(interactions))
	dislikedIDs := make([]string, 0)
	for _, in := range interactions {
		if in.Liked {
			likedIDs = append(likedIDs, in.WorkID)
		} else {
			dislikedIDs = append(dislikedIDs, in.WorkID)
		}
		if in.CreatedAt.After(p.LastInteractionAt) {
			p.LastInteractionAt = in.CreatedAt
		}
	}
	p.TotalLikes = len(likedIDs)
	p.TotalDislikes = len(dislikedIDs)

	likedWorks, err := b.store.GetWorksByIDs(ctx, likedIDs)
	if err != nil {
		return nil, err
	}
	dislikedWorks, err := b.store.GetWorksByIDs(ctx, dislikedIDs)
	if err != nil {
		return nil, err
	}

	if len(likedWorks) > 0 {
		n := float64(len(likedWorks))
		p.SubjectPreferences = frequencyWeights(likedWorks, n, func(w *models.Work) []string { return w.Subjects })
		p.PlacePreferences = frequencyWeights(likedWorks, n, func(w *models.Work) []string { return w.SubjectPlaces })
		p.TimePreferences = frequencyWeights(likedWorks, n, func(w *models.Work) []string { return w.SubjectTimes })
		p.PeoplePreferences = frequencyWeights(likedWorks, n, func(w *models.Work) []string { return w.SubjectPeople })
		p.LanguagePreferences = frequencyWeights(likedWorks, n, func(w *models.Work) []string { return w.OriginalLanguages })
		p.PreferredPublishEra = medianEra(likedWorks)
	}

	if len(dislikedWorks) > 0 {
		n := float64(len(dislikedWorks))
		p.DislikedSubjects = frequencyWeights(dislikedWorks, n, func(w *models.Work) []string { return w.Subjects })
		p.DislikedPlaces = frequencyWeights(dislikedWorks, n, func(w *models.Work) []string { return w.SubjectPlaces })
		p.DislikedAuthors = frequencyWeights(dislikedWorks, n, func(w *models.Work) []string { return w.AuthorIDs() })
	}

	b.log.Debug().
		Str("user_id", userID).
		Int("interactions", len(interactions)).
		Int("liked_works", len(likedWorks)).
		Msg("profile rebuilt")

	return p, nil
}

// Update applies one new interaction to a cached profile and returns the
// updated copy. The input profile is never mutated. A missing work is a
// no-op returning the original profile.
func (b *Builder) Update(ctx context.Context, p *models.UserProfile, workID string, liked bool) (*models.UserProfile, error) {
	work, err := b.store.GetWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if work == nil {
		b.log.Warn().Str("work_id", workID).Msg("profile update skipped, work not found")
		return p, nil
	}

	next := p.Clone()
	if liked {
		increment(next.SubjectPreferences, work.Subjects)
		increment(next.PlacePreferences, work.SubjectPlaces)
		increment(next.TimePreferences, work.SubjectTimes)
		increment(next.PeoplePreferences, work.SubjectPeople)
		increment(next.LanguagePreferences, work.OriginalLanguages)
		next.TotalLikes++
	} else {
		incrementCapped(next.DislikedSubjects, work.Subjects)
		incrementCapped(next.DislikedPlaces, work.SubjectPlaces)
		incrementCapped(next.DislikedAuthors, work.AuthorIDs())
		next.TotalDislikes++
	}
	next.LastInteractionAt = time.Now().UTC()

	// Positive maps renormalize by their max; negative maps are capped at
	// increment time. Either way every weight stays within [0, 1].
	renormalize(next.SubjectPreferences)
	renormalize(next.PlacePreferences)
	renormalize(next.TimePreferences)
	renormalize(next.PeoplePreferences)
	renormalize(next.LanguagePreferences)

	return next, nil
}

// frequencyWeights maps each value (lowercased) to the fraction of works
// carrying it.
func frequencyWeights(works []models.Work, total float64, field func(*models.Work) []string) map[string]float64 {
	counts := make(map[string]int)
	for i := range works {
		seen := make(map[string]struct{})
		for _, v := range field(&works[i]) {
			key := strings.ToLower(v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			counts[key]++
		}
	}

	weights := make(map[string]float64, len(counts))
	for key, count := range counts {
		weights[key] = float64(count) / total
	}
	return weights
}

// increment bumps each value's weight by the fixed step. Renormalization
// afterwards keeps positive maps within [0, 1].
func increment(m map[string]float64, values []string) {
	for _, v := range values {
		m[strings.ToLower(v)] += updateStep
	}
}

// incrementCapped bumps each value's weight by the fixed step, capped at 1.
// Negative maps are never renormalized, so the cap holds the invariant.
func incrementCapped(m map[string]float64, values []string) {
	for _, v := range values {
		key := strings.ToLower(v)
		next := m[key] + updateStep
		if next > 1 {
			next = 1
		}
		m[key] = next
	}
}

// renormalize divides every entry by the map's max when that max exceeds 1.
func renormalize(m map[string]float64) {
	var max float64
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	if max <= 1 {
		return
	}
	for k, v := range m {
		m[k] = v / max
	}
}

// medianEra buckets the median parsable first-publish year among liked
// works. Returns EraUnknown when no liked work has a parsable year.
func medianEra(likedWorks []models.Work) models.PublishEra {
	years := make([]int, 0, len(likedWorks))
	for i := range likedWorks {
		if y, ok := likedWorks[i].PublishYear(); ok {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return models.EraUnknown
	}

	sort.Ints(years)
	mid := len(years) / 2
	median := years[mid]
	if len(years)%2 == 0 {
		median = (years[mid-1] + years[mid]) / 2
	}
	return models.EraForYear(median)
}
