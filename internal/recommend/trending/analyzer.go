// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package trending scores works and subjects by interaction velocity,
// recency, and seasonal fit.
//
// The seasonal pattern table is rebuilt periodically from a year of liked
// interactions and read concurrently by scoring calls; rebuilds swap the
// table atomically under a write lock.
package trending

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// Season is a quarter of the year used for seasonal subject affinity.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

// SeasonForMonth maps a calendar month to its season.
func SeasonForMonth(m time.Month) Season {
	switch m {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonFall
	default:
		return SeasonWinter
	}
}

const (
	// minTrendingInteractions is the qualification floor for a work to
	// appear in trending results.
	minTrendingInteractions = 3

	// defaultLookbackDays is the trending window when the caller passes 0.
	defaultLookbackDays = 30

	// seasonalPatternWindow is how far back seasonal tables look.
	seasonalPatternWindow = 365 * 24 * time.Hour

	// maxSeasonalBonus caps the seasonal contribution to a trend score.
	maxSeasonalBonus = 0.15
)

// Store is the data access needed for trend analysis.
type Store interface {
	// GetInteractionsSince returns all interactions created at or after
	// since, in any order.
	GetInteractionsSince(ctx context.Context, since time.Time) ([]models.UserInteraction, error)

	// GetWorksByIDs fetches the works for the given ids. Missing ids are
	// silently absent from the result.
	GetWorksByIDs(ctx context.Context, ids []string) ([]models.Work, error)
}

// TrendingWork is a work with its composite trend score.
type TrendingWork struct {
	WorkID       string  `json:"workId"`
	Score        float64 `json:"score"`
	Interactions int     `json:"interactions"`
	LikeRatio    float64 `json:"likeRatio"`
}

// TrendingSubject is a subject with its share of liked interactions.
type TrendingSubject struct {
	Subject string  `json:"subject"`
	Share   float64 `json:"share"`
	Count   int     `json:"count"`
}

// Analyzer computes trending works and subjects.
type Analyzer struct {
	store Store
	log   zerolog.Logger

	mu       sync.RWMutex
	seasonal map[Season]map[string]float64
}

// NewAnalyzer creates a trend analyzer. The seasonal table starts empty;
// call BuildSeasonalPatterns before relying on seasonal bonuses.
func NewAnalyzer(store Store, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		store:    store,
		log:      log.With().Str("component", "trend_analyzer").Logger(),
		seasonal: make(map[Season]map[string]float64),
	}
}

// BuildSeasonalPatterns rebuilds the per-season subject frequency table
// from the last year of liked interactions.
func (a *Analyzer) BuildSeasonalPatterns(ctx context.Context) error {
	since := time.Now().Add(-seasonalPatternWindow)
	interactions, err := a.store.GetInteractionsSince(ctx, since)
	if err != nil {
		return err
	}

	liked := make([]models.UserInteraction, 0, len(interactions))
	workIDs := make(map[string]struct{})
	for _, in := range interactions {
		if in.Liked {
			liked = append(liked, in)
			workIDs[in.WorkID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(workIDs))
	for id := range workIDs {
		ids = append(ids, id)
	}
	works, err := a.store.GetWorksByIDs(ctx, ids)
	if err != nil {
		return err
	}
	subjectsByWork := make(map[string][]string, len(works))
	for i := range works {
		subjectsByWork[works[i].ID] = works[i].Subjects
	}

	seasonCounts := make(map[Season]int)
	seasonSubjectCounts := make(map[Season]map[string]int)
	for _, in := range liked {
		season := SeasonForMonth(in.CreatedAt.Month())
		seasonCounts[season]++
		for _, subject := range subjectsByWork[in.WorkID] {
			key := strings.ToLower(subject)
			if seasonSubjectCounts[season] == nil {
				seasonSubjectCounts[season] = make(map[string]int)
			}
			seasonSubjectCounts[season][key]++
		}
	}

	table := make(map[Season]map[string]float64, len(seasonCounts))
	for season, total := range seasonCounts {
		freqs := make(map[string]float64, len(seasonSubjectCounts[season]))
		for subject, count := range seasonSubjectCounts[season] {
			freqs[subject] = float64(count) / float64(total)
		}
		table[season] = freqs
	}

	a.mu.Lock()
	a.seasonal = table
	a.mu.Unlock()

	a.log.Debug().
		Int("liked_interactions", len(liked)).
		Int("seasons", len(table)).
		Msg("seasonal patterns rebuilt")
	return nil
}

// SeasonalBonus averages the current seasonal frequency of a work's
// subjects, capped at 0.15. Unknown subjects contribute 0.
func (a *Analyzer) SeasonalBonus(work *models.Work, season Season) float64 {
	if len(work.Subjects) == 0 {
		return 0
	}

	a.mu.RLock()
	freqs := a.seasonal[season]
	a.mu.RUnlock()
	if freqs == nil {
		return 0
	}

	var total float64
	for _, subject := range work.Subjects {
		total += freqs[strings.ToLower(subject)]
	}
	bonus := total / float64(len(work.Subjects))
	if bonus > maxSeasonalBonus {
		return maxSeasonalBonus
	}
	return bonus
}

// TrendingWorks ranks works by composite trend score over the lookback
// window. Works with fewer than three interactions in the window never
// qualify.
func (a *Analyzer) TrendingWorks(ctx context.Context, days, limit int) ([]TrendingWork, error) {
	if days <= 0 {
		days = defaultLookbackDays
	}
	now := time.Now()
	interactions, err := a.store.GetInteractionsSince(ctx, now.Add(-time.Duration(days)*24*time.Hour))
	if err != nil {
		return nil, err
	}

	byWork := make(map[string][]models.UserInteraction)
	for _, in := range interactions {
		byWork[in.WorkID] = append(byWork[in.WorkID], in)
	}

	qualifyingIDs := make([]string, 0, len(byWork))
	for workID, ins := range byWork {
		if len(ins) >= minTrendingInteractions {
			qualifyingIDs = append(qualifyingIDs, workID)
		}
	}
	works, err := a.store.GetWorksByIDs(ctx, qualifyingIDs)
	if err != nil {
		return nil, err
	}
	workByID := make(map[string]*models.Work, len(works))
	for i := range works {
		workByID[works[i].ID] = &works[i]
	}

	season := SeasonForMonth(now.Month())
	trending := make([]TrendingWork, 0, len(qualifyingIDs))
	for _, workID := range qualifyingIDs {
		ins := byWork[workID]
		score := trendScore(ins) + velocityScore(ins, days) + recencyBonus(ins, now)
		if w := workByID[workID]; w != nil {
			score += a.SeasonalBonus(w, season)
		}
		trending = append(trending, TrendingWork{
			WorkID:       workID,
			Score:        score,
			Interactions: len(ins),
			LikeRatio:    likeRatio(ins),
		})
	}

	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].Score > trending[j].Score
	})
	if limit > 0 && len(trending) > limit {
		trending = trending[:limit]
	}
	return trending, nil
}

// TrendingSubjects ranks subjects by their share of liked interactions
// within the lookback window.
func (a *Analyzer) TrendingSubjects(ctx context.Context, days, limit int) ([]TrendingSubject, error) {
	if days <= 0 {
		days = defaultLookbackDays
	}
	interactions, err := a.store.GetInteractionsSince(ctx, time.Now().Add(-time.Duration(days)*24*time.Hour))
	if err != nil {
		return nil, err
	}

	workIDs := make(map[string]struct{})
	totalLiked := 0
	for _, in := range interactions {
		if in.Liked {
			totalLiked++
			workIDs[in.WorkID] = struct{}{}
		}
	}
	if totalLiked == 0 {
		return []TrendingSubject{}, nil
	}

	ids := make([]string, 0, len(workIDs))
	for id := range workIDs {
		ids = append(ids, id)
	}
	works, err := a.store.GetWorksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	subjectsByWork := make(map[string][]string, len(works))
	for i := range works {
		subjectsByWork[works[i].ID] = works[i].Subjects
	}

	counts := make(map[string]int)
	for _, in := range interactions {
		if !in.Liked {
			continue
		}
		for _, subject := range subjectsByWork[in.WorkID] {
			counts[strings.ToLower(subject)]++
		}
	}

	subjects := make([]TrendingSubject, 0, len(counts))
	for subject, count := range counts {
		subjects = append(subjects, TrendingSubject{
			Subject: subject,
			Share:   float64(count) / float64(totalLiked),
			Count:   count,
		})
	}

	sort.SliceStable(subjects, func(i, j int) bool {
		if subjects[i].Share != subjects[j].Share {
			return subjects[i].Share > subjects[j].Share
		}
		return subjects[i].Subject < subjects[j].Subject
	})
	if limit > 0 && len(subjects) > limit {
		subjects = subjects[:limit]
	}
	return subjects, nil
}

// trendScore blends like ratio with log-scaled volume.
func trendScore(interactions []models.UserInteraction) float64 {
	if len(interactions) == 0 {
		return 0
	}
	return 0.7*likeRatio(interactions) + 0.3*math.Log(float64(len(interactions))+1)/10
}

// velocityScore normalizes interactions per day against a 5/day ceiling.
func velocityScore(interactions []models.UserInteraction, days int) float64 {
	if days <= 0 {
		return 0
	}
	perDay := float64(len(interactions)) / float64(days)
	v := perDay / 5
	if v > 1 {
		return 1
	}
	return v
}

// recencyBonus averages a linear 30-day decay over the interactions.
func recencyBonus(interactions []models.UserInteraction, now time.Time) float64 {
	if len(interactions) == 0 {
		return 0
	}
	var total float64
	for _, in := range interactions {
		daysSince := now.Sub(in.CreatedAt).Hours() / 24
		decay := 1 - daysSince/30
		if decay > 0 {
			total += decay
		}
	}
	return total / float64(len(interactions))
}

func likeRatio(interactions []models.UserInteraction) float64 {
	if len(interactions) == 0 {
		return 0
	}
	liked := 0
	for _, in := range interactions {
		if in.Liked {
			liked++
		}
	}
	return float64(liked) / float64(len(interactions))
}
