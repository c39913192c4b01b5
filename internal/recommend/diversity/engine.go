// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package diversity re-ranks recommendation lists for variety and injects
// high-novelty serendipity picks.
//
// All functions here are pure: they take ranked scores plus work metadata
// and return adjusted copies, never touching a data store.
package diversity

import (
	"math"
	"sort"
	"strings"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

const (
	subjectNoveltyWeight  = 0.5
	authorNoveltyWeight   = 0.3
	temporalNoveltyWeight = 0.2

	// diversityBonusWeight scales the marginal-diversity bonus added to a
	// candidate's final score during re-ranking.
	diversityBonusWeight = 0.3

	// serendipityNoveltyFloor is the minimum novelty for a serendipity pick.
	serendipityNoveltyFloor = 0.7
)

// Engine computes novelty and diversity adjustments.
type Engine struct{}

// NewEngine creates a diversity engine.
func NewEngine() *Engine {
	return &Engine{}
}

// NoveltyScore measures how far a work sits outside a user's known
// preferences, in [0, 1].
func (e *Engine) NoveltyScore(work *models.Work, profile *models.UserProfile) float64 {
	return subjectNoveltyWeight*subjectNovelty(work, profile) +
		authorNoveltyWeight*authorNovelty(work, profile) +
		temporalNoveltyWeight*temporalNovelty(work, profile)
}

// subjectNovelty is the fraction of the work's subjects the user has never
// shown a preference for. A work with no subjects scores 0.
func subjectNovelty(work *models.Work, profile *models.UserProfile) float64 {
	if len(work.Subjects) == 0 {
		return 0
	}
	unknown := 0
	for _, subject := range work.Subjects {
		if _, known := profile.SubjectPreferences[strings.ToLower(subject)]; !known {
			unknown++
		}
	}
	return float64(unknown) / float64(len(work.Subjects))
}

// authorNovelty is the fraction of the work's authors the user has not
// disliked. A work with no authors scores 1.
func authorNovelty(work *models.Work, profile *models.UserProfile) float64 {
	if len(work.Authors) == 0 {
		return 1
	}
	fresh := 0
	for _, ref := range work.Authors {
		if _, disliked := profile.DislikedAuthors[strings.ToLower(ref.AuthorID)]; !disliked {
			fresh++
		}
	}
	return float64(fresh) / float64(len(work.Authors))
}

// temporalNovelty is 1 when the work's era differs from the user's
// preferred era, 0 when they match, and 0.5 when either is unknown.
func temporalNovelty(work *models.Work, profile *models.UserProfile) float64 {
	era := work.Era()
	if era == models.EraUnknown || profile.PreferredPublishEra == models.EraUnknown {
		return 0.5
	}
	if era == profile.PreferredPublishEra {
		return 0
	}
	return 1
}

// Diversify re-ranks a scored list to reward variety. The top item is kept
// in place unconditionally; every later item gains a bonus proportional to
// the subjects, authors, era, and languages it adds over the items ranked
// above it, then the tail is re-sorted by adjusted score.
func (e *Engine) Diversify(recs []models.RecommendationScore, works map[string]models.Work) []models.RecommendationScore {
	if len(recs) <= 1 {
		return recs
	}

	out := make([]models.RecommendationScore, len(recs))
	copy(out, recs)

	seenSubjects := make(map[string]struct{})
	seenAuthors := make(map[string]struct{})
	seenEras := make(map[models.PublishEra]struct{})
	seenLanguages := make(map[string]struct{})

	absorb := func(w *models.Work) {
		for _, s := range w.Subjects {
			seenSubjects[strings.ToLower(s)] = struct{}{}
		}
		for _, ref := range w.Authors {
			seenAuthors[strings.ToLower(ref.AuthorID)] = struct{}{}
		}
		if era := w.Era(); era != models.EraUnknown {
			seenEras[era] = struct{}{}
		}
		for _, l := range w.OriginalLanguages {
			seenLanguages[strings.ToLower(l)] = struct{}{}
		}
	}

	if w, ok := works[out[0].WorkID]; ok {
		absorb(&w)
	}

	for i := 1; i < len(out); i++ {
		w, ok := works[out[i].WorkID]
		if !ok {
			continue
		}
		bonus := 0.4*freshFraction(w.Subjects, seenSubjects) +
			0.3*freshAuthorFraction(w.Authors, seenAuthors) +
			0.2*freshEra(&w, seenEras) +
			0.1*freshFraction(w.OriginalLanguages, seenLanguages)
		out[i].FinalScore += bonus * diversityBonusWeight
		absorb(&w)
	}

	tail := out[1:]
	sort.SliceStable(tail, func(i, j int) bool {
		return tail[i].FinalScore > tail[j].FinalScore
	})
	return out
}

func freshFraction(values []string, seen map[string]struct{}) float64 {
	if len(values) == 0 {
		return 0
	}
	fresh := 0
	for _, v := range values {
		if _, ok := seen[strings.ToLower(v)]; !ok {
			fresh++
		}
	}
	return float64(fresh) / float64(len(values))
}

func freshAuthorFraction(refs []models.AuthorRef, seen map[string]struct{}) float64 {
	if len(refs) == 0 {
		return 0
	}
	fresh := 0
	for _, ref := range refs {
		if _, ok := seen[strings.ToLower(ref.AuthorID)]; !ok {
			fresh++
		}
	}
	return float64(fresh) / float64(len(refs))
}

func freshEra(w *models.Work, seen map[models.PublishEra]struct{}) float64 {
	era := w.Era()
	if era == models.EraUnknown {
		return 0
	}
	if _, ok := seen[era]; ok {
		return 0
	}
	return 1
}

// Report summarizes the spread of a recommendation set.
type Report struct {
	SubjectDiversity  float64 `json:"subjectDiversity"`
	AuthorDiversity   float64 `json:"authorDiversity"`
	TemporalDiversity float64 `json:"temporalDiversity"`
	LanguageDiversity float64 `json:"languageDiversity"`
	OverallDiversity  float64 `json:"overallDiversity"`
}

// AnalyzeDiversity measures unique-to-total ratios across a set of works.
func (e *Engine) AnalyzeDiversity(works []models.Work) Report {
	uniqueSubjects := make(map[string]struct{})
	uniqueAuthors := make(map[string]struct{})
	uniqueEras := make(map[models.PublishEra]struct{})
	uniqueLanguages := make(map[string]struct{})
	totalSubjects, totalAuthors, totalLanguages, worksWithDate := 0, 0, 0, 0

	for i := range works {
		w := &works[i]
		for _, s := range w.Subjects {
			uniqueSubjects[strings.ToLower(s)] = struct{}{}
			totalSubjects++
		}
		for _, ref := range w.Authors {
			uniqueAuthors[strings.ToLower(ref.AuthorID)] = struct{}{}
			totalAuthors++
		}
		for _, l := range w.OriginalLanguages {
			uniqueLanguages[strings.ToLower(l)] = struct{}{}
			totalLanguages++
		}
		if era := w.Era(); era != models.EraUnknown {
			uniqueEras[era] = struct{}{}
			worksWithDate++
		}
	}

	var r Report
	if totalSubjects > 0 {
		r.SubjectDiversity = float64(len(uniqueSubjects)) / float64(totalSubjects)
	}
	if totalAuthors > 0 {
		r.AuthorDiversity = float64(len(uniqueAuthors)) / float64(totalAuthors)
	}
	if worksWithDate > 0 {
		denom := worksWithDate
		if denom > 5 {
			denom = 5
		}
		r.TemporalDiversity = float64(len(uniqueEras)) / float64(denom)
		if r.TemporalDiversity > 1 {
			r.TemporalDiversity = 1
		}
	}
	if totalLanguages > 0 {
		r.LanguageDiversity = float64(len(uniqueLanguages)) / float64(totalLanguages)
	}
	r.OverallDiversity = 0.4*r.SubjectDiversity + 0.3*r.AuthorDiversity +
		0.2*r.TemporalDiversity + 0.1*r.LanguageDiversity
	return r
}

// InjectSerendipity replaces the lowest-ranked slots of a recommendation
// list with high-novelty picks from the candidate pool. The number of
// slots is ceil(rate * len(recs)); only candidates with novelty above 0.7
// that are not already recommended qualify.
func (e *Engine) InjectSerendipity(recs []models.RecommendationScore, candidates []models.Work, profile *models.UserProfile, rate float64) []models.RecommendationScore {
	if len(recs) == 0 || rate <= 0 {
		return recs
	}

	slots := int(math.Ceil(rate * float64(len(recs))))
	if slots > len(recs) {
		slots = len(recs)
	}

	present := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		present[r.WorkID] = struct{}{}
	}

	type pick struct {
		workID  string
		novelty float64
	}
	picks := make([]pick, 0, len(candidates))
	for i := range candidates {
		if _, dup := present[candidates[i].ID]; dup {
			continue
		}
		novelty := e.NoveltyScore(&candidates[i], profile)
		if novelty > serendipityNoveltyFloor {
			picks = append(picks, pick{workID: candidates[i].ID, novelty: novelty})
		}
	}
	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].novelty > picks[j].novelty
	})
	if len(picks) > slots {
		picks = picks[:slots]
	}

	out := make([]models.RecommendationScore, len(recs))
	copy(out, recs)
	for i, p := range picks {
		noveltyBonus := p.novelty * 0.2
		out[len(out)-1-i] = models.RecommendationScore{
			WorkID:             p.workID,
			ContentScore:       0.2,
			CollaborativeScore: 0.1,
			NoveltyBonus:       noveltyBonus,
			NegativeMultiplier: 1.0,
			FinalScore:         0.3 + noveltyBonus,
			Reasons:            []string{"Serendipitous discovery", "Explores new territory"},
		}
	}
	return out
}
