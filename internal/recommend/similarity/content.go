// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package similarity implements work-to-work similarity scoring.
//
// Two complementary scorers are provided:
//
//   - ContentScorer: weighted Jaccard similarity over the categorical
//     feature sets (subjects, places, times, people, languages, authors)
//     plus temporal proximity of publish years.
//   - TextScorer: TF-IDF cosine similarity over titles and descriptions,
//     with a corpus document-frequency table built ahead of batch scoring.
//
// Both scorers are pure and safe for concurrent use; the TextScorer's
// document-frequency table is guarded for concurrent rebuilds.
package similarity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// ContentWeights defines the relative contribution of each feature set to
// the combined content similarity. Weights are normalized to sum to 1.
type ContentWeights struct {
	Subjects  float64 `json:"subjects"`
	Places    float64 `json:"places"`
	Times     float64 `json:"times"`
	People    float64 `json:"people"`
	Languages float64 `json:"languages"`
	Temporal  float64 `json:"temporal"`
	Authors   float64 `json:"authors"`
}

// DefaultContentWeights returns the standard feature weighting.
func DefaultContentWeights() ContentWeights {
	return ContentWeights{
		Subjects:  0.40,
		Places:    0.15,
		Times:     0.15,
		People:    0.10,
		Languages: 0.10,
		Temporal:  0.05,
		Authors:   0.05,
	}
}

// Normalize returns a copy with weights scaled to sum to 1.0.
// All-zero weights fall back to the defaults.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w ContentWeights) Normalize() ContentWeights {
	sum := w.Subjects + w.Places + w.Times + w.People + w.Languages + w.Temporal + w.Authors
	if sum == 0 {
		return DefaultContentWeights()
	}
	return ContentWeights{
		Subjects:  w.Subjects / sum,
		Places:    w.Places / sum,
		Times:     w.Times / sum,
		People:    w.People / sum,
		Languages: w.Languages / sum,
		Temporal:  w.Temporal / sum,
		Authors:   w.Authors / sum,
	}
}

// Validate checks that no weight is negative.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w ContentWeights) Validate() error {
	for name, v := range map[string]float64{
		"subjects": w.Subjects, "places": w.Places, "times": w.Times,
		"people": w.People, "languages": w.Languages,
		"temporal": w.Temporal, "authors": w.Authors,
	} {
		if v < 0 {
			return fmt.Errorf("content weight %s is negative: %f", name, v)
		}
	}
	return nil
}

// ContentScorer computes feature-set similarity between works.
// Immutable after construction; safe for concurrent use.
type ContentScorer struct {
	weights ContentWeights
}

// NewContentScorer creates a content scorer with the given weights.
// Weights are normalized at construction.
func NewContentScorer(weights ContentWeights) (*ContentScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &ContentScorer{weights: weights.Normalize()}, nil
}

// Similarity computes the weighted content similarity of two works in [0, 1].
func (s *ContentScorer) Similarity(a, b *models.Work) float64 {
	w := s.weights

	sim := w.Subjects * Jaccard(a.Subjects, b.Subjects)
	sim += w.Places * Jaccard(a.SubjectPlaces, b.SubjectPlaces)
	sim += w.Times * Jaccard(a.SubjectTimes, b.SubjectTimes)
	sim += w.People * Jaccard(a.SubjectPeople, b.SubjectPeople)
	sim += w.Languages * Jaccard(a.OriginalLanguages, b.OriginalLanguages)
	sim += w.Temporal * TemporalSimilarity(a.FirstPublishDate, b.FirstPublishDate)
	sim += w.Authors * Jaccard(a.AuthorIDs(), b.AuthorIDs())

	return sim
}

// AverageUserSimilarity computes the mean similarity between a candidate
// and each of the user's liked works. Returns 0 when likedWorks is empty.
func (s *ContentScorer) AverageUserSimilarity(likedWorks []models.Work, candidate *models.Work) float64 {
	if len(likedWorks) == 0 {
		return 0
	}
	var total float64
	for i := range likedWorks {
		total += s.Similarity(&likedWorks[i], candidate)
	}
	return total / float64(len(likedWorks))
}

// ScoredWork pairs a work with its similarity to a target.
type ScoredWork struct {
	Work       models.Work `json:"work"`
	Similarity float64     `json:"similarity"`
}

// FindSimilarWorks ranks candidates by similarity to the target, excluding
// the target itself, and returns up to limit entries.
func (s *ContentScorer) FindSimilarWorks(target *models.Work, candidates []models.Work, limit int) []ScoredWork {
	scored := make([]ScoredWork, 0, len(candidates))
	for i := range candidates {
		if candidates[i].ID == target.ID {
			continue
		}
		scored = append(scored, ScoredWork{
			Work:       candidates[i],
			Similarity: s.Similarity(target, &candidates[i]),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Jaccard computes |a∩b|/|a∪b| over case-insensitive string sets.
// Two empty sets are identical (1); exactly one empty set shares nothing (0).
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[strings.ToLower(v)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[strings.ToLower(v)] = struct{}{}
	}

	intersection := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

// TemporalSimilarity scores publish-date proximity. A missing or
// unparseable year on either side yields the neutral 0.5; otherwise
// similarity decays linearly to 0 at a 50-year gap.
func TemporalSimilarity(date1, date2 string) float64 {
	y1, ok1 := models.ExtractYear(date1)
	y2, ok2 := models.ExtractYear(date2)
	if !ok1 || !ok2 {
		return 0.5
	}

	diff := y1 - y2
	if diff < 0 {
		diff = -diff
	}
	sim := 1 - float64(diff)/50
	if sim < 0 {
		return 0
	}
	return sim
}
