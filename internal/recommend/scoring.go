// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package recommend

import (
	"fmt"
	"strings"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

const (
	contentWeight       = 0.6
	collaborativeWeight = 0.3
	noveltyWeight       = 0.1

	// eraMatchBonus is added to the content score when a work's era
	// matches the user's preferred era.
	eraMatchBonus = 0.1

	// interestReasonThreshold is the category mean above which a
	// "Matches your interest" reason is emitted.
	interestReasonThreshold = 0.3

	// negativeMultiplierFloor prevents dislikes from zeroing a score.
	negativeMultiplierFloor = 0.1

	// reducedReasonThreshold flags scores visibly dampened by dislikes.
	reducedReasonThreshold = 0.8
)

// categoryWeight pairs a preference map accessor with its share of the
// content score.
type categoryWeight struct {
	name   string
	weight float64
	values func(*models.Work) []string
	prefs  func(*models.UserProfile) map[string]float64
}

var contentCategories = []categoryWeight{
	{
		name: "subjects", weight: 0.4,
		values: func(w *models.Work) []string { return w.Subjects },
		prefs:  func(p *models.UserProfile) map[string]float64 { return p.SubjectPreferences },
	},
	{
		name: "places", weight: 0.15,
		values: func(w *models.Work) []string { return w.SubjectPlaces },
		prefs:  func(p *models.UserProfile) map[string]float64 { return p.PlacePreferences },
	},
	{
		name: "times", weight: 0.15,
		values: func(w *models.Work) []string { return w.SubjectTimes },
		prefs:  func(p *models.UserProfile) map[string]float64 { return p.TimePreferences },
	},
	{
		name: "people", weight: 0.1,
		values: func(w *models.Work) []string { return w.SubjectPeople },
		prefs:  func(p *models.UserProfile) map[string]float64 { return p.PeoplePreferences },
	},
	{
		name: "languages", weight: 0.1,
		values: func(w *models.Work) []string { return w.OriginalLanguages },
		prefs:  func(p *models.UserProfile) map[string]float64 { return p.LanguagePreferences },
	},
}

// contentScore rates a candidate against a user's positive preferences.
// Each category contributes the mean preference weight across the work's
// values times the category weight; a preferred-era match adds a flat
// bonus. Clipped to 1.
func contentScore(work *models.Work, profile *models.UserProfile) (float64, []string) {
	var score float64
	var reasons []string

	for _, cat := range contentCategories {
		values := cat.values(work)
		if len(values) == 0 {
			continue
		}
		prefs := cat.prefs(profile)

		var sum, best float64
		var bestValue string
		for _, v := range values {
			w := prefs[strings.ToLower(v)]
			sum += w
			if w > best {
				best = w
				bestValue = strings.ToLower(v)
			}
		}
		mean := sum / float64(len(values))
		score += mean * cat.weight

		if mean > interestReasonThreshold && bestValue != "" {
			reasons = append(reasons, fmt.Sprintf("Matches your interest in %s", bestValue))
		}
	}

	if era := work.Era(); era != models.EraUnknown &&
		profile.PreferredPublishEra != models.EraUnknown &&
		era == profile.PreferredPublishEra {
		score += eraMatchBonus
	}

	if score > 1 {
		score = 1
	}
	return score, reasons
}

// noveltyBonus rewards gentle exploration: a small bump for one or two
// wholly new subjects (not zero, not a flood) and another for any author
// outside the user's disliked set.
func noveltyBonus(work *models.Work, profile *models.UserProfile) float64 {
	var bonus float64

	newSubjects := 0
	for _, s := range work.Subjects {
		if _, known := profile.SubjectPreferences[strings.ToLower(s)]; !known {
			newSubjects++
		}
	}
	if newSubjects == 1 || newSubjects == 2 {
		bonus += 0.05
	}

	for _, ref := range work.Authors {
		if _, disliked := profile.DislikedAuthors[strings.ToLower(ref.AuthorID)]; !disliked {
			bonus += 0.03
			break
		}
	}
	return bonus
}

// negativeMultiplier dampens candidates matching a user's dislikes. Each
// of subjects, places, and authors contributes max(0.1, 1 - mean disliked
// weight); the multipliers compound.
func negativeMultiplier(work *models.Work, profile *models.UserProfile) float64 {
	multiplier := 1.0
	multiplier *= negativeFactor(work.Subjects, profile.DislikedSubjects)
	multiplier *= negativeFactor(work.SubjectPlaces, profile.DislikedPlaces)
	multiplier *= negativeFactor(work.AuthorIDs(), profile.DislikedAuthors)
	return multiplier
}

func negativeFactor(values []string, disliked map[string]float64) float64 {
	if len(values) == 0 {
		return 1
	}
	var sum float64
	for _, v := range values {
		sum += disliked[strings.ToLower(v)]
	}
	factor := 1 - sum/float64(len(values))
	if factor < negativeMultiplierFloor {
		return negativeMultiplierFloor
	}
	return factor
}
