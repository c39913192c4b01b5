// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package models

import "time"

// UserProfile is a user's derived preference view, rebuildable at any time
// from the interaction log.
//
// Every weight in every preference map stays within [0, 1] after any update
// sequence; ProfileBuilder renormalizes after incremental updates to keep
// the invariant.
type UserProfile struct {
	// UserID is the opaque user identifier the profile belongs to.
	UserID string `json:"user_id"`

	// SubjectPreferences maps lowercased subject tags to weights in [0, 1].
	SubjectPreferences map[string]float64 `json:"subject_preferences"`

	// PlacePreferences maps lowercased place tags to weights in [0, 1].
	PlacePreferences map[string]float64 `json:"place_preferences"`

	// TimePreferences maps lowercased time-period tags to weights in [0, 1].
	TimePreferences map[string]float64 `json:"time_preferences"`

	// PeoplePreferences maps lowercased people tags to weights in [0, 1].
	PeoplePreferences map[string]float64 `json:"people_preferences"`

	// LanguagePreferences maps lowercased language codes to weights in [0, 1].
	LanguagePreferences map[string]float64 `json:"language_preferences"`

	// DislikedSubjects maps lowercased subject tags to dislike weights.
	DislikedSubjects map[string]float64 `json:"disliked_subjects"`

	// DislikedPlaces maps lowercased place tags to dislike weights.
	DislikedPlaces map[string]float64 `json:"disliked_places"`

	// DislikedAuthors maps author IDs to dislike weights.
	DislikedAuthors map[string]float64 `json:"disliked_authors"`

	// PreferredPublishEra is the era of the median publish year among liked
	// works, or EraUnknown when no liked work has a parsable year.
	PreferredPublishEra PublishEra `json:"preferred_publish_era"`

	// TotalLikes is the number of liked interactions seen.
	TotalLikes int `json:"total_likes"`

	// TotalDislikes is the number of disliked interactions seen.
	TotalDislikes int `json:"total_dislikes"`

	// LastInteractionAt is the time of the most recent interaction.
	LastInteractionAt time.Time `json:"last_interaction_at"`
}

// NewUserProfile returns an empty profile with all maps initialized.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:              userID,
		SubjectPreferences:  make(map[string]float64),
		PlacePreferences:    make(map[string]float64),
		TimePreferences:     make(map[string]float64),
		PeoplePreferences:   make(map[string]float64),
		LanguagePreferences: make(map[string]float64),
		DislikedSubjects:    make(map[string]float64),
		DislikedPlaces:      make(map[string]float64),
		DislikedAuthors:     make(map[string]float64),
		PreferredPublishEra: EraUnknown,
	}
}

// Clone returns a deep copy of the profile. ProfileBuilder.Update operates
// on a clone so cached profiles are never mutated in place.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	clone := *p
	clone.SubjectPreferences = cloneWeights(p.SubjectPreferences)
	clone.PlacePreferences = cloneWeights(p.PlacePreferences)
	clone.TimePreferences = cloneWeights(p.TimePreferences)
	clone.PeoplePreferences = cloneWeights(p.PeoplePreferences)
	clone.LanguagePreferences = cloneWeights(p.LanguagePreferences)
	clone.DislikedSubjects = cloneWeights(p.DislikedSubjects)
	clone.DislikedPlaces = cloneWeights(p.DislikedPlaces)
	clone.DislikedAuthors = cloneWeights(p.DislikedAuthors)
	return &clone
}

func cloneWeights(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
