// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package models

// AuthorRef links a work to an author with an optional role
// (e.g. "translator", "illustrator"). An empty role means primary author.
type AuthorRef struct {
	// AuthorID is the opaque author identifier.
	AuthorID string `json:"author_id"`

	// Role describes the author's contribution, if known.
	Role string `json:"role,omitempty"`
}

// Work represents a literary work in the catalog.
// Works are immutable once ingested.
type Work struct {
	// ID is the opaque work identifier.
	ID string `json:"id"`

	// Title is the primary title.
	Title string `json:"title"`

	// Subtitle is the optional subtitle.
	Subtitle string `json:"subtitle,omitempty"`

	// Description is the free-text description or synopsis.
	Description string `json:"description,omitempty"`

	// FirstPublishDate is the original publication date as recorded by the
	// catalog source. Free-form; use ExtractYear to obtain a usable year.
	FirstPublishDate string `json:"first_publish_date,omitempty"`

	// Subjects is the list of subject tags (e.g. "fantasy", "poetry").
	Subjects []string `json:"subjects,omitempty"`

	// SubjectPlaces is the list of place tags (e.g. "london", "middle-earth").
	SubjectPlaces []string `json:"subject_places,omitempty"`

	// SubjectTimes is the list of time-period tags (e.g. "victorian era").
	SubjectTimes []string `json:"subject_times,omitempty"`

	// SubjectPeople is the list of people tags (e.g. "napoleon").
	SubjectPeople []string `json:"subject_people,omitempty"`

	// OriginalLanguages lists the languages the work was first written in.
	OriginalLanguages []string `json:"original_languages,omitempty"`

	// Authors lists the contributing authors.
	Authors []AuthorRef `json:"authors,omitempty"`
}

// AuthorIDs returns the author identifiers of the work, in order.
func (w *Work) AuthorIDs() []string {
	if len(w.Authors) == 0 {
		return nil
	}
	ids := make([]string, 0, len(w.Authors))
	for _, ref := range w.Authors {
		ids = append(ids, ref.AuthorID)
	}
	return ids
}

// PublishYear returns the first parsable 4-digit year of the work's
// first-publish date. The second return value reports whether a year
// was found.
func (w *Work) PublishYear() (int, bool) {
	return ExtractYear(w.FirstPublishDate)
}

// Era returns the publish era bucket for the work, or EraUnknown when the
// first-publish date has no parsable year.
func (w *Work) Era() PublishEra {
	year, ok := w.PublishYear()
	if !ok {
		return EraUnknown
	}
	return EraForYear(year)
}

// Author represents a catalog author. Read-only to the recommendation core.
type Author struct {
	// ID is the opaque author identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`
}
