// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package models

import "time"

// UserInteraction is a single like/dislike event linking a user to a work.
//
// The interaction log is append-only: the core never mutates or deletes
// entries, and repeated RecordInteraction calls append distinct entries
// (no idempotence by design, matching the upstream contract).
type UserInteraction struct {
	// ID is the opaque interaction identifier, assigned at append time.
	ID string `json:"id"`

	// UserID is the opaque user identifier.
	UserID string `json:"user_id"`

	// WorkID is the opaque work identifier.
	WorkID string `json:"work_id"`

	// Liked is true for a like, false for a dislike.
	Liked bool `json:"liked"`

	// CreatedAt is when the interaction was recorded.
	CreatedAt time.Time `json:"created_at"`
}
