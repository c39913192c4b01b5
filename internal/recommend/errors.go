// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package recommend

import "errors"

// ErrInvalidRequest rejects malformed input synchronously: non-positive
// limits, empty ids where one is required. No partial work is attempted.
var ErrInvalidRequest = errors.New("invalid request")

// ErrWorkNotFound reports a lookup for a work id the catalog does not hold.
var ErrWorkNotFound = errors.New("work not found")

// Store read failures never surface as errors from GetRecommendations:
// the affected scoring term degrades to zero and the request continues.
// Only the initial candidate fetch failing yields an empty, zero-confidence
// response.
