// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package models

import "time"

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	// Status is "success" or "error".
	Status string `json:"status"`

	// Data carries the response payload on success.
	Data interface{} `json:"data,omitempty"`

	// Error carries error details on failure.
	Error *APIError `json:"error,omitempty"`

	// Metadata carries timing and diagnostic information.
	Metadata Metadata `json:"metadata"`
}

// APIError describes a request failure.
type APIError struct {
	// Code is a stable machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details carries optional structured context.
	Details string `json:"details,omitempty"`
}

// Metadata carries response timing information.
type Metadata struct {
	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`

	// QueryTimeMS is the server-side processing time in milliseconds.
	QueryTimeMS int64 `json:"query_time_ms,omitempty"`
}
