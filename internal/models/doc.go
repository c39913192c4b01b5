// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package models defines the shared domain types for FlickLit.
//
// The catalog entities (Work, Author) are immutable once ingested and owned
// by the catalog import pipeline; the recommendation core only reads them.
// UserInteraction is the append-only source of truth for all derived state.
// UserProfile and RecommendationScore are derived views produced by the
// recommendation engine and are never persisted back to the catalog.
//
// All identifiers are opaque strings. The upstream catalog sources mix
// numeric and string keys; the store adapter normalizes them at the
// boundary so nothing in the core ever parses an ID.
package models
