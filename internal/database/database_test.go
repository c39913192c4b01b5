// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package database

import (
	"context"
	"testing"
	"time"

	"github.com/mstralka/mark-flicklit-sub001/internal/config"
	"github.com/mstralka/mark-flicklit-sub001/internal/logging"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{}, logging.NewTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleWork(id string) *models.Work {
	return &models.Work{
		ID:                id,
		Title:             "The Test Work",
		Subtitle:          "A Subtitle",
		Description:       "A story about stories.",
		FirstPublishDate:  "1954",
		Subjects:          []string{"fantasy", "magic"},
		SubjectPlaces:     []string{"england"},
		OriginalLanguages: []string{"eng"},
		Authors:           []models.AuthorRef{{AuthorID: "a1", Role: "author"}},
	}
}

func TestWorkRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	want := sampleWork("w1")
	if err := db.UpsertWork(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetWork(ctx, "w1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("work not found after upsert")
	}
	if got.Title != want.Title || got.FirstPublishDate != want.FirstPublishDate {
		t.Errorf("got %+v", got)
	}
	if len(got.Subjects) != 2 || got.Subjects[0] != "fantasy" {
		t.Errorf("subjects = %v", got.Subjects)
	}
	if len(got.Authors) != 1 || got.Authors[0].AuthorID != "a1" {
		t.Errorf("authors = %v", got.Authors)
	}
}

func TestGetWorkMissing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetWork(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestGetWorksExcludesAndLimits(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"w1", "w2", "w3"} {
		if err := db.UpsertWork(ctx, sampleWork(id)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.GetWorks(ctx, []string{"w2"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("works = %d, want 2", len(got))
	}
	for _, w := range got {
		if w.ID == "w2" {
			t.Error("excluded work returned")
		}
	}

	limited, err := db.GetWorks(ctx, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limited works = %d, want 1", len(limited))
	}
}

func TestCountWorks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertWork(ctx, sampleWork("w1")); err != nil {
		t.Fatal(err)
	}
	got, err := db.CountWorks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("count = %d, want 1", got)
	}
}

func TestInteractionLogAppendOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, liked := range []bool{true, false, true} {
		in := models.UserInteraction{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			WorkID:    "w1",
			Liked:     liked,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := db.AppendInteraction(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.GetUserInteractions(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("interactions = %d, want 3", len(got))
	}
	// Newest first.
	if got[0].ID != "c" {
		t.Errorf("first interaction = %s, want c", got[0].ID)
	}

	limited, err := db.GetUserInteractions(ctx, "u1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited interactions = %d, want 2", len(limited))
	}
}

func TestGetUsersForWorks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []models.UserInteraction{
		{ID: "i1", UserID: "u1", WorkID: "w1", Liked: true, CreatedAt: now},
		{ID: "i2", UserID: "u2", WorkID: "w1", Liked: true, CreatedAt: now},
		{ID: "i3", UserID: "u3", WorkID: "w9", Liked: true, CreatedAt: now},
	}
	for _, in := range seed {
		if err := db.AppendInteraction(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.GetUsersForWorks(ctx, []string{"w1"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "u2" {
		t.Errorf("users = %v, want [u2]", got)
	}
}

func TestGetInteractionsSince(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	old := models.UserInteraction{ID: "old", UserID: "u1", WorkID: "w1", Liked: true,
		CreatedAt: now.Add(-48 * time.Hour)}
	recent := models.UserInteraction{ID: "recent", UserID: "u1", WorkID: "w2", Liked: true,
		CreatedAt: now}
	for _, in := range []models.UserInteraction{old, recent} {
		if err := db.AppendInteraction(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.GetInteractionsSince(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "recent" {
		t.Errorf("interactions = %+v, want only recent", got)
	}
}

func TestAuthorRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.UpsertAuthor(ctx, &models.Author{ID: "a1", Name: "Jane Author"}); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetAuthor(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "Jane Author" {
		t.Errorf("got %+v", got)
	}

	missing, err := db.GetAuthor(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("got %+v, want nil", missing)
	}
}
