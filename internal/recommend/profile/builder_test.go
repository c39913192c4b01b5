// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package profile

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mstralka/mark-flicklit-sub001/internal/logging"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

type fakeStore struct {
	works        map[string]models.Work
	interactions map[string][]models.UserInteraction
}

func (f *fakeStore) GetUserInteractions(_ context.Context, userID string, limit int) ([]models.UserInteraction, error) {
	ins := f.interactions[userID]
	if len(ins) > limit {
		ins = ins[:limit]
	}
	return ins, nil
}

func (f *fakeStore) GetWorksByIDs(_ context.Context, ids []string) ([]models.Work, error) {
	out := make([]models.Work, 0, len(ids))
	for _, id := range ids {
		if w, ok := f.works[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) GetWork(_ context.Context, workID string) (*models.Work, error) {
	if w, ok := f.works[workID]; ok {
		return &w, nil
	}
	return nil, nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testStore() *fakeStore {
	return &fakeStore{
		works: map[string]models.Work{
			"w1": {
				ID:                "w1",
				Subjects:          []string{"Fantasy", "Magic"},
				SubjectPlaces:     []string{"England"},
				OriginalLanguages: []string{"eng"},
				FirstPublishDate:  "1954",
				Authors:           []models.AuthorRef{{AuthorID: "a1"}},
			},
			"w2": {
				ID:               "w2",
				Subjects:         []string{"fantasy", "Dragons"},
				FirstPublishDate: "1937",
				Authors:          []models.AuthorRef{{AuthorID: "a1"}},
			},
			"w3": {
				ID:               "w3",
				Subjects:         []string{"Romance"},
				FirstPublishDate: "2005",
				Authors:          []models.AuthorRef{{AuthorID: "a2"}},
			},
		},
		interactions: map[string][]models.UserInteraction{},
	}
}

func TestBuildEmptyHistory(t *testing.T) {
	b := NewBuilder(testStore(), logging.NewTestLogger())

	p, err := b.Build(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalLikes != 0 || p.TotalDislikes != 0 {
		t.Errorf("empty history produced counts %d/%d", p.TotalLikes, p.TotalDislikes)
	}
	if len(p.SubjectPreferences) != 0 {
		t.Errorf("empty history produced %d subject preferences", len(p.SubjectPreferences))
	}
	if p.PreferredPublishEra != models.EraUnknown {
		t.Errorf("era = %s, want unknown", p.PreferredPublishEra)
	}
}

func TestBuildFrequencyWeights(t *testing.T) {
	store := testStore()
	now := time.Now().UTC()
	store.interactions["u1"] = []models.UserInteraction{
		{ID: "i3", UserID: "u1", WorkID: "w3", Liked: false, CreatedAt: now},
		{ID: "i2", UserID: "u1", WorkID: "w2", Liked: true, CreatedAt: now.Add(-time.Hour)},
		{ID: "i1", UserID: "u1", WorkID: "w1", Liked: true, CreatedAt: now.Add(-2 * time.Hour)},
	}
	b := NewBuilder(store, logging.NewTestLogger())

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}

	if p.TotalLikes != 2 || p.TotalDislikes != 1 {
		t.Errorf("counts = %d/%d, want 2/1", p.TotalLikes, p.TotalDislikes)
	}

	// "fantasy" appears in both liked works, case-insensitively.
	if got := p.SubjectPreferences["fantasy"]; !almostEqual(got, 1.0) {
		t.Errorf("subjectPreferences[fantasy] = %f, want 1.0", got)
	}
	if got := p.SubjectPreferences["magic"]; !almostEqual(got, 0.5) {
		t.Errorf("subjectPreferences[magic] = %f, want 0.5", got)
	}
	if got := p.DislikedSubjects["romance"]; !almostEqual(got, 1.0) {
		t.Errorf("dislikedSubjects[romance] = %f, want 1.0", got)
	}
	if got := p.DislikedAuthors["a2"]; !almostEqual(got, 1.0) {
		t.Errorf("dislikedAuthors[a2] = %f, want 1.0", got)
	}

	// Median year of 1937, 1954 is 1945: early 20th century.
	if p.PreferredPublishEra != models.EraEarly20thCentury {
		t.Errorf("era = %s, want %s", p.PreferredPublishEra, models.EraEarly20thCentury)
	}

	if !p.LastInteractionAt.Equal(now) {
		t.Errorf("lastInteractionAt = %v, want %v", p.LastInteractionAt, now)
	}
}

func TestBuildUnparsableYears(t *testing.T) {
	store := testStore()
	store.works["w4"] = models.Work{ID: "w4", Subjects: []string{"essays"}, FirstPublishDate: "n.d."}
	store.interactions["u1"] = []models.UserInteraction{
		{ID: "i1", UserID: "u1", WorkID: "w4", Liked: true, CreatedAt: time.Now()},
	}
	b := NewBuilder(store, logging.NewTestLogger())

	p, err := b.Build(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.PreferredPublishEra != models.EraUnknown {
		t.Errorf("era = %s, want unknown", p.PreferredPublishEra)
	}
}

func TestUpdateLiked(t *testing.T) {
	b := NewBuilder(testStore(), logging.NewTestLogger())

	orig := models.NewUserProfile("u1")
	orig.SubjectPreferences["fantasy"] = 0.5

	next, err := b.Update(context.Background(), orig, "w1", true)
	if err != nil {
		t.Fatal(err)
	}

	if !almostEqual(next.SubjectPreferences["fantasy"], 0.6) {
		t.Errorf("fantasy = %f, want 0.6", next.SubjectPreferences["fantasy"])
	}
	if !almostEqual(next.SubjectPreferences["magic"], 0.1) {
		t.Errorf("magic = %f, want 0.1", next.SubjectPreferences["magic"])
	}
	if !almostEqual(next.PlacePreferences["england"], 0.1) {
		t.Errorf("england = %f, want 0.1", next.PlacePreferences["england"])
	}
	if next.TotalLikes != 1 {
		t.Errorf("totalLikes = %d, want 1", next.TotalLikes)
	}

	// Input profile untouched.
	if !almostEqual(orig.SubjectPreferences["fantasy"], 0.5) {
		t.Error("Update mutated the input profile")
	}
	if orig.TotalLikes != 0 {
		t.Error("Update mutated the input profile's counters")
	}
}

func TestUpdateDisliked(t *testing.T) {
	b := NewBuilder(testStore(), logging.NewTestLogger())

	orig := models.NewUserProfile("u1")
	next, err := b.Update(context.Background(), orig, "w3", false)
	if err != nil {
		t.Fatal(err)
	}

	if !almostEqual(next.DislikedSubjects["romance"], 0.1) {
		t.Errorf("dislikedSubjects[romance] = %f, want 0.1", next.DislikedSubjects["romance"])
	}
	if !almostEqual(next.DislikedAuthors["a2"], 0.1) {
		t.Errorf("dislikedAuthors[a2] = %f, want 0.1", next.DislikedAuthors["a2"])
	}
	if next.TotalDislikes != 1 {
		t.Errorf("totalDislikes = %d, want 1", next.TotalDislikes)
	}
	if len(next.SubjectPreferences) != 0 {
		t.Error("dislike touched positive preferences")
	}
}

func TestUpdateMissingWorkIsNoOp(t *testing.T) {
	b := NewBuilder(testStore(), logging.NewTestLogger())

	orig := models.NewUserProfile("u1")
	next, err := b.Update(context.Background(), orig, "missing", true)
	if err != nil {
		t.Fatal(err)
	}
	if next != orig {
		t.Error("missing work should return the original profile")
	}
}

func TestUpdateRenormalizesPositiveMaps(t *testing.T) {
	b := NewBuilder(testStore(), logging.NewTestLogger())

	orig := models.NewUserProfile("u1")
	orig.SubjectPreferences["fantasy"] = 0.95
	orig.SubjectPreferences["magic"] = 0.5

	next, err := b.Update(context.Background(), orig, "w1", true)
	if err != nil {
		t.Fatal(err)
	}

	// fantasy exceeded 1 at 1.05; all entries divide by that max.
	if !almostEqual(next.SubjectPreferences["fantasy"], 1.0) {
		t.Errorf("fantasy = %f, want 1.0", next.SubjectPreferences["fantasy"])
	}
	if !almostEqual(next.SubjectPreferences["magic"], 0.6/1.05) {
		t.Errorf("magic = %f, want %f", next.SubjectPreferences["magic"], 0.6/1.05)
	}
	for k, v := range next.SubjectPreferences {
		if v < 0 || v > 1 {
			t.Errorf("weight %s = %f outside [0, 1]", k, v)
		}
	}
}

func TestWeightsStayBoundedUnderRepeatedUpdates(t *testing.T) {
	b := NewBuilder(testStore(), logging.NewTestLogger())

	p := models.NewUserProfile("u1")
	var err error
	for i := 0; i < 25; i++ {
		p, err = b.Update(context.Background(), p, "w1", true)
		if err != nil {
			t.Fatal(err)
		}
		p, err = b.Update(context.Background(), p, "w3", false)
		if err != nil {
			t.Fatal(err)
		}
	}

	maps := []map[string]float64{
		p.SubjectPreferences, p.PlacePreferences, p.TimePreferences,
		p.PeoplePreferences, p.LanguagePreferences,
		p.DislikedSubjects, p.DislikedPlaces, p.DislikedAuthors,
	}
	for _, m := range maps {
		for k, v := range m {
			if v < 0 || v > 1 {
				t.Errorf("weight %s = %f outside [0, 1]", k, v)
			}
		}
	}
}
