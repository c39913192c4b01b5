// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package realtime

import (
	"testing"
	"time"

	"github.com/mstralka/mark-flicklit-sub001/internal/logging"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

func testProfile(userID string) *models.UserProfile {
	p := models.NewUserProfile(userID)
	p.SubjectPreferences["fantasy"] = 0.8
	p.SubjectPreferences["magic"] = 0.4
	p.TotalLikes = 3
	p.LastInteractionAt = time.Unix(1700000000, 0)
	return p
}

func TestFingerprintDeterministic(t *testing.T) {
	a := testProfile("u1")
	b := testProfile("u1")
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("identical profiles produced different fingerprints")
	}
}

func TestFingerprintChangesWithState(t *testing.T) {
	base := Fingerprint(testProfile("u1"))

	liked := testProfile("u1")
	liked.TotalLikes++
	if Fingerprint(liked) == base {
		t.Error("fingerprint unchanged after like count change")
	}

	shifted := testProfile("u1")
	shifted.SubjectPreferences["astronomy"] = 0.9
	if Fingerprint(shifted) == base {
		t.Error("fingerprint unchanged after top-subject change")
	}
}

func TestGetMissOnAbsent(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())
	if _, ok := c.Get("u1", "fp"); ok {
		t.Error("hit on empty cache")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())
	recs := []models.RecommendationScore{{WorkID: "w1", FinalScore: 0.9}}

	c.Put("u1", recs, "fp")
	got, ok := c.Get("u1", "fp")
	if !ok {
		t.Fatal("miss after put")
	}
	if len(got) != 1 || got[0].WorkID != "w1" {
		t.Errorf("got %+v", got)
	}
}

func TestGetFingerprintMismatchEvicts(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())
	c.Put("u1", []models.RecommendationScore{{WorkID: "w1"}}, "fp1")

	if _, ok := c.Get("u1", "fp2"); ok {
		t.Error("hit despite fingerprint mismatch")
	}
	// The stale entry is gone even for the original fingerprint.
	if _, ok := c.Get("u1", "fp1"); ok {
		t.Error("stale entry survived mismatch eviction")
	}
}

func TestGetTTLExpiry(t *testing.T) {
	c := NewCache(time.Nanosecond, logging.NewTestLogger())
	c.Put("u1", []models.RecommendationScore{{WorkID: "w1"}}, "fp")
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("u1", "fp"); ok {
		t.Error("hit on expired entry")
	}
}

func TestRecordInteractionEvictsActingUser(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())
	c.Put("u1", []models.RecommendationScore{{WorkID: "w1"}}, "fp")

	c.RecordInteraction("u1", "w9", true)
	if _, ok := c.Get("u1", "fp"); ok {
		t.Error("acting user's entry survived an interaction")
	}
}

func TestRecordInteractionEvictsRelatedUsers(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())

	// u2 interacted with w5 earlier and has a cached list; u3 never
	// touched w5.
	c.RecordInteraction("u2", "w5", true)
	c.Put("u2", []models.RecommendationScore{{WorkID: "a"}}, "fp2")
	c.Put("u3", []models.RecommendationScore{{WorkID: "b"}}, "fp3")

	c.RecordInteraction("u1", "w5", false)

	if _, ok := c.Get("u2", "fp2"); ok {
		t.Error("related user's entry survived")
	}
	if _, ok := c.Get("u3", "fp3"); !ok {
		t.Error("unrelated user's entry was evicted")
	}
}

func TestEventLogBounded(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())
	for i := 0; i < maxEvents+100; i++ {
		c.RecordInteraction("u1", "w1", true)
	}
	if got := c.EventCount(); got != maxEvents {
		t.Errorf("event log size = %d, want %d", got, maxEvents)
	}
}

func TestTrendingBoost(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())

	if got := c.TrendingBoost("w1"); got != 0 {
		t.Errorf("boost with no events = %f, want 0", got)
	}

	// Three likes, one dislike within the window.
	for i := 0; i < 3; i++ {
		c.RecordInteraction("u1", "w1", true)
	}
	c.RecordInteraction("u2", "w1", false)

	got := c.TrendingBoost("w1")
	if got <= 0 {
		t.Fatalf("boost = %f, want positive", got)
	}
	// likeRatio 0.75, volume ln(5)/10 < 0.2 cap.
	if got > 0.75*0.2 {
		t.Errorf("boost = %f exceeds the cap", got)
	}
}

func TestApplyRealtimeAdjustments(t *testing.T) {
	c := NewCache(time.Minute, logging.NewTestLogger())

	// One like on w2: boost = 1.0 * ln(2)/10 = 0.069, above the 0.05
	// threshold.
	c.RecordInteraction("u1", "w2", true)

	recs := []models.RecommendationScore{
		{WorkID: "w1", FinalScore: 0.50, Reasons: []string{"base"}},
		{WorkID: "w2", FinalScore: 0.48, Reasons: []string{"base"}},
	}
	got := c.ApplyRealtimeAdjustments(recs)

	if got[0].WorkID != "w2" {
		t.Errorf("boosted work did not rise: top = %s", got[0].WorkID)
	}
	found := false
	for _, r := range got[0].Reasons {
		if r == "Currently trending" {
			found = true
		}
	}
	if !found {
		t.Errorf("boosted work missing trending reason: %v", got[0].Reasons)
	}

	// Input list untouched.
	if recs[0].WorkID != "w1" || len(recs[1].Reasons) != 1 {
		t.Error("ApplyRealtimeAdjustments mutated its input")
	}
}

func TestSweep(t *testing.T) {
	c := NewCache(time.Nanosecond, logging.NewTestLogger())
	c.Put("u1", []models.RecommendationScore{{WorkID: "w1"}}, "fp")
	time.Sleep(time.Millisecond)

	c.Sweep()
	if got := c.Len(); got != 0 {
		t.Errorf("entries after sweep = %d, want 0", got)
	}
}
