// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package realtime caches finished recommendation lists per user and
// tracks a short-lived interaction event log for trending boosts.
//
// Cache entries carry a profile fingerprint; a lookup with a different
// fingerprint is a miss and evicts the stale entry. Invalidation on new
// interactions is deterministic: besides the acting user, every cached
// user who recently touched the same work is evicted, since their
// collaborative neighborhood just shifted.
package realtime

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mstralka/mark-flicklit-sub001/internal/metrics"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

const (
	cacheKind = "recommendations"

	// shardCount spreads the per-user entries over independent locks.
	shardCount = 16

	// defaultTTL is how long a cached list stays valid.
	defaultTTL = 30 * time.Minute

	// maxEvents bounds the interaction event log.
	maxEvents = 1000

	// eventRetention is how long events stay relevant.
	eventRetention = 24 * time.Hour

	// trendingWindow is the lookback for short-term trending boosts.
	trendingWindow = 60 * time.Minute

	// maxTrendingBoost caps the log-volume term of a trending boost.
	maxTrendingBoost = 0.2

	// boostThreshold is the minimum boost worth applying to a score.
	boostThreshold = 0.05

	// fingerprintSubjects is how many top subject preferences feed the
	// profile fingerprint.
	fingerprintSubjects = 5
)

// Event is one interaction observed by the cache.
type Event struct {
	UserID string
	WorkID string
	Liked  bool
	At     time.Time
}

type entry struct {
	recommendations []models.RecommendationScore
	fingerprint     string
	storedAt        time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// Cache is the per-user recommendation cache with realtime adjustments.
type Cache struct {
	shards [shardCount]*shard
	ttl    time.Duration
	log    zerolog.Logger

	eventMu sync.RWMutex
	events  []Event
}

// NewCache creates a recommendation cache. A non-positive ttl falls back
// to 30 minutes.
func NewCache(ttl time.Duration, log zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c := &Cache{
		ttl: ttl,
		log: log.With().Str("component", "realtime_cache").Logger(),
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]entry)}
	}
	return c
}

func (c *Cache) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return c.shards[h.Sum32()%shardCount]
}

// Fingerprint digests a profile's salient state: top subject preferences,
// interaction counts, and last interaction time. Identical profiles always
// produce identical fingerprints.
func Fingerprint(p *models.UserProfile) string {
	type pref struct {
		subject string
		weight  float64
	}
	prefs := make([]pref, 0, len(p.SubjectPreferences))
	for subject, weight := range p.SubjectPreferences {
		prefs = append(prefs, pref{subject: subject, weight: weight})
	}
	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].weight != prefs[j].weight {
			return prefs[i].weight > prefs[j].weight
		}
		return prefs[i].subject < prefs[j].subject
	})
	if len(prefs) > fingerprintSubjects {
		prefs = prefs[:fingerprintSubjects]
	}

	subjects := make([]string, len(prefs))
	for i, pr := range prefs {
		subjects[i] = pr.subject
	}

	return fmt.Sprintf("%s|%d|%d|%d",
		strings.Join(subjects, ","), p.TotalLikes, p.TotalDislikes, p.LastInteractionAt.Unix())
}

// Get returns the cached list for a user. Absence, TTL expiry, and
// fingerprint mismatch are all misses; the latter two evict the entry.
func (c *Cache) Get(userID, fingerprint string) ([]models.RecommendationScore, bool) {
	s := c.shardFor(userID)

	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues(cacheKind).Inc()
		return nil, false
	}

	if time.Since(e.storedAt) > c.ttl || e.fingerprint != fingerprint {
		s.mu.Lock()
		delete(s.entries, userID)
		s.mu.Unlock()
		metrics.CacheMisses.WithLabelValues(cacheKind).Inc()
		metrics.CacheEvictions.WithLabelValues(cacheKind, "stale").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues(cacheKind).Inc()
	return e.recommendations, true
}

// Put stores a finished recommendation list under the user's fingerprint.
func (c *Cache) Put(userID string, recs []models.RecommendationScore, fingerprint string) {
	s := c.shardFor(userID)
	s.mu.Lock()
	s.entries[userID] = entry{
		recommendations: recs,
		fingerprint:     fingerprint,
		storedAt:        time.Now(),
	}
	s.mu.Unlock()
}

// Evict removes one user's cached entry.
func (c *Cache) Evict(userID, reason string) {
	s := c.shardFor(userID)
	s.mu.Lock()
	_, existed := s.entries[userID]
	delete(s.entries, userID)
	s.mu.Unlock()
	if existed {
		metrics.CacheEvictions.WithLabelValues(cacheKind, reason).Inc()
	}
}

// EvictAll clears every cached entry.
func (c *Cache) EvictAll() {
	for _, s := range c.shards {
		s.mu.Lock()
		for userID := range s.entries {
			delete(s.entries, userID)
			metrics.CacheEvictions.WithLabelValues(cacheKind, "explicit").Inc()
		}
		s.mu.Unlock()
	}
}

// RecordInteraction logs an event and invalidates affected cache entries:
// the acting user always, plus any cached user whose recent events touch
// the same work. That related-user rule is exact, not sampled, so repeated
// runs against the same state evict the same set.
func (c *Cache) RecordInteraction(userID, workID string, liked bool) {
	now := time.Now()

	c.eventMu.Lock()
	c.events = append(c.events, Event{UserID: userID, WorkID: workID, Liked: liked, At: now})
	if len(c.events) > maxEvents {
		c.events = c.events[len(c.events)-maxEvents:]
	}
	related := make(map[string]struct{})
	for _, ev := range c.events {
		if ev.WorkID == workID && ev.UserID != userID {
			related[ev.UserID] = struct{}{}
		}
	}
	c.eventMu.Unlock()

	c.Evict(userID, "interaction")
	for relatedUser := range related {
		c.Evict(relatedUser, "related_user")
	}
}

// TrendingBoost scores short-term momentum for a work from events in the
// last hour: like ratio times log-scaled volume, capped at 0.2.
func (c *Cache) TrendingBoost(workID string) float64 {
	cutoff := time.Now().Add(-trendingWindow)

	c.eventMu.RLock()
	total, liked := 0, 0
	for _, ev := range c.events {
		if ev.WorkID != workID || ev.At.Before(cutoff) {
			continue
		}
		total++
		if ev.Liked {
			liked++
		}
	}
	c.eventMu.RUnlock()

	if total == 0 {
		return 0
	}

	volume := math.Log(float64(total)+1) / 10
	if volume > maxTrendingBoost {
		volume = maxTrendingBoost
	}
	return float64(liked) / float64(total) * volume
}

// ApplyRealtimeAdjustments returns a copy of the list with trending boosts
// applied and re-sorted. Boosts at or below 0.05 are ignored.
func (c *Cache) ApplyRealtimeAdjustments(recs []models.RecommendationScore) []models.RecommendationScore {
	out := make([]models.RecommendationScore, len(recs))
	copy(out, recs)

	for i := range out {
		boost := c.TrendingBoost(out[i].WorkID)
		if boost > boostThreshold {
			out[i].FinalScore += boost
			out[i].Reasons = append(append([]string(nil), out[i].Reasons...), "Currently trending")
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

// Sweep prunes expired cache entries and events past retention. Runs on a
// background schedule.
func (c *Cache) Sweep() {
	now := time.Now()

	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for userID, e := range s.entries {
			if now.Sub(e.storedAt) > c.ttl {
				delete(s.entries, userID)
				removed++
				metrics.CacheEvictions.WithLabelValues(cacheKind, "sweep").Inc()
			}
		}
		s.mu.Unlock()
	}

	cutoff := now.Add(-eventRetention)
	c.eventMu.Lock()
	kept := c.events[:0]
	for _, ev := range c.events {
		if !ev.At.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	c.events = kept
	c.eventMu.Unlock()

	metrics.CacheEntries.WithLabelValues(cacheKind).Set(float64(c.Len()))
	if removed > 0 {
		c.log.Debug().Int("removed", removed).Msg("cache sweep complete")
	}
}

// Len returns the number of cached entries across all shards.
func (c *Cache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// EventCount returns the current size of the event log.
func (c *Cache) EventCount() int {
	c.eventMu.RLock()
	defer c.eventMu.RUnlock()
	return len(c.events)
}
