// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package recommend

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/mstralka/mark-flicklit-sub001/internal/metrics"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

const profileCacheKind = "profile"

// lockStripes is the number of per-user mutexes. Requests for the same
// user serialize on one stripe; different users usually proceed in
// parallel.
const lockStripes = 32

// userLocks serializes operations per user so a recorded interaction is
// fully applied before a later request by the same caller reads state.
type userLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *userLocks) lock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m
}

type profileEntry struct {
	profile  *models.UserProfile
	storedAt time.Time
}

// profileCache holds derived user profiles with a TTL independent of the
// recommendation cache.
type profileCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]profileEntry
}

func newProfileCache(ttl time.Duration) *profileCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &profileCache{
		ttl:     ttl,
		entries: make(map[string]profileEntry),
	}
}

// get returns a cached profile or nil. Expired entries are misses and are
// removed.
func (c *profileCache) get(userID string) *models.UserProfile {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues(profileCacheKind).Inc()
		return nil
	}
	if time.Since(e.storedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, userID)
		c.mu.Unlock()
		metrics.CacheMisses.WithLabelValues(profileCacheKind).Inc()
		metrics.CacheEvictions.WithLabelValues(profileCacheKind, "stale").Inc()
		return nil
	}

	metrics.CacheHits.WithLabelValues(profileCacheKind).Inc()
	return e.profile
}

func (c *profileCache) put(userID string, p *models.UserProfile) {
	c.mu.Lock()
	c.entries[userID] = profileEntry{profile: p, storedAt: time.Now()}
	size := len(c.entries)
	c.mu.Unlock()
	metrics.CacheEntries.WithLabelValues(profileCacheKind).Set(float64(size))
}

func (c *profileCache) evict(userID string) {
	c.mu.Lock()
	_, existed := c.entries[userID]
	delete(c.entries, userID)
	c.mu.Unlock()
	if existed {
		metrics.CacheEvictions.WithLabelValues(profileCacheKind, "explicit").Inc()
	}
}

func (c *profileCache) evictAll() {
	c.mu.Lock()
	for userID := range c.entries {
		delete(c.entries, userID)
		metrics.CacheEvictions.WithLabelValues(profileCacheKind, "explicit").Inc()
	}
	c.mu.Unlock()
}

func (c *profileCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// sweep removes expired profiles.
func (c *profileCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	for userID, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, userID)
			metrics.CacheEvictions.WithLabelValues(profileCacheKind, "sweep").Inc()
		}
	}
	size := len(c.entries)
	c.mu.Unlock()
	metrics.CacheEntries.WithLabelValues(profileCacheKind).Set(float64(size))
}
