// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

// Package recommend composes the scoring components into the public
// recommendation contract.
//
// A request flows: profile (cached or rebuilt) -> candidate fetch ->
// per-candidate content, collaborative, novelty, and negative scoring ->
// diversity re-rank -> serendipity injection -> realtime trending
// adjustments -> cache commit. Any single scorer failing degrades its
// term to zero; the request still completes.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/mstralka/mark-flicklit-sub001/internal/metrics"
	"github.com/mstralka/mark-flicklit-sub001/internal/models"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/collab"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/diversity"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/profile"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/realtime"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/similarity"
	"github.com/mstralka/mark-flicklit-sub001/internal/recommend/trending"
)

// Engine is the recommendation orchestrator.
type Engine struct {
	store     Store
	publisher Publisher
	cfg       Config
	log       zerolog.Logger

	builder      *profile.Builder
	content      *similarity.ContentScorer
	text         *similarity.TextScorer
	collabFilter *collab.Filter
	trends       *trending.Analyzer
	diversifier  *diversity.Engine

	recCache *realtime.Cache
	profiles *profileCache
	locks    userLocks

	collabBreaker *gobreaker.CircuitBreaker[[]collab.Recommendation]
}

// NewEngine wires the scoring components around a store. The publisher is
// optional; a nil publisher disables event emission.
func NewEngine(store Store, publisher Publisher, cfg Config, log zerolog.Logger) (*Engine, error) {
	cfg = cfg.withDefaults()

	content, err := similarity.NewContentScorer(similarity.DefaultContentWeights())
	if err != nil {
		return nil, fmt.Errorf("content scorer: %w", err)
	}

	engineLog := log.With().Str("component", "recommend_engine").Logger()

	e := &Engine{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		log:       engineLog,
		builder:   profile.NewBuilder(store, log),
		content:   content,
		text:      similarity.NewTextScorer(),
		collabFilter: collab.NewFilter(store, collab.Config{
			MinCommonInteractions: cfg.MinCommonInteractions,
			MaxSimilarUsers:       cfg.MaxSimilarUsers,
		}, log),
		trends:      trending.NewAnalyzer(store, log),
		diversifier: diversity.NewEngine(),
		recCache:    realtime.NewCache(cfg.RecommendationCacheTTL, log),
		profiles:    newProfileCache(cfg.ProfileCacheTTL),
	}

	e.collabBreaker = gobreaker.NewCircuitBreaker[[]collab.Recommendation](gobreaker.Settings{
		Name:    "collaborative-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			engineLog.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return e, nil
}

// GetRecommendations produces an ordered recommendation list. An empty
// UserID yields the anonymous popular list; otherwise the full
// personalized pipeline runs, short-circuited by the per-user cache.
func (e *Engine) GetRecommendations(ctx context.Context, req Request) (*Response, error) {
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidRequest, req.Limit)
	}
	if req.Limit == 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Limit > e.cfg.MaxLimit {
		req.Limit = e.cfg.MaxLimit
	}

	mode := "personalized"
	if req.UserID == "" {
		mode = "popular"
	}
	start := time.Now()
	defer func() {
		metrics.RecommendationRequests.WithLabelValues(mode).Inc()
		metrics.RecommendationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	if req.UserID == "" {
		return e.popularRecommendations(ctx, req)
	}
	return e.personalizedRecommendations(ctx, req)
}

// popularRecommendations serves the anonymous path: storage-ordered
// candidates with flat scores.
func (e *Engine) popularRecommendations(ctx context.Context, req Request) (*Response, error) {
	works, err := e.store.GetWorks(ctx, req.ExcludeIDs, req.Limit)
	if err != nil {
		e.log.Error().Err(err).Msg("candidate fetch failed, returning empty response")
		return &Response{Recommendations: []models.RecommendationScore{}}, nil
	}

	recs := make([]models.RecommendationScore, 0, len(works))
	for i := range works {
		recs = append(recs, models.RecommendationScore{
			WorkID:             works[i].ID,
			ContentScore:       0.5,
			CollaborativeScore: 0,
			NoveltyBonus:       0.1,
			NegativeMultiplier: 1.0,
			FinalScore:         0.6,
			Reasons:            []string{"Popular recommendation"},
		})
	}

	return &Response{
		Recommendations: recs,
		TotalAvailable:  e.totalAvailable(ctx),
	}, nil
}

func (e *Engine) personalizedRecommendations(ctx context.Context, req Request) (*Response, error) {
	lock := e.locks.lock(req.UserID)
	defer lock.Unlock()

	userProfile, err := e.resolveProfile(ctx, req.UserID)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", req.UserID).
			Msg("profile unavailable, serving popular fallback")
		return e.popularRecommendations(ctx, req)
	}

	fingerprint := realtime.Fingerprint(userProfile)
	if cached, ok := e.recCache.Get(req.UserID, fingerprint); ok {
		limited := cached
		if len(limited) > req.Limit {
			limited = limited[:req.Limit]
		}
		return &Response{
			Recommendations: limited,
			UserProfile:     userProfile,
			TotalAvailable:  e.totalAvailable(ctx),
			Cached:          true,
		}, nil
	}

	candidates, err := e.store.GetWorks(ctx, req.ExcludeIDs, req.Limit*e.cfg.CandidateMultiplier)
	if err != nil {
		e.log.Error().Err(err).Str("user_id", req.UserID).
			Msg("candidate fetch failed, returning empty response")
		return &Response{
			Recommendations: []models.RecommendationScore{},
			UserProfile:     userProfile,
		}, nil
	}

	collabByWork := e.collaborativeScores(ctx, req.UserID, req.ExcludeIDs)

	recs := make([]models.RecommendationScore, 0, len(candidates))
	worksByID := make(map[string]models.Work, len(candidates))
	for i := range candidates {
		work := &candidates[i]
		worksByID[work.ID] = candidates[i]
		recs = append(recs, e.scoreCandidate(work, userProfile, collabByWork))
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].FinalScore > recs[j].FinalScore
	})
	if len(recs) > req.Limit {
		recs = recs[:req.Limit]
	}

	recs = e.diversifier.Diversify(recs, worksByID)
	recs = e.diversifier.InjectSerendipity(recs, candidates, userProfile, e.cfg.SerendipityRate)
	recs = e.recCache.ApplyRealtimeAdjustments(recs)

	// A cancelled request must not leave a half-written cache entry.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.recCache.Put(req.UserID, recs, fingerprint)

	return &Response{
		Recommendations: recs,
		UserProfile:     userProfile,
		TotalAvailable:  e.totalAvailable(ctx),
	}, nil
}

// scoreCandidate computes all four scoring terms for one work.
func (e *Engine) scoreCandidate(work *models.Work, userProfile *models.UserProfile, collabByWork map[string]collab.Recommendation) models.RecommendationScore {
	content, reasons := contentScore(work, userProfile)

	var collaborative float64
	if cr, ok := collabByWork[work.ID]; ok {
		collaborative = cr.Score * cr.Confidence
		if collaborative > 1 {
			collaborative = 1
		}
		if collaborative > 0.3 {
			reasons = append(reasons, fmt.Sprintf("Liked by %d similar users", cr.SupportingUsers))
		}
	}

	novelty := noveltyBonus(work, userProfile)
	negative := negativeMultiplier(work, userProfile)
	if negative < reducedReasonThreshold {
		reasons = append(reasons, "Reduced due to previous preferences")
	}

	final := (content*contentWeight + collaborative*collaborativeWeight + novelty*noveltyWeight) * negative

	return models.RecommendationScore{
		WorkID:             work.ID,
		ContentScore:       content,
		CollaborativeScore: collaborative,
		NoveltyBonus:       novelty,
		NegativeMultiplier: negative,
		FinalScore:         final,
		Reasons:            reasons,
	}
}

// collaborativeScores runs the collaborative filter behind a circuit
// breaker. Any failure degrades to an empty map; the request continues in
// content-only mode.
func (e *Engine) collaborativeScores(ctx context.Context, userID string, excludeIDs []string) map[string]collab.Recommendation {
	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	recs, err := e.collabBreaker.Execute(func() ([]collab.Recommendation, error) {
		return e.collabFilter.Recommendations(ctx, userID, exclude, 0)
	})
	if err != nil {
		metrics.ScorerDegradations.WithLabelValues("collaborative").Inc()
		e.log.Warn().Err(err).Str("user_id", userID).
			Msg("collaborative scoring degraded to zero")
		return map[string]collab.Recommendation{}
	}

	byWork := make(map[string]collab.Recommendation, len(recs))
	for _, r := range recs {
		byWork[r.WorkID] = r
	}
	return byWork
}

// resolveProfile returns the cached profile or rebuilds it from the log.
func (e *Engine) resolveProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if p := e.profiles.get(userID); p != nil {
		return p, nil
	}
	p, err := e.builder.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.profiles.put(userID, p)
	return p, nil
}

// RecordInteraction appends one like/dislike to the log, updates the
// cached profile incrementally, and invalidates affected recommendation
// caches. Deliberately not idempotent: every call appends a new entry.
func (e *Engine) RecordInteraction(ctx context.Context, userID, workID string, liked bool) error {
	if userID == "" || workID == "" {
		return fmt.Errorf("%w: userId and workId are required", ErrInvalidRequest)
	}

	lock := e.locks.lock(userID)
	defer lock.Unlock()

	in := models.UserInteraction{
		ID:        uuid.NewString(),
		UserID:    userID,
		WorkID:    workID,
		Liked:     liked,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.AppendInteraction(ctx, in); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}

	action := "dislike"
	if liked {
		action = "like"
	}
	metrics.InteractionsRecorded.WithLabelValues(action).Inc()

	// Incremental profile update instead of a full rebuild, when cached.
	if cached := e.profiles.get(userID); cached != nil {
		updated, err := e.builder.Update(ctx, cached, workID, liked)
		if err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).
				Msg("incremental profile update failed, evicting cached profile")
			e.profiles.evict(userID)
		} else {
			e.profiles.put(userID, updated)
		}
	}

	e.recCache.RecordInteraction(userID, workID, liked)

	if e.publisher != nil {
		if err := e.publisher.PublishInteraction(in); err != nil {
			e.log.Warn().Err(err).Msg("interaction event publish failed")
		} else {
			metrics.EventsPublished.Inc()
		}
	}

	return nil
}

// ClearUserCache invalidates cached state for one user, or for everyone
// when userID is empty.
func (e *Engine) ClearUserCache(userID string) {
	if userID == "" {
		e.recCache.EvictAll()
		e.profiles.evictAll()
		return
	}
	e.recCache.Evict(userID, "explicit")
	e.profiles.evict(userID)
}

// Profile returns a user's derived profile, building it on a cache miss.
func (e *Engine) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	lock := e.locks.lock(userID)
	defer lock.Unlock()
	return e.resolveProfile(ctx, userID)
}

// SimilarWorks ranks catalog works by similarity to a target, blending
// feature-set similarity with TF-IDF text similarity.
func (e *Engine) SimilarWorks(ctx context.Context, workID string, limit int) ([]similarity.ScoredWork, error) {
	if workID == "" {
		return nil, fmt.Errorf("%w: workId is required", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	target, err := e.store.GetWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkNotFound, workID)
	}

	candidates, err := e.store.GetWorks(ctx, []string{workID}, e.cfg.SimilarWorksPool)
	if err != nil {
		return nil, err
	}

	scored := make([]similarity.ScoredWork, 0, len(candidates))
	for i := range candidates {
		if candidates[i].ID == target.ID {
			continue
		}
		sim := 0.7*e.content.Similarity(target, &candidates[i]) +
			0.3*e.text.WorkSimilarity(target, &candidates[i])
		scored = append(scored, similarity.ScoredWork{Work: candidates[i], Similarity: sim})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// TrendingWorks ranks works by trend score over the lookback window.
func (e *Engine) TrendingWorks(ctx context.Context, days, limit int) ([]trending.TrendingWork, error) {
	return e.trends.TrendingWorks(ctx, days, limit)
}

// TrendingSubjects ranks subjects by their share of recent likes.
func (e *Engine) TrendingSubjects(ctx context.Context, days, limit int) ([]trending.TrendingSubject, error) {
	return e.trends.TrendingSubjects(ctx, days, limit)
}

// RefreshDerivedTables rebuilds the text corpus document frequencies and
// the seasonal pattern table. Runs on a background schedule.
func (e *Engine) RefreshDerivedTables(ctx context.Context) error {
	works, err := e.store.GetWorks(ctx, nil, e.cfg.CorpusRefreshLimit)
	if err != nil {
		return fmt.Errorf("corpus fetch: %w", err)
	}
	e.text.BuildDocumentFrequencies(works)

	if err := e.trends.BuildSeasonalPatterns(ctx); err != nil {
		return fmt.Errorf("seasonal patterns: %w", err)
	}

	e.log.Info().Int("corpus_size", len(works)).Msg("derived tables refreshed")
	return nil
}

// Sweep prunes expired cache entries. Runs on a background schedule.
func (e *Engine) Sweep() {
	e.recCache.Sweep()
	e.profiles.sweep()
}

// Status is a point-in-time snapshot of engine state for operators.
type Status struct {
	TotalWorks            int    `json:"totalWorks"`
	CachedProfiles        int    `json:"cachedProfiles"`
	CachedRecommendations int    `json:"cachedRecommendations"`
	TrackedEvents         int    `json:"trackedEvents"`
	CollaborativeBreaker  string `json:"collaborativeBreaker"`
}

// Status reports engine state: corpus size, cache occupancy, and the
// collaborative circuit breaker state.
func (e *Engine) Status(ctx context.Context) Status {
	return Status{
		TotalWorks:            e.totalAvailable(ctx),
		CachedProfiles:        e.profiles.len(),
		CachedRecommendations: e.recCache.Len(),
		TrackedEvents:         e.recCache.EventCount(),
		CollaborativeBreaker:  e.collabBreaker.State().String(),
	}
}

func (e *Engine) totalAvailable(ctx context.Context) int {
	total, err := e.store.CountWorks(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("work count unavailable")
		return 0
	}
	return total
}
