// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// HTTPServer is the listener surface the HTTP service supervises.
type HTTPServer interface {
	ListenAndServe(ctx context.Context, addr string) error
}

// HTTPService wraps the HTTP server for suture supervision.
type HTTPService struct {
	server HTTPServer
	addr   string
	log    zerolog.Logger
}

// NewHTTPService creates the supervised HTTP server service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHTTPService(server HTTPServer, addr string, log zerolog.Logger) *HTTPService {
	return &HTTPService{
		server: server,
		addr:   addr,
		log:    log.With().Str("service", "http").Logger(),
	}
}

// Serve implements suture.Service. The server's own shutdown handling
// makes the context cancellation graceful.
func (s *HTTPService) Serve(ctx context.Context) error {
	return s.server.ListenAndServe(ctx, s.addr)
}

func (s *HTTPService) String() string { return "http-service" }

// Sweeper purges expired cache entries and stale events.
type Sweeper interface {
	Sweep()
}

// Compactor drops confirmed entries from the durable event log.
type Compactor interface {
	Compact(ctx context.Context) error
}

// SweepService periodically sweeps the engine caches and compacts the
// interaction WAL.
type SweepService struct {
	sweeper   Sweeper
	compactor Compactor
	interval  time.Duration
	log       zerolog.Logger
}

// NewSweepService creates the periodic maintenance service. A zero
// interval defaults to five minutes.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSweepService(sweeper Sweeper, compactor Compactor, interval time.Duration, log zerolog.Logger) *SweepService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepService{
		sweeper:   sweeper,
		compactor: compactor,
		interval:  interval,
		log:       log.With().Str("service", "sweep").Logger(),
	}
}

// Serve implements suture.Service.
func (s *SweepService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("sweep service running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SweepService) runOnce(ctx context.Context) {
	start := time.Now()
	s.sweeper.Sweep()
	if s.compactor != nil {
		if err := s.compactor.Compact(ctx); err != nil {
			s.log.Warn().Err(err).Msg("wal compaction failed")
		}
	}
	s.log.Debug().Dur("duration", time.Since(start)).Msg("sweep complete")
}

func (s *SweepService) String() string { return "sweep-service" }

// Refresher rebuilds derived scoring tables from the interaction log.
type Refresher interface {
	RefreshDerivedTables(ctx context.Context) error
}

// TrendRefreshService periodically rebuilds document frequencies and
// seasonal patterns. Manual triggers are paced by a rate limiter so a
// burst of triggers cannot turn into a rebuild storm.
type TrendRefreshService struct {
	refresher Refresher
	interval  time.Duration
	limiter   *rate.Limiter
	trigger   chan struct{}
	log       zerolog.Logger
}

// NewTrendRefreshService creates the trend refresh service. A zero
// interval defaults to one hour.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTrendRefreshService(refresher Refresher, interval time.Duration, log zerolog.Logger) *TrendRefreshService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TrendRefreshService{
		refresher: refresher,
		interval:  interval,
		limiter:   rate.NewLimiter(rate.Every(time.Minute), 1),
		trigger:   make(chan struct{}, 1),
		log:       log.With().Str("service", "trend-refresh").Logger(),
	}
}

// Trigger requests an early refresh. Non-blocking; a refresh already
// pending absorbs the request.
func (s *TrendRefreshService) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Serve implements suture.Service. One refresh runs on startup so the
// engine never scores against empty derived tables.
func (s *TrendRefreshService) Serve(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("trend refresh service running")

	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		case <-s.trigger:
			if !s.limiter.Allow() {
				s.log.Debug().Msg("trend refresh trigger throttled")
				continue
			}
			s.refresh(ctx)
		}
	}
}

func (s *TrendRefreshService) refresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	start := time.Now()
	if err := s.refresher.RefreshDerivedTables(refreshCtx); err != nil {
		s.log.Warn().Err(err).Msg("trend refresh failed")
		return
	}
	s.log.Info().Dur("duration", time.Since(start)).Msg("trend refresh complete")
}

func (s *TrendRefreshService) String() string { return "trend-refresh-service" }

// InteractionSource is the bus surface the relay consumes.
type InteractionSource interface {
	SubscribeInteractions(ctx context.Context) (<-chan models.UserInteraction, error)
}

// Triggerer requests asynchronous work, typically a trend refresh.
type Triggerer interface {
	Trigger()
}

// EventRelayService drains the interaction bus and nudges the trend
// refresher, so trending data follows live traffic instead of waiting
// for the next scheduled rebuild. The refresher's own rate limiter
// keeps the nudges cheap.
type EventRelayService struct {
	source  InteractionSource
	trigger Triggerer
	log     zerolog.Logger
}

// NewEventRelayService creates the bus-to-refresh relay.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEventRelayService(source InteractionSource, trigger Triggerer, log zerolog.Logger) *EventRelayService {
	return &EventRelayService{
		source:  source,
		trigger: trigger,
		log:     log.With().Str("service", "event-relay").Logger(),
	}
}

// Serve implements suture.Service.
func (s *EventRelayService) Serve(ctx context.Context) error {
	events, err := s.source.SubscribeInteractions(ctx)
	if err != nil {
		return err
	}

	s.log.Info().Msg("event relay running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			s.log.Debug().Str("user_id", in.UserID).Str("work_id", in.WorkID).
				Msg("interaction observed")
			s.trigger.Trigger()
		}
	}
}

func (s *EventRelayService) String() string { return "event-relay-service" }
