package vedictime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/vedictime/internal/metrics"
)

const (
	// DefaultThrottleWindow is the minimum interval between extraction attempts.
	DefaultThrottleWindow = 5 * time.Second
	// DefaultRefreshWindow is the age after which the page is reloaded before extracting.
	DefaultRefreshWindow = 5 * time.Minute

	flightKey = "snapshot"
)

// Config tunes the snapshot cache.
type Config struct {
	// Source is stamped into every snapshot.
	Source string
	// UpstreamURL labels reload metrics.
	UpstreamURL    string
	ThrottleWindow time.Duration
	RefreshWindow  time.Duration
}

// Service owns the live snapshot and the policy deciding when to touch the page.
type Service struct {
	renderer Renderer
	clock    Clock
	cfg      Config
	logger   *zap.Logger
	flight   singleflight.Group

	mu        sync.RWMutex
	snapshot  *Snapshot
	lastFetch time.Time
}

type reloadOutcome struct {
	attempted bool
	err       error
}

// NewService wires a Service around the renderer. Zero config values fall back
// to the package defaults.
func NewService(renderer Renderer, clock Clock, cfg Config, logger *zap.Logger) *Service {
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	if cfg.ThrottleWindow <= 0 {
		cfg.ThrottleWindow = DefaultThrottleWindow
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Service{
		renderer: renderer,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// ReadSnapshot returns the cached snapshot while inside the throttle window and
// otherwise extracts a fresh one from the page. Concurrent non-throttled calls
// share a single extraction. Work started here is not canceled by ctx.
func (s *Service) ReadSnapshot(ctx context.Context) (Snapshot, error) {
	ctx = context.WithoutCancel(ctx)

	created, err := s.renderer.Ensure(ctx)
	if err != nil {
		metrics.ObserveRead(metrics.ReadFailed, 0)
		return Snapshot{}, fmt.Errorf("ensure session: %w", err)
	}

	if snap, ok := s.throttled(s.clock.Now()); ok {
		metrics.ObserveRead(metrics.ReadCached, s.clock.Now().Sub(snap.FetchedAt))
		s.logger.Debug("serving throttled snapshot", zap.Time("fetched_at", snap.FetchedAt))
		return snap, nil
	}

	v, err, shared := s.flight.Do(flightKey, func() (any, error) {
		return s.refresh(ctx, created)
	})
	if err != nil {
		metrics.ObserveRead(metrics.ReadFailed, 0)
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, ok := v.(Snapshot)
	if !ok {
		return Snapshot{}, fmt.Errorf("unexpected flight result %T", v)
	}
	metrics.ObserveRead(metrics.ReadFresh, s.clock.Now().Sub(snap.FetchedAt))
	if shared {
		s.logger.Debug("joined in-flight extraction")
	}
	return snap, nil
}

// Last returns the live snapshot, if any, without touching the page.
func (s *Service) Last() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

func (s *Service) throttled(now time.Time) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil || now.Sub(s.lastFetch) >= s.cfg.ThrottleWindow {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

func (s *Service) sinceLastFetch(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastFetch)
}

func (s *Service) refresh(ctx context.Context, created bool) (Snapshot, error) {
	now := s.clock.Now()
	// A flight that finished while this caller waited may have refilled the cache.
	if snap, ok := s.throttled(now); ok {
		return snap, nil
	}

	outcome := s.maybeReload(ctx, now, created)
	switch {
	case outcome.err != nil:
		// Dropped on purpose: extraction reads whatever DOM the tab still holds.
		s.logger.Warn("page reload failed, extracting from current DOM", zap.Error(outcome.err))
	case outcome.attempted:
		s.logger.Debug("page reloaded")
	}

	page, err := s.renderer.ReadText(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read page text: %w", err)
	}

	found := Extract(page)
	if found.Time == nil {
		metrics.ObserveExtractionFailure()
		s.logger.Warn("extraction found no clock text",
			zap.Int("text_nodes", len(page.TextNodes)),
		)
		return Snapshot{}, ErrExtractionFailed
	}

	snap := Snapshot{
		Time:      *found.Time,
		Location:  found.Location,
		Source:    s.cfg.Source,
		FetchedAt: now,
	}
	s.mu.Lock()
	s.snapshot = &snap
	s.lastFetch = now
	s.mu.Unlock()

	fields := []zap.Field{zap.String("time", snap.Time)}
	if snap.Location != nil {
		fields = append(fields, zap.String("location", *snap.Location))
	}
	s.logger.Info("snapshot refreshed", fields...)
	return snap, nil
}

// maybeReload reloads the page when the last successful fetch is older than the
// refresh window. A session created by the current read has just navigated and
// is not reloaded again.
func (s *Service) maybeReload(ctx context.Context, now time.Time, created bool) reloadOutcome {
	if created || s.sinceLastFetch(now) <= s.cfg.RefreshWindow {
		return reloadOutcome{}
	}
	err := s.renderer.Reload(ctx)
	metrics.ObserveReload(s.cfg.UpstreamURL, err)
	if err != nil {
		if !errors.Is(err, ErrReload) {
			err = fmt.Errorf("%w: %w", ErrReload, err)
		}
		return reloadOutcome{attempted: true, err: err}
	}
	return reloadOutcome{attempted: true}
}
