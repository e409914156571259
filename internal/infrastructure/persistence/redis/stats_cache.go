package redis

import (
	"context"
	"errors"
	"time"

	"github.com/academy-hub/attendance-hub/internal/application/query"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/circuitbreaker"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// StatsCache caches daily stats snapshots for a few seconds. Ledger events
// drop the snapshot of the affected day.
type StatsCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewStatsCache creates a stats cache. ttl defaults to TTLDailyStats.
// breaker may be nil; while it is open reads miss and writes are dropped.
func NewStatsCache(cache *Cache, ttl time.Duration, breaker *circuitbreaker.CircuitBreaker) *StatsCache {
	if ttl <= 0 {
		ttl = TTLDailyStats
	}
	return &StatsCache{cache: cache, ttl: ttl, breaker: breaker}
}

func (s *StatsCache) do(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	err := s.breaker.Execute(ctx, fn)
	if circuitbreaker.IsRejected(err) {
		return nil
	}
	return err
}

var _ query.StatsCache = (*StatsCache)(nil)

func (s *StatsCache) key(date string) string {
	return s.cache.Key(PrefixStats, date)
}

// GetDailyStats implements query.StatsCache.
func (s *StatsCache) GetDailyStats(ctx context.Context, date string) (*query.DailyStatsDTO, bool, error) {
	var (
		dto   query.DailyStatsDTO
		found bool
	)
	err := s.do(ctx, func(ctx context.Context) error {
		err := s.cache.Get(ctx, s.key(date), &dto)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &dto, true, nil
}

// SetDailyStats implements query.StatsCache.
func (s *StatsCache) SetDailyStats(ctx context.Context, date string, stats *query.DailyStatsDTO) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.cache.Set(ctx, s.key(date), stats, s.ttl)
	})
}

// Invalidate drops the snapshot of date.
func (s *StatsCache) Invalidate(ctx context.Context, date string) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.cache.Delete(ctx, s.key(date))
	})
}

// OnEvent is an event bus handler dropping the snapshot a ledger event touched.
func (s *StatsCache) OnEvent(event shared.Event) error {
	date := timeutil.DateKey(event.OccurredAt().UTC())
	if marked, ok := event.(shared.AttendanceMarkedEvent); ok {
		date = marked.Date
	}
	return s.Invalidate(context.Background(), date)
}
