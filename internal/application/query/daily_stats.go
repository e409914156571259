package query

import (
	"context"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY STATS QUERY
// Counts of today's ledger by status. A best-effort snapshot; served from a
// short-lived cache when one is configured.
// ══════════════════════════════════════════════════════════════════════════════

// DailyStatsQuery selects the day; zero means today in the academy zone.
type DailyStatsQuery struct {
	Date time.Time
	// SkipCache forces a read from the ledger.
	SkipCache bool
}

// DailyStatsDTO is the aggregate.
type DailyStatsDTO struct {
	Date        string         `json:"date"`
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	CheckedIn   int            `json:"checked_in"`
	CheckedOut  int            `json:"checked_out"`
	GeneratedAt time.Time      `json:"generated_at"`
	Cached      bool           `json:"cached"`
}

// StatsCache stores computed stats per date key.
type StatsCache interface {
	GetDailyStats(ctx context.Context, date string) (*DailyStatsDTO, bool, error)
	SetDailyStats(ctx context.Context, date string, stats *DailyStatsDTO) error
}

// DailyStatsHandler handles DailyStatsQuery.
type DailyStatsHandler struct {
	deps  Deps
	cache StatsCache
}

// NewDailyStatsHandler creates a new DailyStatsHandler. cache may be nil.
func NewDailyStatsHandler(deps Deps, cache StatsCache) *DailyStatsHandler {
	return &DailyStatsHandler{deps: deps.withDefaults(), cache: cache}
}

// Handle executes the query. Cache failures are logged and bypassed.
func (h *DailyStatsHandler) Handle(ctx context.Context, q DailyStatsQuery) (*DailyStatsDTO, error) {
	now := h.deps.Clock.Now()
	day := q.Date
	if day.IsZero() {
		day = timeutil.Date(now, h.deps.Location)
	}
	dateKey := timeutil.DateKey(day)

	if h.cache != nil && !q.SkipCache {
		cached, ok, err := h.cache.GetDailyStats(ctx, dateKey)
		if err != nil {
			h.deps.Logger.Warn("stats cache read failed", logger.Err(err))
		} else if ok {
			cached.Cached = true
			return cached, nil
		}
	}

	counts, err := h.deps.Ledger.CountDay(ctx, day)
	if err != nil {
		return nil, err
	}

	dto := &DailyStatsDTO{
		Date:        dateKey,
		Total:       counts.Total,
		ByStatus:    make(map[string]int, len(attendance.AllStatuses)),
		CheckedIn:   counts.CheckedIn,
		CheckedOut:  counts.CheckedOut,
		GeneratedAt: now.UTC(),
	}
	for _, s := range attendance.AllStatuses {
		dto.ByStatus[s.String()] = counts.ByStatus[s]
	}

	if h.cache != nil {
		if err := h.cache.SetDailyStats(ctx, dateKey, dto); err != nil {
			h.deps.Logger.Warn("stats cache write failed", logger.Err(err))
		}
	}
	return dto, nil
}
