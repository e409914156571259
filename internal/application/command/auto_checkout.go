package command

import (
	"context"
	"fmt"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTO CHECKOUT COMMAND
// End-of-day sweep closing every student record of today that has a check-in
// but no checkout. Status and lateness are left untouched.
//
// "Today" is each student's own calendar day. A student whose day already
// rolled past midnight has the academy-day record closed at the last minute
// of that day instead of at a next-day time.
// ══════════════════════════════════════════════════════════════════════════════

// AutoCheckoutCommand has no parameters.
type AutoCheckoutCommand struct{}

// AutoCheckoutResult contains the sweep outcome.
type AutoCheckoutResult struct {
	Count        int
	CheckoutTime string
	CheckoutAt   time.Time
}

// AutoCheckoutHandler handles AutoCheckoutCommand.
type AutoCheckoutHandler struct {
	engine
}

// NewAutoCheckoutHandler creates a new AutoCheckoutHandler.
func NewAutoCheckoutHandler(deps Deps) *AutoCheckoutHandler {
	return &AutoCheckoutHandler{engine: newEngine(deps)}
}

// Handle executes the sweep.
func (h *AutoCheckoutHandler) Handle(ctx context.Context, _ AutoCheckoutCommand) (*AutoCheckoutResult, error) {
	now := h.Clock.Now()
	today := timeutil.Date(now, h.Location)

	// Personal zones sit at most a day either side of the academy zone.
	var open []*attendance.Record
	for _, day := range []time.Time{today.AddDate(0, 0, -1), today, today.AddDate(0, 0, 1)} {
		recs, err := h.Ledger.ListOpen(ctx, shared.RoleStudent, day)
		if err != nil {
			return nil, fmt.Errorf("auto_checkout: list open records: %w", err)
		}
		open = append(open, recs...)
	}

	result := &AutoCheckoutResult{
		CheckoutTime: timeutil.FormatClock(now, h.Location),
		CheckoutAt:   now.UTC(),
	}
	swept := make(map[string]bool, len(open))
	for _, candidate := range open {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		key := candidate.Key()
		if swept[key.String()] {
			continue
		}
		swept[key.String()] = true

		loc := h.Location
		if p, err := h.People.Find(ctx, candidate.PersonID, candidate.Role); err == nil {
			loc = p.Location(h.Location)
		}
		closeAt, ok := sweepTime(candidate.Date, today, now, loc)
		if !ok {
			continue
		}

		var closed bool
		rec, err := h.Ledger.Upsert(ctx, key, func(existing *attendance.Record) (*attendance.Record, bool, error) {
			if existing == nil {
				return nil, false, nil
			}
			closed = existing.CloseOut(closeAt, loc)
			return existing, closed, nil
		})
		if err != nil {
			return result, fmt.Errorf("auto_checkout: close %s: %w", candidate.ID, err)
		}
		if !closed {
			continue
		}
		result.Count++
		h.publish(shared.NewAttendanceCheckedOutEvent(rec.ID, rec.PersonID, rec.Role, *rec.CheckOutTime, true, now))
	}

	h.publish(shared.NewAutoCheckoutSweptEvent(result.Count, result.CheckoutTime, now))
	h.Logger.Info("auto checkout sweep finished",
		logger.Int("count", result.Count),
		logger.String("checkout_time", result.CheckoutTime),
	)
	return result, nil
}

// sweepTime decides when a record dated day is closed by a sweep running at
// now. Records of the owner's current day close at now; the academy-day
// record of an owner already past midnight closes at 11:59 PM of its own day.
func sweepTime(day, academyDay, now time.Time, loc *time.Location) (time.Time, bool) {
	local := timeutil.Date(now, loc)
	switch {
	case day.Equal(local):
		return now, true
	case day.Equal(academyDay) && day.Before(local):
		return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 0, 0, loc), true
	default:
		return time.Time{}, false
	}
}
