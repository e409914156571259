package query

import (
	"context"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TODAY STATUS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// TodayStatusQuery asks for a person's record of today.
type TodayStatusQuery struct {
	PersonID shared.PersonID
	Role     shared.Role
}

// TodayStatusDTO is the answer. Without a record it is the empty default:
// not checked in, status not_marked.
type TodayStatusDTO struct {
	PersonID     string         `json:"person_id"`
	Role         string         `json:"role"`
	Date         string         `json:"date"`
	CheckedIn    bool           `json:"checked_in"`
	CheckedOut   bool           `json:"checked_out"`
	Status       string         `json:"status"`
	Arrival      string         `json:"arrival,omitempty"`
	CheckInTime  *string        `json:"check_in_time"`
	CheckOutTime *string        `json:"check_out_time"`
	Attendance   *AttendanceDTO `json:"attendance,omitempty"`
}

// TodayStatusHandler handles TodayStatusQuery.
type TodayStatusHandler struct {
	deps Deps
}

// NewTodayStatusHandler creates a new TodayStatusHandler.
func NewTodayStatusHandler(deps Deps) *TodayStatusHandler {
	return &TodayStatusHandler{deps: deps.withDefaults()}
}

// Handle executes the query.
func (h *TodayStatusHandler) Handle(ctx context.Context, q TodayStatusQuery) (*TodayStatusDTO, error) {
	if q.PersonID.IsEmpty() || q.Role == "" {
		return nil, shared.ErrMissingFields
	}
	if !q.Role.IsValid() {
		return nil, shared.ErrInvalidRole
	}

	loc, err := h.deps.location(ctx, q.PersonID, q.Role)
	if err != nil {
		return nil, err
	}
	key := attendance.NewKey(q.PersonID, q.Role, h.deps.Clock.Now(), loc)

	dto := &TodayStatusDTO{
		PersonID: q.PersonID.String(),
		Role:     q.Role.String(),
		Date:     timeutil.DateKey(key.Date),
		Status:   attendance.StatusNotMarked.String(),
	}

	rec, err := h.deps.Ledger.FindByKey(ctx, key)
	if err != nil {
		if shared.IsNotFound(err) {
			return dto, nil
		}
		return nil, err
	}

	dto.CheckedIn = rec.CheckedIn()
	dto.CheckedOut = rec.CheckedOut()
	dto.Status = rec.Status.String()
	dto.Arrival = string(rec.Arrival)
	dto.CheckInTime = rec.CheckInTime
	dto.CheckOutTime = rec.CheckOutTime
	dto.Attendance = NewAttendanceDTO(rec)
	return dto, nil
}
