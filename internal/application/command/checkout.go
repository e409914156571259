package command

import (
	"context"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK OUT COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CheckOutCommand closes today's record of a student or teacher.
type CheckOutCommand struct {
	PersonID shared.PersonID
	Role     shared.Role
}

// Validate validates the command.
func (c CheckOutCommand) Validate() error {
	if c.PersonID.IsEmpty() {
		return missingFields("CheckOut", "person_id")
	}
	return requireRole("CheckOut", c.Role)
}

// CheckOutResult contains both wall-clock times of the closed record.
type CheckOutResult struct {
	Attendance   *attendance.Record
	CheckInTime  string
	CheckOutTime string
}

// CheckOutHandler handles CheckOutCommand.
type CheckOutHandler struct {
	engine
}

// NewCheckOutHandler creates a new CheckOutHandler.
func NewCheckOutHandler(deps Deps) *CheckOutHandler {
	return &CheckOutHandler{engine: newEngine(deps)}
}

// Handle executes the checkout. A second checkout fails with
// *attendance.AlreadyCheckedOutError carrying the original time.
func (h *CheckOutHandler) Handle(ctx context.Context, cmd CheckOutCommand) (*CheckOutResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	_, loc, err := h.person(ctx, cmd.PersonID, cmd.Role)
	if err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	rec, err := h.checkOut(ctx, attendance.NewKey(cmd.PersonID, cmd.Role, now, loc), loc, now)
	if err != nil {
		return nil, err
	}

	h.Logger.Info("checked out",
		logger.PersonID(cmd.PersonID.String()),
		logger.Role(cmd.Role.String()),
		logger.RecordID(rec.ID),
	)
	return &CheckOutResult{
		Attendance:   rec,
		CheckInTime:  *rec.CheckInTime,
		CheckOutTime: *rec.CheckOutTime,
	}, nil
}

func (e engine) checkOut(ctx context.Context, key attendance.Key, loc *time.Location, now time.Time) (*attendance.Record, error) {
	rec, err := e.Ledger.Upsert(ctx, key, func(existing *attendance.Record) (*attendance.Record, bool, error) {
		if existing == nil {
			return nil, false, shared.ErrNoCheckInFound
		}
		return existing, true, existing.CheckOut(now, loc)
	})
	if err != nil {
		return nil, err
	}
	e.publish(shared.NewAttendanceCheckedOutEvent(rec.ID, rec.PersonID, rec.Role, *rec.CheckOutTime, false, now))
	return rec, nil
}
