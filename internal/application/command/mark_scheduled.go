package command

import (
	"context"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK SCHEDULED ATTENDANCE COMMAND
// Stricter variant of MarkAttendance: the slot is mandatory, must recur today
// and the status is always explicit.
// ══════════════════════════════════════════════════════════════════════════════

// MarkScheduledCommand contains the data to mark attendance for one class.
type MarkScheduledCommand struct {
	ScheduleRef string
	PersonID    shared.PersonID
	// Role is optional; it is derived from the slot when empty.
	Role   shared.Role
	Status attendance.Status
}

// Validate validates the command.
func (c MarkScheduledCommand) Validate() error {
	var missing []string
	if c.ScheduleRef == "" {
		missing = append(missing, "schedule_ref")
	}
	if c.PersonID.IsEmpty() {
		missing = append(missing, "person_id")
	}
	if c.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return missingFields("MarkScheduled", missing...)
	}
	if c.Role != "" && !c.Role.IsValid() {
		return shared.ErrInvalidRole
	}
	if !c.Status.IsValid() || c.Status == attendance.StatusNotMarked {
		return shared.ErrInvalidStatus
	}
	return nil
}

// MarkScheduledResult contains the marked record and the slot after any transition.
type MarkScheduledResult struct {
	Attendance   *attendance.Record
	Schedule     *schedule.Slot
	ClassStarted bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MarkScheduledHandler handles MarkScheduledCommand.
type MarkScheduledHandler struct {
	engine
}

// NewMarkScheduledHandler creates a new MarkScheduledHandler.
func NewMarkScheduledHandler(deps Deps) *MarkScheduledHandler {
	return &MarkScheduledHandler{engine: newEngine(deps)}
}

// Handle executes the mark scheduled attendance command.
func (h *MarkScheduledHandler) Handle(ctx context.Context, cmd MarkScheduledCommand) (*MarkScheduledResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	slot, err := h.Schedules.FindByID(ctx, schedule.SlotID(cmd.ScheduleRef))
	if err != nil {
		return nil, err
	}

	role := cmd.Role
	if role == "" {
		switch cmd.PersonID {
		case slot.StudentID:
			role = shared.RoleStudent
		case slot.TeacherID:
			role = shared.RoleTeacher
		}
	}
	if role == "" || !slot.Involves(cmd.PersonID, role) {
		return nil, shared.WrapError("schedule", "MarkScheduled", shared.ErrNotFound,
			"slot "+cmd.ScheduleRef+" does not involve "+cmd.PersonID.String(), shared.ErrScheduleNotFound)
	}

	_, loc, err := h.person(ctx, cmd.PersonID, role)
	if err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	if today := timeutil.Weekday(now, loc); !slot.IsOn(today) {
		return nil, shared.WrapError("schedule", "MarkScheduled", shared.ErrValidation,
			"slot is on "+slot.DayOfWeek.String()+", today is "+today.String(), shared.ErrWrongDay)
	}

	key := attendance.NewKey(cmd.PersonID, role, now, loc)
	var changed bool
	rec, err := h.Ledger.Upsert(ctx, key, func(existing *attendance.Record) (*attendance.Record, bool, error) {
		rec := h.newRecord(existing, key, now)
		rec.AttachSchedule(snapshotOf(slot))
		c, err := rec.Override(cmd.Status, now, loc)
		changed = c || existing == nil
		return rec, changed, err
	})
	if err != nil {
		return nil, err
	}

	result := &MarkScheduledResult{Attendance: rec, Schedule: slot}
	if cmd.Status.IsAttending() {
		result.ClassStarted = h.startClass(ctx, slot, now)
	}
	if changed {
		h.publishMarked(rec, true, now)
	}

	h.Logger.Info("scheduled attendance marked",
		logger.PersonID(cmd.PersonID.String()),
		logger.Role(role.String()),
		logger.ScheduleRef(cmd.ScheduleRef),
		logger.String("status", rec.Status.String()),
	)
	return result, nil
}
