package command

import (
	"context"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK ATTENDANCE COMMAND
// A check-in derives the status from the class time; an explicit mark is an
// admin override. The two are separate variants of MarkCommand.
// ══════════════════════════════════════════════════════════════════════════════

// MarkCommand is either a CheckInMark or an ExplicitMark.
type MarkCommand interface {
	Subject() (shared.PersonID, shared.Role)
	Validate() error
	markCommand()
}

// CheckInMark records an arrival whose status is derived from the schedule.
type CheckInMark struct {
	PersonID shared.PersonID
	Role     shared.Role

	// ScheduleRef pins the mark to a slot. When empty, today's slot closest
	// to now is used.
	ScheduleRef string

	// ClassTime ("hh:mm AM") is used when no slot can be found.
	ClassTime string
}

// ExplicitMark sets a status directly.
type ExplicitMark struct {
	PersonID    shared.PersonID
	Role        shared.Role
	Status      attendance.Status
	ScheduleRef string
}

func (CheckInMark) markCommand()  {}
func (ExplicitMark) markCommand() {}

// Subject implements MarkCommand.
func (c CheckInMark) Subject() (shared.PersonID, shared.Role) { return c.PersonID, c.Role }

// Subject implements MarkCommand.
func (c ExplicitMark) Subject() (shared.PersonID, shared.Role) { return c.PersonID, c.Role }

// Validate validates the command.
func (c CheckInMark) Validate() error {
	if c.PersonID.IsEmpty() {
		return missingFields("MarkAttendance", "person_id")
	}
	return requireRole("MarkAttendance", c.Role)
}

// Validate validates the command.
func (c ExplicitMark) Validate() error {
	if c.PersonID.IsEmpty() || c.Status == "" {
		return missingFields("MarkAttendance", "person_id", "status")
	}
	if err := requireRole("MarkAttendance", c.Role); err != nil {
		return err
	}
	if !c.Status.IsValid() || c.Status == attendance.StatusNotMarked {
		return shared.ErrInvalidStatus
	}
	return nil
}

// MarkResult contains the result of a mark.
type MarkResult struct {
	Attendance   *attendance.Record
	Created      bool
	Changed      bool
	Slot         *schedule.Slot
	ClassStarted bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MarkAttendanceHandler handles MarkCommand.
type MarkAttendanceHandler struct {
	engine
}

// NewMarkAttendanceHandler creates a new MarkAttendanceHandler.
func NewMarkAttendanceHandler(deps Deps) *MarkAttendanceHandler {
	return &MarkAttendanceHandler{engine: newEngine(deps)}
}

// Handle executes the mark attendance command.
func (h *MarkAttendanceHandler) Handle(ctx context.Context, cmd MarkCommand) (*MarkResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	personID, role := cmd.Subject()
	_, loc, err := h.person(ctx, personID, role)
	if err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	var ref, classTime string
	switch c := cmd.(type) {
	case CheckInMark:
		ref, classTime = c.ScheduleRef, c.ClassTime
	case ExplicitMark:
		ref = c.ScheduleRef
	}
	slot, snapshot, err := h.resolveSlot(ctx, personID, role, ref, classTime, now, loc)
	if err != nil {
		return nil, err
	}

	key := attendance.NewKey(personID, role, now, loc)
	result := &MarkResult{Slot: slot}

	rec, err := h.Ledger.Upsert(ctx, key, func(existing *attendance.Record) (*attendance.Record, bool, error) {
		rec := h.newRecord(existing, key, now)
		result.Created = existing == nil
		rec.AttachSchedule(snapshot)

		var err error
		switch c := cmd.(type) {
		case CheckInMark:
			result.Changed, err = rec.CheckIn(now, loc, h.Policy)
		case ExplicitMark:
			result.Changed, err = rec.Override(c.Status, now, loc)
		}
		result.Changed = result.Changed || result.Created
		return rec, result.Changed, err
	})
	if err != nil {
		return nil, err
	}
	result.Attendance = rec

	if role == shared.RoleTeacher && rec.Status.IsAttending() {
		result.ClassStarted = h.startClass(ctx, slot, now)
	}

	if result.Changed {
		_, explicit := cmd.(ExplicitMark)
		h.publishMarked(rec, explicit, now)
	}

	h.Logger.Info("attendance marked",
		logger.PersonID(personID.String()),
		logger.Role(role.String()),
		logger.RecordID(rec.ID),
		logger.String("status", rec.Status.String()),
		logger.Bool("changed", result.Changed),
	)
	return result, nil
}
