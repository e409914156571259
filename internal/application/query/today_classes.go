package query

import (
	"context"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TODAY CLASSES QUERY
// A teacher's slots of today, each with the linked student's attendance.
// ══════════════════════════════════════════════════════════════════════════════

// TodayClassesQuery names the teacher.
type TodayClassesQuery struct {
	TeacherID shared.PersonID
}

// ClassDTO is one slot with the student's status.
type ClassDTO struct {
	ScheduleRef      string  `json:"schedule_ref"`
	StudentID        string  `json:"student_id"`
	StudentName      string  `json:"student_name,omitempty"`
	Time             string  `json:"time"`
	DurationMinutes  int     `json:"duration_minutes"`
	ScheduleStatus   string  `json:"schedule_status"`
	AttendanceStatus string  `json:"attendance_status"`
	CheckInTime      *string `json:"check_in_time"`
	CheckOutTime     *string `json:"check_out_time"`
}

// TodayClassesDTO lists today's classes in time order.
type TodayClassesDTO struct {
	TeacherID string     `json:"teacher_id"`
	Date      string     `json:"date"`
	Day       string     `json:"day"`
	Classes   []ClassDTO `json:"classes"`
}

// TodayClassesHandler handles TodayClassesQuery.
type TodayClassesHandler struct {
	deps Deps
}

// NewTodayClassesHandler creates a new TodayClassesHandler.
func NewTodayClassesHandler(deps Deps) *TodayClassesHandler {
	return &TodayClassesHandler{deps: deps.withDefaults()}
}

// Handle executes the query.
func (h *TodayClassesHandler) Handle(ctx context.Context, q TodayClassesQuery) (*TodayClassesDTO, error) {
	if q.TeacherID.IsEmpty() {
		return nil, shared.ErrMissingFields
	}

	loc, err := h.deps.location(ctx, q.TeacherID, shared.RoleTeacher)
	if err != nil {
		return nil, err
	}
	now := h.deps.Clock.Now()
	day := timeutil.Weekday(now, loc)

	slots, err := h.deps.Schedules.FindForTeacher(ctx, q.TeacherID, day)
	if err != nil {
		return nil, err
	}

	out := &TodayClassesDTO{
		TeacherID: q.TeacherID.String(),
		Date:      timeutil.DateKey(timeutil.Date(now, loc)),
		Day:       day.String(),
		Classes:   make([]ClassDTO, 0, len(slots)),
	}
	for _, slot := range slots {
		class := ClassDTO{
			ScheduleRef:      slot.ID.String(),
			StudentID:        slot.StudentID.String(),
			Time:             slot.Time.String(),
			DurationMinutes:  int(slot.Duration / time.Minute),
			ScheduleStatus:   string(slot.Status),
			AttendanceStatus: attendance.StatusNotMarked.String(),
		}

		studentLoc := loc
		if p, err := h.deps.People.Find(ctx, slot.StudentID, shared.RoleStudent); err == nil {
			class.StudentName = p.Name
			studentLoc = p.Location(h.deps.Location)
		}
		rec, err := h.deps.Ledger.FindByKey(ctx, attendance.NewKey(slot.StudentID, shared.RoleStudent, now, studentLoc))
		switch {
		case err == nil:
			class.AttendanceStatus = rec.Status.String()
			class.CheckInTime = rec.CheckInTime
			class.CheckOutTime = rec.CheckOutTime
		case !shared.IsNotFound(err):
			return nil, err
		}
		out.Classes = append(out.Classes, class)
	}
	return out, nil
}
