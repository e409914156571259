// Package query contains read operations (CQRS - Queries) over the
// attendance ledger. Reads are not isolated from concurrent writes.
package query

import (
	"context"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// Deps wires the query handlers to their ports.
type Deps struct {
	Ledger    attendance.Ledger
	Schedules schedule.Directory
	People    directory.Directory
	Clock     timeutil.Clock
	Location  *time.Location
	Logger    *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

// location returns the person's zone, falling back to the academy zone when
// the person is unknown.
func (d Deps) location(ctx context.Context, id shared.PersonID, role shared.Role) (*time.Location, error) {
	p, err := d.People.Find(ctx, id, role)
	if err != nil {
		if shared.IsNotFound(err) {
			return d.Location, nil
		}
		return nil, err
	}
	return p.Location(d.Location), nil
}

// AttendanceDTO is the JSON shape of a ledger record.
type AttendanceDTO struct {
	ID            string  `json:"id"`
	PersonID      string  `json:"person_id"`
	Role          string  `json:"role"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	Arrival       string  `json:"arrival,omitempty"`
	LateByMinutes int     `json:"late_by_minutes,omitempty"`
	ScheduleRef   *string `json:"schedule_ref,omitempty"`
	ScheduledTime *string `json:"scheduled_time,omitempty"`
	ScheduledDay  *string `json:"scheduled_day,omitempty"`
	DurationMin   int     `json:"duration_minutes,omitempty"`
	CheckInTime   *string `json:"check_in_time"`
	CheckOutTime  *string `json:"check_out_time"`
	CheckedIn     bool    `json:"checked_in"`
	CheckedOut    bool    `json:"checked_out"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// NewAttendanceDTO converts a record for transport.
func NewAttendanceDTO(r *attendance.Record) *AttendanceDTO {
	if r == nil {
		return nil
	}
	dto := &AttendanceDTO{
		ID:            r.ID,
		PersonID:      r.PersonID.String(),
		Role:          r.Role.String(),
		Date:          timeutil.DateKey(r.Date),
		Status:        r.Status.String(),
		Arrival:       string(r.Arrival),
		LateByMinutes: int(r.LateBy / time.Minute),
		ScheduleRef:   r.ScheduleRef,
		DurationMin:   int(r.Duration / time.Minute),
		CheckInTime:   r.CheckInTime,
		CheckOutTime:  r.CheckOutTime,
		CheckedIn:     r.CheckedIn(),
		CheckedOut:    r.CheckedOut(),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
	if r.ScheduledTime != nil {
		s := r.ScheduledTime.String()
		dto.ScheduledTime = &s
	}
	if r.ScheduledDay != nil {
		s := r.ScheduledDay.String()
		dto.ScheduledDay = &s
	}
	return dto
}
