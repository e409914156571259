// Package schedule describes the recurring weekly class slots the ledger is
// reconciled against. Slots are owned by an external system; the only
// mutation this service performs is starting a class.
package schedule

import (
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
)

// SlotID identifies a schedule slot.
type SlotID string

// String returns the string representation.
func (id SlotID) String() string {
	return string(id)
}

// Status is the lifecycle state of a slot.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// IsValid checks if the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Slot is one recurring class between a student and a teacher.
type Slot struct {
	ID        SlotID
	StudentID shared.PersonID
	TeacherID shared.PersonID
	DayOfWeek time.Weekday
	Time      timepolicy.Clock
	Duration  time.Duration
	Status    Status
}

// Involves reports whether the person takes part in the slot in the given role.
func (s *Slot) Involves(personID shared.PersonID, role shared.Role) bool {
	switch role {
	case shared.RoleStudent:
		return s.StudentID == personID
	case shared.RoleTeacher:
		return s.TeacherID == personID
	}
	return false
}

// Start moves a scheduled slot to in_progress. It reports whether the status
// changed; starting a slot that is already in progress is a no-op.
func (s *Slot) Start() (bool, error) {
	switch s.Status {
	case StatusScheduled:
		s.Status = StatusInProgress
		return true, nil
	case StatusInProgress:
		return false, nil
	}
	return false, shared.WrapError("schedule", "Start", shared.ErrStateTransition,
		"slot is "+string(s.Status), shared.ErrSlotTransition)
}

// IsOn reports whether the slot recurs on the given weekday.
func (s *Slot) IsOn(day time.Weekday) bool {
	return s.DayOfWeek == day
}

// Nearest returns the slot whose start time is closest to now, or nil.
func Nearest(slots []*Slot, now timepolicy.Clock) *Slot {
	var best *Slot
	bestDist := timepolicy.MinutesPerDay
	for _, s := range slots {
		d := timepolicy.Delta(s.Time, now)
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}
