// Package attendance contains the attendance ledger: one record per person
// per calendar day, and the state machine that governs it.
// This is a pure domain layer with zero external dependencies.
//
// Transitions:
//
//	not_marked           -> present | late      (check-in, derived from the class time)
//	present | late       -> checked out         (checkout; status becomes present)
//	not_marked | present | late -> absent | excused (admin override)
//	absent | excused     terminal for check-in and checkout; override may still move them
package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// STATUS
// ═══════════════════════════════════════════════════════════════════════════

// Status is the daily attendance outcome.
type Status string

const (
	StatusNotMarked Status = "not_marked"
	StatusPresent   Status = "present"
	StatusLate      Status = "late"
	StatusAbsent    Status = "absent"
	StatusExcused   Status = "excused"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusNotMarked, StatusPresent, StatusLate, StatusAbsent, StatusExcused}

// ParseStatus parses a status string, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.WrapError("attendance", "ParseStatus", shared.ErrInvalidInput,
			fmt.Sprintf("unknown status %q", s), shared.ErrInvalidStatus)
	}
	return st, nil
}

// IsValid checks if the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotMarked, StatusPresent, StatusLate, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

// IsTerminal reports whether check-in and checkout are closed for the day.
func (s Status) IsTerminal() bool {
	return s == StatusAbsent || s == StatusExcused
}

// IsAttending reports whether the status counts as having shown up.
func (s Status) IsAttending() bool {
	return s == StatusPresent || s == StatusLate
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// ═══════════════════════════════════════════════════════════════════════════
// KEY
// ═══════════════════════════════════════════════════════════════════════════

// Key identifies the single canonical record of a person on a day.
type Key struct {
	PersonID shared.PersonID
	Role     shared.Role
	Date     time.Time // UTC midnight of the local calendar day
}

// NewKey builds the key for the day containing at, as observed in loc.
func NewKey(personID shared.PersonID, role shared.Role, at time.Time, loc *time.Location) Key {
	return Key{PersonID: personID, Role: role, Date: timeutil.Date(at, loc)}
}

// String renders the key as "role:person:YYYY-MM-DD".
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Role, k.PersonID, timeutil.DateKey(k.Date))
}

// ═══════════════════════════════════════════════════════════════════════════
// SCHEDULE SNAPSHOT
// ═══════════════════════════════════════════════════════════════════════════

// ScheduleSnapshot is the denormalized copy of the class slot a record was
// matched against. It survives later edits of the slot itself.
type ScheduleSnapshot struct {
	Ref      string // empty when only a class time was supplied
	Time     timepolicy.Clock
	Day      time.Weekday
	Duration time.Duration
}

// ═══════════════════════════════════════════════════════════════════════════
// RECORD
// ═══════════════════════════════════════════════════════════════════════════

// Record is one person's attendance on one day.
type Record struct {
	ID       string
	PersonID shared.PersonID
	Role     shared.Role
	Date     time.Time

	ScheduleRef   *string
	ScheduledTime *timepolicy.Clock
	ScheduledDay  *time.Weekday
	Duration      time.Duration

	Status  Status
	Arrival timepolicy.Arrival
	LateBy  time.Duration

	// Wall-clock strings in the person's zone ("hh:mm AM") and the matching UTC instants.
	CheckInTime  *string
	CheckOutTime *string
	CheckInAt    *time.Time
	CheckOutAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Seq is the ledger insertion order. Assigned by the store.
	Seq int64
}

// NewRecord creates an unmarked record for key.
func NewRecord(id string, key Key, now time.Time) *Record {
	return &Record{
		ID:        id,
		PersonID:  key.PersonID,
		Role:      key.Role,
		Date:      key.Date,
		Status:    StatusNotMarked,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// Key returns the record's identity key.
func (r *Record) Key() Key {
	return Key{PersonID: r.PersonID, Role: r.Role, Date: r.Date}
}

// CheckedIn reports whether a check-in time is recorded.
func (r *Record) CheckedIn() bool {
	return r.CheckInTime != nil
}

// CheckedOut reports whether a checkout time is recorded.
func (r *Record) CheckedOut() bool {
	return r.CheckOutTime != nil
}

// AttachSchedule copies the slot onto the record. It only fills an empty
// link so the schedule seen at first check-in is kept for history.
func (r *Record) AttachSchedule(s *ScheduleSnapshot) {
	if s == nil || r.ScheduledTime != nil {
		return
	}
	if s.Ref != "" {
		ref := s.Ref
		r.ScheduleRef = &ref
	}
	t, d := s.Time, s.Day
	r.ScheduledTime = &t
	r.ScheduledDay = &d
	r.Duration = s.Duration
}

// CheckIn records the first arrival of the day. Status is derived from the
// attached class time: present when on time or when no class is attached,
// late otherwise. A second check-in is a no-op and reports changed=false.
func (r *Record) CheckIn(at time.Time, loc *time.Location, policy timepolicy.Policy) (bool, error) {
	if r.Status.IsTerminal() {
		return false, shared.WrapError("attendance", "CheckIn", shared.ErrStateTransition,
			"record is "+r.Status.String(), shared.ErrAttendanceFinalized)
	}
	if r.CheckedIn() {
		return false, nil
	}

	r.stampCheckIn(at, loc)
	r.Arrival, r.LateBy = timepolicy.ArrivalOnTime, 0
	if r.ScheduledTime != nil {
		r.Arrival, r.LateBy = policy.Evaluate(*r.ScheduledTime, timepolicy.ClockOf(at.In(loc)))
	}
	r.Status = StatusPresent
	if r.Arrival == timepolicy.ArrivalLate {
		r.Status = StatusLate
	}
	r.UpdatedAt = at.UTC()
	return true, nil
}

// CheckOut closes the day. The status becomes present; the arrival
// classification and delay recorded at check-in are kept as they were.
func (r *Record) CheckOut(at time.Time, loc *time.Location) error {
	if !r.CheckedIn() {
		return shared.ErrNoCheckInFound
	}
	if r.CheckedOut() {
		return &AlreadyCheckedOutError{CheckOutTime: *r.CheckOutTime}
	}
	if r.Status.IsTerminal() {
		return shared.WrapError("attendance", "CheckOut", shared.ErrStateTransition,
			"record is "+r.Status.String(), shared.ErrAttendanceFinalized)
	}

	r.stampCheckOut(at, loc)
	r.Status = StatusPresent
	r.UpdatedAt = at.UTC()
	return nil
}

// Override sets an explicit status. Absent and excused need no check-in;
// present and late stamp the check-in time when it is missing.
func (r *Record) Override(status Status, at time.Time, loc *time.Location) (bool, error) {
	if !status.IsValid() || status == StatusNotMarked {
		return false, shared.WrapError("attendance", "Override", shared.ErrInvalidInput,
			"cannot override to "+status.String(), shared.ErrInvalidStatus)
	}

	changed := r.Status != status
	r.Status = status

	if status.IsAttending() {
		if !r.CheckedIn() {
			r.stampCheckIn(at, loc)
			changed = true
		}
		arrival := timepolicy.ArrivalOnTime
		if status == StatusLate {
			arrival = timepolicy.ArrivalLate
		}
		if r.Arrival != arrival {
			r.Arrival = arrival
			changed = true
		}
		r.LateBy = 0
		if status == StatusLate && r.ScheduledTime != nil && r.CheckInAt != nil {
			r.LateBy = timepolicy.LateBy(*r.ScheduledTime, timepolicy.ClockOf(r.CheckInAt.In(loc)))
		}
	}

	if changed {
		r.UpdatedAt = at.UTC()
	}
	return changed, nil
}

// CloseOut is the end-of-day sweep: it stamps a checkout on an open record
// without touching status. Reports whether anything changed.
func (r *Record) CloseOut(at time.Time, loc *time.Location) bool {
	if !r.CheckedIn() || r.CheckedOut() {
		return false
	}
	r.stampCheckOut(at, loc)
	r.UpdatedAt = at.UTC()
	return true
}

func (r *Record) stampCheckIn(at time.Time, loc *time.Location) {
	wall := timeutil.FormatClock(at, loc)
	utc := at.UTC()
	r.CheckInTime, r.CheckInAt = &wall, &utc
}

func (r *Record) stampCheckOut(at time.Time, loc *time.Location) {
	wall := timeutil.FormatClock(at, loc)
	utc := at.UTC()
	r.CheckOutTime, r.CheckOutAt = &wall, &utc
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.ScheduleRef = clonePtr(r.ScheduleRef)
	c.ScheduledTime = clonePtr(r.ScheduledTime)
	c.ScheduledDay = clonePtr(r.ScheduledDay)
	c.CheckInTime = clonePtr(r.CheckInTime)
	c.CheckOutTime = clonePtr(r.CheckOutTime)
	c.CheckInAt = clonePtr(r.CheckInAt)
	c.CheckOutAt = clonePtr(r.CheckOutAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ═══════════════════════════════════════════════════════════════════════════
// ERRORS
// ═══════════════════════════════════════════════════════════════════════════

// AlreadyCheckedOutError carries the checkout time already on the record so
// callers can reconcile idempotently.
type AlreadyCheckedOutError struct {
	CheckOutTime string
}

func (e *AlreadyCheckedOutError) Error() string {
	return fmt.Sprintf("%s (at %s)", shared.ErrAlreadyCheckedOut.Error(), e.CheckOutTime)
}

func (e *AlreadyCheckedOutError) Unwrap() error {
	return shared.ErrAlreadyCheckedOut
}

// ═══════════════════════════════════════════════════════════════════════════
// MERGE
// ═══════════════════════════════════════════════════════════════════════════

// Merge folds duplicate records of one person and day into the first of them.
// group must be in insertion order. Walking left to right, the first non-empty
// check-in and the first non-empty checkout win; the survivor's status becomes
// present. It returns the survivor and the records to delete.
func Merge(group []*Record, now time.Time) (*Record, []*Record) {
	if len(group) == 0 {
		return nil, nil
	}
	survivor := group[0]
	for _, dup := range group[1:] {
		if survivor.CheckInTime == nil && dup.CheckInTime != nil {
			survivor.CheckInTime = clonePtr(dup.CheckInTime)
			survivor.CheckInAt = clonePtr(dup.CheckInAt)
			survivor.Arrival = dup.Arrival
			survivor.LateBy = dup.LateBy
		}
		if survivor.CheckOutTime == nil && dup.CheckOutTime != nil {
			survivor.CheckOutTime = clonePtr(dup.CheckOutTime)
			survivor.CheckOutAt = clonePtr(dup.CheckOutAt)
		}
		if survivor.ScheduledTime == nil && dup.ScheduledTime != nil {
			survivor.ScheduleRef = clonePtr(dup.ScheduleRef)
			survivor.ScheduledTime = clonePtr(dup.ScheduledTime)
			survivor.ScheduledDay = clonePtr(dup.ScheduledDay)
			survivor.Duration = dup.Duration
		}
	}
	survivor.Status = StatusPresent
	survivor.UpdatedAt = now.UTC()
	return survivor, group[1:]
}
