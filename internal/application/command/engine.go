// Package command contains write operations (CQRS - Commands) of the
// attendance reconciliation engine.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
	"github.com/academy-hub/attendance-hub/pkg/logger"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// Collaborators shared by every attendance command handler.
// ══════════════════════════════════════════════════════════════════════════════

// Deps wires the engine to its ports.
type Deps struct {
	Ledger    attendance.Ledger
	Schedules schedule.Directory
	People    directory.Directory
	Publisher shared.EventPublisher
	Clock     timeutil.Clock
	Policy    timepolicy.Policy
	// Location is the academy timezone, used when a person has none.
	Location *time.Location
	Logger   *logger.Logger
	NewID    func() string
}

type engine struct {
	Deps
}

func newEngine(d Deps) engine {
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return engine{Deps: d}
}

// person looks up the subject of a command and its timezone.
func (e engine) person(ctx context.Context, id shared.PersonID, role shared.Role) (*directory.Person, *time.Location, error) {
	p, err := e.People.Find(ctx, id, role)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Location(e.Location), nil
}

// resolveSlot picks the class a mark refers to: the slot named by ref, else
// today's slot of the person closest to now, else the bare class time when
// one was given. A nil snapshot means the mark is not tied to a class.
func (e engine) resolveSlot(ctx context.Context, personID shared.PersonID, role shared.Role, ref, classTime string, now time.Time, loc *time.Location) (*schedule.Slot, *attendance.ScheduleSnapshot, error) {
	if ref != "" {
		slot, err := e.Schedules.FindByID(ctx, schedule.SlotID(ref))
		if err != nil {
			return nil, nil, err
		}
		if !slot.Involves(personID, role) {
			return nil, nil, shared.WrapError("schedule", "Resolve", shared.ErrNotFound,
				fmt.Sprintf("slot %s does not involve %s %s", ref, role, personID), shared.ErrScheduleNotFound)
		}
		return slot, snapshotOf(slot), nil
	}

	today := timeutil.Weekday(now, loc)
	slots, err := e.Schedules.FindForPerson(ctx, personID, role, today)
	if err != nil {
		return nil, nil, err
	}
	if slot := schedule.Nearest(slots, timepolicy.ClockOf(now.In(loc))); slot != nil {
		return slot, snapshotOf(slot), nil
	}

	if classTime != "" {
		c, err := timepolicy.ParseClock(classTime)
		if err != nil {
			return nil, nil, err
		}
		return nil, &attendance.ScheduleSnapshot{Time: c, Day: today}, nil
	}
	return nil, nil, nil
}

func snapshotOf(slot *schedule.Slot) *attendance.ScheduleSnapshot {
	return &attendance.ScheduleSnapshot{
		Ref:      slot.ID.String(),
		Time:     slot.Time,
		Day:      slot.DayOfWeek,
		Duration: slot.Duration,
	}
}

// startClass moves the slot to in_progress. Failures are logged, not
// returned: the attendance mark has already been committed.
func (e engine) startClass(ctx context.Context, slot *schedule.Slot, now time.Time) bool {
	if slot == nil || slot.Status != schedule.StatusScheduled {
		return false
	}
	changed, err := slot.Start()
	if err == nil && changed {
		err = e.Schedules.UpdateStatus(ctx, slot.ID, slot.Status)
	}
	if err != nil {
		e.Logger.Warn("failed to start class",
			logger.ScheduleRef(slot.ID.String()),
			logger.Err(err),
		)
		return false
	}
	e.publish(shared.NewClassStartedEvent(slot.ID.String(), slot.TeacherID, slot.StudentID, now))
	return true
}

func (e engine) publish(event shared.Event) {
	if err := e.Publisher.Publish(event); err != nil {
		e.Logger.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}

func (e engine) publishMarked(rec *attendance.Record, explicit bool, now time.Time) {
	e.publish(shared.NewAttendanceMarkedEvent(rec.ID, rec.PersonID, rec.Role,
		timeutil.DateKey(rec.Date), rec.Status.String(), explicit, now))
}

func (e engine) newRecord(existing *attendance.Record, key attendance.Key, now time.Time) *attendance.Record {
	if existing != nil {
		return existing
	}
	return attendance.NewRecord(e.NewID(), key, now)
}

// missingFields reports the named required fields as a validation error.
func missingFields(op string, fields ...string) error {
	return shared.WrapError("attendance", op, shared.ErrValidation,
		fmt.Sprintf("missing required fields: %v", fields), shared.ErrMissingFields)
}

// requireRole checks a role value, reporting an empty one as missing.
func requireRole(op string, role shared.Role) error {
	if role == "" {
		return missingFields(op, "role")
	}
	if !role.IsValid() {
		return shared.ErrInvalidRole
	}
	return nil
}
