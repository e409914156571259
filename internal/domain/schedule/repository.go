package schedule

import (
	"context"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

// Directory is the read interface to the external schedule, plus the single
// status transition the attendance engine is allowed to perform.
type Directory interface {
	// FindByID returns a slot, or shared.ErrScheduleNotFound.
	FindByID(ctx context.Context, id SlotID) (*Slot, error)

	// FindForPerson returns the person's slots recurring on day, ordered by time.
	FindForPerson(ctx context.Context, personID shared.PersonID, role shared.Role, day time.Weekday) ([]*Slot, error)

	// FindForTeacher returns the teacher's slots recurring on day, ordered by time.
	FindForTeacher(ctx context.Context, teacherID shared.PersonID, day time.Weekday) ([]*Slot, error)

	// UpdateStatus persists a slot status change.
	UpdateStatus(ctx context.Context, id SlotID, status Status) error
}
