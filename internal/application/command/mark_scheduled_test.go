package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

func TestMarkScheduled_WritesExplicitStatusAndStartsClass(t *testing.T) {
	f := newFixture(t)
	h := NewMarkScheduledHandler(f.deps)

	// 10:04 would derive present; the explicit status wins.
	res, err := h.Handle(context.Background(), MarkScheduledCommand{
		ScheduleRef: "slot-mon-10",
		PersonID:    "stu-1",
		Status:      attendance.StatusLate,
	})
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusLate, res.Attendance.Status)
	assert.Equal(t, shared.RoleStudent, res.Attendance.Role)
	assert.Equal(t, "slot-mon-10", *res.Attendance.ScheduleRef)
	assert.Equal(t, schedule.StatusInProgress, res.Schedule.Status)
	assert.True(t, res.ClassStarted)
}

func TestMarkScheduled_AbsentLeavesSlotScheduled(t *testing.T) {
	f := newFixture(t)
	res, err := NewMarkScheduledHandler(f.deps).Handle(context.Background(), MarkScheduledCommand{
		ScheduleRef: "slot-mon-15",
		PersonID:    "stu-2",
		Status:      attendance.StatusAbsent,
	})
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusAbsent, res.Attendance.Status)
	assert.Nil(t, res.Attendance.CheckInTime)
	assert.Equal(t, schedule.StatusScheduled, res.Schedule.Status)
}

func TestMarkScheduled_Failures(t *testing.T) {
	f := newFixture(t)
	h := NewMarkScheduledHandler(f.deps)
	ctx := context.Background()

	_, err := h.Handle(ctx, MarkScheduledCommand{PersonID: "stu-1"})
	assert.ErrorIs(t, err, shared.ErrMissingFields)
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, MarkScheduledCommand{ScheduleRef: "missing", PersonID: "stu-1", Status: attendance.StatusPresent})
	assert.ErrorIs(t, err, shared.ErrScheduleNotFound)

	_, err = h.Handle(ctx, MarkScheduledCommand{ScheduleRef: "slot-tue-10", PersonID: "stu-1", Status: attendance.StatusPresent})
	assert.ErrorIs(t, err, shared.ErrWrongDay)
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(ctx, MarkScheduledCommand{ScheduleRef: "slot-mon-10", PersonID: "stu-2", Status: attendance.StatusPresent})
	assert.ErrorIs(t, err, shared.ErrScheduleNotFound)

	_, err = h.Handle(ctx, MarkScheduledCommand{ScheduleRef: "slot-mon-10", PersonID: "stu-1", Status: "sick"})
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)

	assert.Equal(t, 0, f.ledger.Len())
}

func TestMarkScheduled_TeacherRoleDerivedFromSlot(t *testing.T) {
	f := newFixture(t)
	res, err := NewMarkScheduledHandler(f.deps).Handle(context.Background(), MarkScheduledCommand{
		ScheduleRef: "slot-mon-15",
		PersonID:    "tea-1",
		Status:      attendance.StatusPresent,
	})
	require.NoError(t, err)
	assert.Equal(t, shared.RoleTeacher, res.Attendance.Role)
	assert.Equal(t, schedule.StatusInProgress, res.Schedule.Status)
}
