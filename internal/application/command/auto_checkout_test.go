package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

func TestAutoCheckout_ClosesOpenStudentRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mark := NewMarkAttendanceHandler(f.deps)

	f.clock.Set(monday(10, 30))
	_, err := mark.Handle(ctx, CheckInMark{PersonID: "stu-1", Role: shared.RoleStudent})
	require.NoError(t, err)
	_, err = mark.Handle(ctx, CheckInMark{PersonID: "stu-2", Role: shared.RoleStudent})
	require.NoError(t, err)
	_, err = mark.Handle(ctx, CheckInMark{PersonID: "tea-1", Role: shared.RoleTeacher})
	require.NoError(t, err)

	f.clock.Set(monday(12, 0))
	_, err = NewCheckOutHandler(f.deps).Handle(ctx, CheckOutCommand{PersonID: "stu-2", Role: shared.RoleStudent})
	require.NoError(t, err)

	f.clock.Set(monday(21, 0))
	res, err := NewAutoCheckoutHandler(f.deps).Handle(ctx, AutoCheckoutCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "09:00 PM", res.CheckoutTime)

	stu1, err := f.ledger.FindByKey(ctx, attendance.NewKey("stu-1", shared.RoleStudent, monday(21, 0), f.deps.Location))
	require.NoError(t, err)
	assert.Equal(t, "09:00 PM", *stu1.CheckOutTime)
	// No status recomputation on the sweep.
	assert.Equal(t, attendance.StatusLate, stu1.Status)

	stu2, _ := f.ledger.FindByKey(ctx, attendance.NewKey("stu-2", shared.RoleStudent, monday(21, 0), f.deps.Location))
	assert.Equal(t, "12:00 PM", *stu2.CheckOutTime)

	teacher, _ := f.ledger.FindByKey(ctx, attendance.NewKey("tea-1", shared.RoleTeacher, monday(21, 0), f.deps.Location))
	assert.Nil(t, teacher.CheckOutTime)

	again, err := NewAutoCheckoutHandler(f.deps).Handle(ctx, AutoCheckoutCommand{})
	require.NoError(t, err)
	assert.Zero(t, again.Count)
}

func TestAutoCheckout_UsesEachStudentsOwnDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mark := NewMarkAttendanceHandler(f.deps)

	// stu-3 lives in Tashkent (UTC+5); the academy runs on UTC.
	f.clock.Set(monday(4, 0))
	_, err := mark.Handle(ctx, CheckInMark{PersonID: "stu-3", Role: shared.RoleStudent, ClassTime: "09:00 AM"})
	require.NoError(t, err)

	// 20:00 UTC is already Tuesday 01:00 in Tashkent.
	f.clock.Set(monday(20, 0))
	_, err = mark.Handle(ctx, CheckInMark{PersonID: "stu-3", Role: shared.RoleStudent, ClassTime: "01:00 AM"})
	require.NoError(t, err)

	f.clock.Set(monday(21, 0))
	res, err := NewAutoCheckoutHandler(f.deps).Handle(ctx, AutoCheckoutCommand{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	tashkent, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)

	mondayRec, err := f.ledger.FindByKey(ctx, attendance.NewKey("stu-3", shared.RoleStudent, monday(4, 0), tashkent))
	require.NoError(t, err)
	assert.Equal(t, "11:59 PM", *mondayRec.CheckOutTime)
	assert.True(t, mondayRec.CheckOutAt.Equal(monday(18, 59)))

	tuesdayRec, err := f.ledger.FindByKey(ctx, attendance.NewKey("stu-3", shared.RoleStudent, monday(20, 0), tashkent))
	require.NoError(t, err)
	assert.Equal(t, "02:00 AM", *tuesdayRec.CheckOutTime)
}
