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

func TestTeacherLogin_TogglesCheckInThenCheckOut(t *testing.T) {
	f := newFixture(t)
	h := NewTeacherLoginHandler(f.deps, stubIssuer{})
	ctx := context.Background()

	first, err := h.Handle(ctx, TeacherLoginCommand{Login: "madina", Password: "pa55"})
	require.NoError(t, err)
	assert.Equal(t, LoginCheckedIn, first.Action)
	assert.Equal(t, "token-tea-1-teacher", first.Token)
	assert.Equal(t, "10:04 AM", *first.Attendance.CheckInTime)
	assert.Nil(t, first.Attendance.CheckOutTime)

	slot, _ := f.schedules.FindByID(ctx, "slot-mon-10")
	assert.Equal(t, schedule.StatusInProgress, slot.Status)

	f.clock.Set(monday(16, 0))
	second, err := h.Handle(ctx, TeacherLoginCommand{Login: "Madina", Password: "pa55"})
	require.NoError(t, err)
	assert.Equal(t, LoginCheckedOut, second.Action)
	assert.Equal(t, "04:00 PM", *second.Attendance.CheckOutTime)
	assert.Equal(t, attendance.StatusPresent, second.Attendance.Status)
	assert.Equal(t, first.Attendance.ID, second.Attendance.ID)

	third, err := h.Handle(ctx, TeacherLoginCommand{Login: "madina", Password: "pa55"})
	require.NoError(t, err)
	assert.Equal(t, LoginNoAction, third.Action)
	assert.Equal(t, "04:00 PM", *third.Attendance.CheckOutTime)

	assert.Equal(t, 1, f.ledger.Len())
}

func TestTeacherLogin_NextDayStartsOver(t *testing.T) {
	f := newFixture(t)
	h := NewTeacherLoginHandler(f.deps, stubIssuer{})
	ctx := context.Background()

	_, err := h.Handle(ctx, TeacherLoginCommand{Login: "madina", Password: "pa55"})
	require.NoError(t, err)

	f.clock.Set(monday(10, 0).AddDate(0, 0, 1))
	res, err := h.Handle(ctx, TeacherLoginCommand{Login: "madina", Password: "pa55"})
	require.NoError(t, err)
	assert.Equal(t, LoginCheckedIn, res.Action)
	assert.Equal(t, 2, f.ledger.Len())
}

func TestTeacherLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	h := NewTeacherLoginHandler(f.deps, stubIssuer{})
	ctx := context.Background()

	_, err := h.Handle(ctx, TeacherLoginCommand{Login: "madina", Password: "nope"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.True(t, shared.IsUnauthorized(err))

	_, err = h.Handle(ctx, TeacherLoginCommand{Login: "nobody", Password: "pa55"})
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = h.Handle(ctx, TeacherLoginCommand{Login: "madina"})
	assert.ErrorIs(t, err, shared.ErrMissingFields)

	assert.Equal(t, 0, f.ledger.Len())
}
