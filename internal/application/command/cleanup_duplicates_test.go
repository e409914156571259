package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

func strPtr(s string) *string { return &s }

func TestCleanupDuplicates_MergesFirstNonEmptyTimes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := attendance.NewKey("stu-1", shared.RoleStudent, monday(9, 0), f.deps.Location)

	a := attendance.NewRecord("a", key, monday(9, 1))
	a.CheckInTime, a.Status = strPtr("09:01 AM"), attendance.StatusPresent
	b := attendance.NewRecord("b", key, monday(9, 2))
	b.CheckInTime, b.Status = strPtr("09:02 AM"), attendance.StatusLate
	c := attendance.NewRecord("c", key, monday(9, 40))
	c.CheckOutTime = strPtr("09:40 AM")

	other := attendance.NewRecord("solo", attendance.NewKey("stu-2", shared.RoleStudent, monday(9, 0), f.deps.Location), monday(9, 0))
	f.ledger.Seed(a, b, c, other)

	res, err := NewCleanupDuplicatesHandler(f.deps).Handle(ctx, CleanupDuplicatesCommand{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.GroupsProcessed)
	assert.Equal(t, 1, res.GroupsMerged)
	assert.Equal(t, 2, res.RecordsDeleted)

	remaining, err := f.ledger.List(ctx, attendance.Filter{PersonID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	survivor := remaining[0]
	assert.Equal(t, "a", survivor.ID)
	assert.Equal(t, "09:01 AM", *survivor.CheckInTime)
	assert.Equal(t, "09:40 AM", *survivor.CheckOutTime)
	assert.Equal(t, attendance.StatusPresent, survivor.Status)

	assert.Equal(t, 2, f.ledger.Len())
	assert.Contains(t, f.events.types(), shared.EventDuplicatesMerged)
}

func TestCleanupDuplicates_FiltersAndNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	k1 := attendance.NewKey("stu-1", shared.RoleStudent, monday(9, 0), f.deps.Location)
	k2 := attendance.NewKey("stu-2", shared.RoleStudent, monday(9, 0), f.deps.Location)
	f.ledger.Seed(
		attendance.NewRecord("x1", k1, monday(9, 0)),
		attendance.NewRecord("x2", k1, monday(9, 1)),
		attendance.NewRecord("y1", k2, monday(9, 0)),
		attendance.NewRecord("y2", k2, monday(9, 1)),
	)

	h := NewCleanupDuplicatesHandler(f.deps)
	res, err := h.Handle(ctx, CleanupDuplicatesCommand{PersonID: "stu-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.GroupsMerged)
	assert.Equal(t, 3, f.ledger.Len())

	day := k1.Date
	res, err = h.Handle(ctx, CleanupDuplicatesCommand{Date: &day})
	require.NoError(t, err)
	assert.Equal(t, 1, res.GroupsMerged)

	res, err = h.Handle(ctx, CleanupDuplicatesCommand{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.GroupsProcessed)
	assert.Zero(t, res.GroupsMerged)
	assert.Zero(t, res.RecordsDeleted)
}
