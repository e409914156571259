package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-hub/internal/domain/attendance"
	"github.com/academy-hub/attendance-hub/internal/domain/directory"
	"github.com/academy-hub/attendance-hub/internal/domain/schedule"
	"github.com/academy-hub/attendance-hub/internal/domain/shared"
	"github.com/academy-hub/attendance-hub/internal/domain/timepolicy"
	"github.com/academy-hub/attendance-hub/internal/infrastructure/persistence/memory"
	"github.com/academy-hub/attendance-hub/pkg/timeutil"
)

var now = time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC) // Monday

func newDeps(t *testing.T) (Deps, *memory.Ledger) {
	t.Helper()
	ledger := memory.NewLedger()
	return Deps{
		Ledger: ledger,
		Schedules: memory.NewSchedule(
			&schedule.Slot{ID: "late", StudentID: "stu-2", TeacherID: "tea-1", DayOfWeek: time.Monday,
				Time: timepolicy.MustClock(15, 0), Duration: 45 * time.Minute, Status: schedule.StatusScheduled},
			&schedule.Slot{ID: "early", StudentID: "stu-1", TeacherID: "tea-1", DayOfWeek: time.Monday,
				Time: timepolicy.MustClock(10, 0), Duration: time.Hour, Status: schedule.StatusInProgress},
			&schedule.Slot{ID: "tuesday", StudentID: "stu-1", TeacherID: "tea-1", DayOfWeek: time.Tuesday,
				Time: timepolicy.MustClock(10, 0), Duration: time.Hour, Status: schedule.StatusScheduled},
		),
		People: memory.NewPeople(
			&directory.Person{ID: "stu-1", Role: shared.RoleStudent, Name: "Aru"},
			&directory.Person{ID: "stu-2", Role: shared.RoleStudent, Name: "Dana"},
			&directory.Person{ID: "tea-1", Role: shared.RoleTeacher, Name: "Madina"},
		),
		Clock:    timeutil.NewFixedClock(now),
		Location: time.UTC,
	}, ledger
}

func checkedIn(id string, person shared.PersonID, at time.Time) *attendance.Record {
	r := attendance.NewRecord(id, attendance.NewKey(person, shared.RoleStudent, at, time.UTC), at)
	_, _ = r.CheckIn(at, time.UTC, timepolicy.Default())
	return r
}

func TestTodayStatus(t *testing.T) {
	deps, ledger := newDeps(t)
	h := NewTodayStatusHandler(deps)
	ctx := context.Background()

	empty, err := h.Handle(ctx, TodayStatusQuery{PersonID: "stu-1", Role: shared.RoleStudent})
	require.NoError(t, err)
	assert.False(t, empty.CheckedIn)
	assert.Equal(t, "not_marked", empty.Status)
	assert.Equal(t, "2026-10-19", empty.Date)
	assert.Nil(t, empty.Attendance)

	ledger.Seed(checkedIn("r1", "stu-1", now.Add(-time.Hour)))
	got, err := h.Handle(ctx, TodayStatusQuery{PersonID: "stu-1", Role: shared.RoleStudent})
	require.NoError(t, err)
	assert.True(t, got.CheckedIn)
	assert.False(t, got.CheckedOut)
	assert.Equal(t, "present", got.Status)
	assert.Equal(t, "10:00 AM", *got.CheckInTime)
	assert.Equal(t, "r1", got.Attendance.ID)

	_, err = h.Handle(ctx, TodayStatusQuery{PersonID: "stu-1"})
	assert.ErrorIs(t, err, shared.ErrMissingFields)
}

func TestTodayClasses(t *testing.T) {
	deps, ledger := newDeps(t)
	ledger.Seed(checkedIn("r1", "stu-1", now.Add(-time.Hour)))

	got, err := NewTodayClassesHandler(deps).Handle(context.Background(), TodayClassesQuery{TeacherID: "tea-1"})
	require.NoError(t, err)
	assert.Equal(t, "Monday", got.Day)
	require.Len(t, got.Classes, 2)

	assert.Equal(t, "early", got.Classes[0].ScheduleRef)
	assert.Equal(t, "Aru", got.Classes[0].StudentName)
	assert.Equal(t, "present", got.Classes[0].AttendanceStatus)
	assert.Equal(t, "in_progress", got.Classes[0].ScheduleStatus)

	assert.Equal(t, "late", got.Classes[1].ScheduleRef)
	assert.Equal(t, "not_marked", got.Classes[1].AttendanceStatus)
	assert.Equal(t, "03:00 PM", got.Classes[1].Time)
	assert.Equal(t, 45, got.Classes[1].DurationMinutes)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]*DailyStatsDTO
	hits int
}

func (c *mapCache) GetDailyStats(_ context.Context, date string) (*DailyStatsDTO, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[date]
	if ok {
		c.hits++
		cp := *v
		return &cp, true, nil
	}
	return nil, false, nil
}

func (c *mapCache) SetDailyStats(_ context.Context, date string, stats *DailyStatsDTO) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[date] = stats
	return nil
}

func TestDailyStats(t *testing.T) {
	deps, ledger := newDeps(t)
	absent := attendance.NewRecord("r3", attendance.NewKey("stu-3", shared.RoleStudent, now, time.UTC), now)
	_, _ = absent.Override(attendance.StatusAbsent, now, time.UTC)
	out := checkedIn("r2", "stu-2", now.Add(-30*time.Minute))
	require.NoError(t, out.CheckOut(now, time.UTC))
	yesterday := checkedIn("r0", "stu-1", now.AddDate(0, 0, -1))
	ledger.Seed(checkedIn("r1", "stu-1", now.Add(-time.Hour)), out, absent, yesterday)

	cache := &mapCache{data: map[string]*DailyStatsDTO{}}
	h := NewDailyStatsHandler(deps, cache)
	ctx := context.Background()

	got, err := h.Handle(ctx, DailyStatsQuery{})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", got.Date)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.ByStatus["present"])
	assert.Equal(t, 1, got.ByStatus["absent"])
	assert.Equal(t, 0, got.ByStatus["late"])
	assert.Equal(t, 2, got.CheckedIn)
	assert.Equal(t, 1, got.CheckedOut)
	assert.False(t, got.Cached)

	again, err := h.Handle(ctx, DailyStatsQuery{})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, cache.hits)

	fresh, err := h.Handle(ctx, DailyStatsQuery{SkipCache: true})
	require.NoError(t, err)
	assert.False(t, fresh.Cached)
}
