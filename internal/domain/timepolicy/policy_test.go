package timepolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
	}{
		{"10:00 AM", MustClock(10, 0)},
		{"  9:05 pm ", MustClock(21, 5)},
		{"12:00 AM", MustClock(0, 0)},
		{"12:30 PM", MustClock(12, 30)},
		{"11:59PM", MustClock(23, 59)},
		{"18:45", MustClock(18, 45)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClock_Invalid(t *testing.T) {
	for _, in := range []string{"", "noon", "13:00 PM", "00:10 AM", "10:60", "24:00", "10:5 AM", "1000", "+9:00 AM", "-0:30", "9:+5"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseClock(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrInvalidTimeFormat)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "10:00 AM", MustClock(10, 0).String())
	assert.Equal(t, "12:00 AM", MustClock(0, 0).String())
	assert.Equal(t, "12:15 PM", MustClock(12, 15).String())
	assert.Equal(t, "09:40 PM", MustClock(21, 40).String())
}

func TestPolicy_GraceBoundary(t *testing.T) {
	p := Default()
	scheduled := MustClock(10, 0)

	// Within grace, including exactly at the boundary.
	for _, m := range []int{0, 4, 5} {
		assert.False(t, p.IsLate(scheduled, MustClock(10, m)), "10:%02d", m)
		assert.Equal(t, ArrivalOnTime, p.Classify(scheduled, MustClock(10, m)))
	}

	assert.True(t, p.IsLate(scheduled, MustClock(10, 6)))
	assert.Equal(t, ArrivalLate, p.Classify(scheduled, MustClock(10, 6)))
}

func TestLateBy_CountsFromScheduledTime(t *testing.T) {
	arrival, lateBy := Default().Evaluate(MustClock(10, 0), MustClock(10, 6))
	assert.Equal(t, ArrivalLate, arrival)
	assert.Equal(t, 6*time.Minute, lateBy)
	assert.Equal(t, "6 min", FormatLateBy(lateBy))

	arrival, lateBy = Default().Evaluate(MustClock(10, 0), MustClock(10, 4))
	assert.Equal(t, ArrivalOnTime, arrival)
	assert.Zero(t, lateBy)

	assert.Zero(t, LateBy(MustClock(10, 0), MustClock(9, 0)))
}

func TestDelta_WrapsAroundMidnight(t *testing.T) {
	assert.Equal(t, 5, Delta(MustClock(23, 58), MustClock(0, 3)))
	assert.Equal(t, -7, Delta(MustClock(0, 5), MustClock(23, 58)))
	assert.Equal(t, -60, Delta(MustClock(0, 30), MustClock(23, 30)))
	assert.Equal(t, -60, Delta(MustClock(10, 0), MustClock(9, 0)))
	assert.Equal(t, 720, Delta(MustClock(0, 0), MustClock(12, 0)))
	assert.True(t, Default().IsLate(MustClock(23, 55), MustClock(0, 1)))
	assert.False(t, Default().IsLate(MustClock(0, 5), MustClock(23, 58)))
}

func TestDelta_SameDayBeyondHalfADay(t *testing.T) {
	assert.Equal(t, 750, Delta(MustClock(10, 0), MustClock(22, 30)))
	assert.Equal(t, -750, Delta(MustClock(22, 30), MustClock(10, 0)))

	arrival, lateBy := Default().Evaluate(MustClock(10, 0), MustClock(22, 30))
	assert.Equal(t, ArrivalLate, arrival)
	assert.Equal(t, 750*time.Minute, lateBy)
	assert.Equal(t, "12 h 30 min", FormatLateBy(lateBy))
}

func TestPolicy_ZeroGrace(t *testing.T) {
	p := NewPolicy(0)
	assert.False(t, p.IsLate(MustClock(8, 0), MustClock(8, 0)))
	assert.True(t, p.IsLate(MustClock(8, 0), MustClock(8, 1)))
	assert.Equal(t, DefaultGrace, NewPolicy(-time.Minute).Grace)
}

func TestClockOfAndOn(t *testing.T) {
	loc := time.FixedZone("X", 5*60*60)
	instant := time.Date(2026, 3, 2, 4, 30, 0, 0, time.UTC).In(loc)
	c := ClockOf(instant)
	assert.Equal(t, MustClock(9, 30), c)

	on := c.On(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), loc)
	assert.True(t, on.Equal(time.Date(2026, 3, 2, 4, 30, 0, 0, time.UTC)))
	assert.Equal(t, "1 h 05 min", FormatLateBy(65*time.Minute))
}
