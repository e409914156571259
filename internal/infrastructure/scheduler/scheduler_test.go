package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/academy-hub/attendance-hub/pkg/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	fail  error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	return j.fail
}

func newTestScheduler(start time.Time) (*Scheduler, *timeutil.FixedClock) {
	clock := timeutil.NewFixedClock(start)
	return NewScheduler(SchedulerConfig{Clock: clock}), clock
}

func TestScheduler_RunsDueJobsOnce(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))

	s.checkAndRunJobs(context.Background())
	s.wg.Wait()
	assert.Equal(t, int32(0), job.runs.Load())

	clock.Advance(time.Minute)
	s.checkAndRunJobs(context.Background())
	s.wg.Wait()
	assert.Equal(t, int32(1), job.runs.Load())

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].RunCount)
	assert.Equal(t, clock.Now().Add(time.Minute), infos[0].NextRun)
	require.NotNil(t, infos[0].LastResult)
	assert.True(t, infos[0].LastResult.Success)
}

func TestScheduler_SkipsBusyJob(t *testing.T) {
	s, clock := newTestScheduler(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Second)))

	clock.Advance(time.Second)
	s.checkAndRunJobs(context.Background())
	clock.Advance(time.Second)
	s.checkAndRunJobs(context.Background())

	close(job.block)
	s.wg.Wait()
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestScheduler_RunNowReportsFailure(t *testing.T) {
	s, _ := newTestScheduler(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	boom := errors.New("boom")
	require.NoError(t, s.Register(&countingJob{name: "bad", fail: boom}, NewIntervalSchedule(time.Hour)))

	var seen []JobResult
	s.OnJobComplete(func(r JobResult) { seen = append(seen, r) })

	res, err := s.RunNow(context.Background(), "bad")
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.True(t, res.Manual)
	assert.False(t, res.Success)
	require.Len(t, seen, 1)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s, _ := newTestScheduler(time.Now())
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, nil), ErrNilSchedule)
	require.NoError(t, s.Register(&countingJob{name: "a"}, NewIntervalSchedule(time.Second)))
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, NewIntervalSchedule(time.Second)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestCronSchedule(t *testing.T) {
	tashkent := time.FixedZone("Tashkent", 5*60*60)
	sched, err := ParseCronSchedule("0 21 * * *", tashkent)
	require.NoError(t, err)

	// 15:30 UTC is 20:30 in Tashkent; the sweep fires half an hour later.
	next := sched.Next(time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2026, 10, 19, 16, 0, 0, 0, time.UTC)))

	next = sched.Next(time.Date(2026, 10, 19, 16, 0, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2026, 10, 20, 16, 0, 0, 0, time.UTC)))

	_, err = ParseCronSchedule("61 * * * *", nil)
	assert.Error(t, err)
}
