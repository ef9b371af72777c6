package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *testJob) Name() string        { return j.name }
func (j *testJob) Description() string { return "test job" }

func (j *testJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(Config{})
	job := &testJob{name: "warmup"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&testJob{name: "other"}, nil), ErrNilSchedule)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "warmup", jobs[0].Name)
	assert.True(t, jobs[0].Enabled)
}

func TestSchedulerRunNow(t *testing.T) {
	s := NewScheduler(Config{})
	job := &testJob{name: "warmup"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "warmup")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSchedulerRunNowRecordsFailure(t *testing.T) {
	s := NewScheduler(Config{})
	boom := errors.New("boom")
	job := &testJob{name: "failing", err: boom}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "failing")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, boom)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(1), jobs[0].FailCount)
	require.NotNil(t, jobs[0].LastResult)
	assert.False(t, jobs[0].LastResult.Success)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(Config{})
	require.NoError(t, s.Register(&testJob{name: "warmup"}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	s.Stop()
	assert.False(t, s.IsRunning())

	// Stopping twice is a no-op.
	s.Stop()
}

func TestSchedulerSetEnabled(t *testing.T) {
	s := NewScheduler(Config{})
	require.NoError(t, s.Register(&testJob{name: "warmup"}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.SetEnabled("warmup", false))
	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].Enabled)

	assert.ErrorIs(t, s.SetEnabled("missing", true), ErrJobNotFound)
}

func TestIntervalSchedule(t *testing.T) {
	sched := NewIntervalSchedule(10 * time.Minute)
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(10*time.Minute), sched.Next(now))
	assert.NotEmpty(t, sched.String())
}
