package cron_feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterJobValidates(t *testing.T) {
	s := NewCronService(nil)
	noop := func(ctx context.Context) error { return nil }

	assert.Error(t, s.RegisterJob(Job{Interval: time.Minute, Run: noop}))
	assert.Error(t, s.RegisterJob(Job{Name: "x", Interval: time.Minute}))
	assert.Error(t, s.RegisterJob(Job{Name: "x", Run: noop}))
	assert.NoError(t, s.RegisterJob(Job{Name: "x", Interval: time.Minute, Run: noop}))
}

func TestExecuteJobRecordsStatus(t *testing.T) {
	s := NewCronService(nil)
	boom := errors.New("boom")
	fail := true
	require.NoError(t, s.RegisterJob(Job{
		Name:     "reconcile",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			if fail {
				return boom
			}
			return nil
		},
	}))

	assert.ErrorIs(t, s.ExecuteJob(context.Background(), "reconcile"), boom)
	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "@every 1h0m0s", jobs[0].Schedule)
	assert.Equal(t, "boom", jobs[0].LastError)
	assert.NotNil(t, jobs[0].LastRun)

	fail = false
	assert.NoError(t, s.ExecuteJob(context.Background(), "reconcile"))
	assert.Empty(t, s.ListJobs()[0].LastError)
}

func TestExecuteUnknownJob(t *testing.T) {
	s := NewCronService(nil)
	assert.ErrorIs(t, s.ExecuteJob(context.Background(), "missing"), ErrJobNotFound)
	assert.ErrorIs(t, s.UnregisterJob("missing"), ErrJobNotFound)
}

func TestSchedulerRunsImmediateJobs(t *testing.T) {
	s := NewCronService(nil)
	ran := make(chan struct{}, 1)
	require.NoError(t, s.RegisterJob(Job{
		Name:           "startup",
		Interval:       time.Hour,
		RunImmediately: true,
		Run: func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	}))

	require.NoError(t, s.InitializeScheduler(context.Background()))
	defer s.StopScheduler()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job marked RunImmediately did not run on startup")
	}

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].NextRun)
	assert.True(t, jobs[0].NextRun.After(time.Now()))
}
