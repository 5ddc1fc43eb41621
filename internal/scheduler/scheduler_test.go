package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingJob struct {
	runs  atomic.Int32
	panic bool
}

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return nil
}

func waitForRuns(t *testing.T, j *countingJob, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if j.runs.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job ran %d times, want at least %d", j.runs.Load(), want)
}

func TestSchedulerRunsOnStartup(t *testing.T) {
	s := New(zap.NewNop(), time.UTC)
	job := &countingJob{}
	s.Register("test", "0 0 1 1 *", job, true)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitForRuns(t, job, 1)
}

func TestSchedulerSkipsStartupRunWhenDisabled(t *testing.T) {
	s := New(zap.NewNop(), time.UTC)
	job := &countingJob{}
	s.Register("test", "0 0 1 1 *", job, false)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(0), job.runs.Load())
}

func TestSchedulerContainsPanics(t *testing.T) {
	s := New(zap.NewNop(), time.UTC)
	job := &countingJob{panic: true}
	s.Register("panicky", "0 0 1 1 *", job, true)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitForRuns(t, job, 1)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(zap.NewNop(), time.UTC)
	s.Register("bad", "not a cron spec", &countingJob{}, false)

	assert.Error(t, s.Start(context.Background()))
}

func TestSchedulerStopsFiringAfterContextCancel(t *testing.T) {
	s := New(zap.NewNop(), time.UTC)
	job := &countingJob{}
	s.Register("test", "0 0 1 1 *", job, false)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	s.fire(s.entries[0])
	s.Stop()

	assert.Equal(t, int32(0), job.runs.Load())
}
