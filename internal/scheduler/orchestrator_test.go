package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/laurel/internal/recompute"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, req recompute.Request) (*recompute.Job, error) {
	args := m.Called(ctx, req)
	job, _ := args.Get(0).(*recompute.Job)
	return job, args.Error(1)
}

func newTestOrchestrator(jobs Enqueuer, cfg *Config) *Orchestrator {
	logger, _ := test.NewNullLogger()
	o := NewOrchestrator(jobs, cfg, logger)
	o.now = func() time.Time { return time.Date(2024, time.March, 11, 4, 0, 0, 0, time.UTC) }
	return o
}

func TestTriggerRecalculationQueuesCurrentSeason(t *testing.T) {
	jobs := &mockEnqueuer{}
	jobs.On("Enqueue", mock.Anything, recompute.Request{Season: "2024", Recalculate: true}).
		Return(&recompute.Job{JobID: "job-1"}, nil).Once()

	o := newTestOrchestrator(jobs, nil)

	job, err := o.TriggerRecalculation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.JobID)

	status := o.GetStatus()
	assert.Equal(t, "0 4 * * 1", status.Schedule)
	assert.Equal(t, 1, status.RunCount)
	assert.Equal(t, 0, status.ErrorCount)
	assert.Equal(t, "job-1", status.LastJobID)
	assert.Equal(t, "2024", status.LastSeason)
	assert.False(t, status.Running)
	jobs.AssertExpectations(t)
}

func TestTriggerRecalculationUsesSeasonOf(t *testing.T) {
	jobs := &mockEnqueuer{}
	jobs.On("Enqueue", mock.Anything, recompute.Request{Season: "2023", Recalculate: true}).
		Return(&recompute.Job{JobID: "job-2"}, nil).Once()

	o := newTestOrchestrator(jobs, &Config{SeasonOf: func(time.Time) string { return "2023" }})

	_, err := o.TriggerRecalculation(context.Background())
	require.NoError(t, err)
	jobs.AssertExpectations(t)
}

func TestTriggerRecalculationRecordsFailure(t *testing.T) {
	jobs := &mockEnqueuer{}
	jobs.On("Enqueue", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	o := newTestOrchestrator(jobs, nil)

	_, err := o.TriggerRecalculation(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "season 2024")

	status := o.GetStatus()
	assert.Equal(t, 1, status.RunCount)
	assert.Equal(t, 1, status.ErrorCount)
	assert.Equal(t, "connection refused", status.LastError)
	assert.Empty(t, status.LastJobID)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	o := newTestOrchestrator(&mockEnqueuer{}, &Config{Schedule: "every monday"})
	err := o.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every monday")
	assert.False(t, o.GetStatus().Running)
}

func TestStartAndStop(t *testing.T) {
	o := newTestOrchestrator(&mockEnqueuer{}, nil)

	require.NoError(t, o.Start())
	assert.Error(t, o.Start())

	status := o.GetStatus()
	assert.True(t, status.Running)
	assert.Equal(t, time.Monday, status.NextRun.Weekday())
	assert.Equal(t, 4, status.NextRun.Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, o.Stop(ctx))
	require.NoError(t, o.Stop(ctx))
	assert.False(t, o.GetStatus().Running)
	assert.Empty(t, o.cron.Entries())
}

func TestRestartKeepsOneEntry(t *testing.T) {
	o := newTestOrchestrator(&mockEnqueuer{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, o.Start())
	require.NoError(t, o.Stop(ctx))
	require.NoError(t, o.Start())
	defer o.Stop(ctx)

	assert.Len(t, o.cron.Entries(), 1)
	assert.Equal(t, time.Monday, o.GetStatus().NextRun.Weekday())
}
