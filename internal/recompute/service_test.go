package recompute

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/laurel/internal/awards"
)

// memJobs is an in-memory JobStore.
type memJobs struct {
	mu     sync.Mutex
	seq    int
	jobs   map[string]*Job
	order  []string
	events map[string][]Event
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*Job{}, events: map[string][]Event{}}
}

func (m *memJobs) CreateJob(_ context.Context, job *Job) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := job.Copy()
	if stored.JobID == "" {
		stored.JobID = fmt.Sprintf("job-%d", m.seq)
	}
	stored.CreatedAt = time.Date(2024, time.March, 4, 0, 0, m.seq, 0, time.UTC)
	stored.UpdatedAt = stored.CreatedAt
	m.jobs[stored.JobID] = stored
	m.order = append(m.order, stored.JobID)
	return stored.Copy(), nil
}

func (m *memJobs) GetJob(_ context.Context, jobID string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return j.Copy(), nil
}

func (m *memJobs) UpdateStatus(_ context.Context, jobID string, status JobStatus, message string, lastErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[jobID]
	j.Status = status
	j.StatusMessage = sql.NullString{String: message, Valid: true}
	j.LastError = sql.NullString{}
	if lastErr != nil {
		j.LastError = sql.NullString{String: lastErr.Error(), Valid: true}
	}
	if status.Terminal() {
		j.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return nil
}

func (m *memJobs) UpdateProgress(_ context.Context, jobID string, current, total int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[jobID]
	j.ProgressCurrent, j.ProgressTotal = current, total
	j.StatusMessage = sql.NullString{String: message, Valid: true}
	return nil
}

func (m *memJobs) AppendEvent(_ context.Context, jobID string, eventType, message string, current, total *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[jobID] = append(m.events[jobID], Event{EventType: eventType, Message: message, ProgressCurrent: current, ProgressTotal: total})
	return nil
}

func (m *memJobs) ListEvents(_ context.Context, jobID string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events[jobID]...), nil
}

func (m *memJobs) ResetStuckJobs(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.jobs {
		if j.Status == JobStatusRunning {
			j.Status = JobStatusQueued
			n++
		}
	}
	return n, nil
}

func (m *memJobs) MarkNextJobRunning(context.Context) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		j := m.jobs[id]
		if j.Status == JobStatusQueued {
			j.Status = JobStatusRunning
			j.StartedAt = sql.NullTime{Time: time.Now(), Valid: true}
			return j.Copy(), nil
		}
	}
	return nil, nil
}

func (m *memJobs) GetActiveJob(context.Context) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if j := m.jobs[id]; j.Status == JobStatusRunning {
			return j.Copy(), nil
		}
	}
	return nil, nil
}

func (m *memJobs) ListRecentJobs(_ context.Context, limit int) ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.jobs[m.order[i]].Copy())
	}
	return out, nil
}

func (m *memJobs) status(jobID string) JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[jobID].Status
}

// fakeCalculator records the award types it was asked to run.
type fakeCalculator struct {
	mu        sync.Mutex
	calls     []awards.AwardType
	previews  []awards.AwardType
	opts      []awards.Options
	failOn    awards.AwardType
	counts    map[string]int
	preview   []awards.ScopeResult
	calculate func(ctx context.Context) error
}

func (f *fakeCalculator) Calculate(ctx context.Context, t awards.AwardType, opts awards.Options) (map[string]int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, t)
	f.opts = append(f.opts, opts)
	hook := f.calculate
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if t == f.failOn {
		return nil, errors.New("database unavailable")
	}
	return f.counts, nil
}

func (f *fakeCalculator) Preview(_ context.Context, t awards.AwardType, _ awards.Options) ([]awards.ScopeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews = append(f.previews, t)
	return f.preview, nil
}

func (f *fakeCalculator) called() []awards.AwardType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]awards.AwardType(nil), f.calls...)
}

func newTestService(t *testing.T, calc *fakeCalculator) (*Service, *memJobs) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	repo := newMemJobs()
	svc := NewService(repo, NewRunner(calc), 10*time.Millisecond, 5, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return svc, repo
}

func waitForStatus(t *testing.T, repo *memJobs, jobID string, want JobStatus) {
	t.Helper()
	require.Eventually(t, func() bool { return repo.status(jobID) == want }, 2*time.Second, 5*time.Millisecond)
}

// eventsOf returns the messages of one event type in log order.
func eventsOf(events []Event, eventType string) []string {
	var out []string
	for _, e := range events {
		if e.EventType == eventType {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestEnqueueDefaultsToCatalogue(t *testing.T) {
	svc, repo := newTestService(t, &fakeCalculator{})

	job, err := svc.Enqueue(context.Background(), Request{Season: " 2024 "})
	require.NoError(t, err)

	assert.Len(t, job.AwardTypes, 15)
	assert.Equal(t, string(awards.PlayerOfTheWeek), job.AwardTypes[0])
	assert.Equal(t, 15, job.ProgressTotal)
	assert.Equal(t, JobStatusQueued, job.Status)
	assert.Equal(t, sql.NullString{String: "2024", Valid: true}, job.Season)

	events, err := repo.ListEvents(context.Background(), job.JobID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "queued", events[0].EventType)
}

func TestEnqueueValidatesAwardTypes(t *testing.T) {
	svc, _ := newTestService(t, &fakeCalculator{})
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, Request{AwardTypes: []string{"mvp"}})
	assert.ErrorIs(t, err, awards.ErrUnknownAwardType)

	job, err := svc.Enqueue(ctx, Request{AwardTypes: []string{"top_scorer", " clutch_man", "top_scorer"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"top_scorer", "clutch_man"}, []string(job.AwardTypes))
	assert.False(t, job.Season.Valid)
}

func TestWorkerRunsQueuedJob(t *testing.T) {
	calc := &fakeCalculator{counts: map[string]int{"2024": 3}}
	svc, repo := newTestService(t, calc)
	svc.Start()

	job, err := svc.Enqueue(context.Background(), Request{
		AwardTypes:  []string{"top_scorer", "clutch_man"},
		Season:      "2024",
		Recalculate: true,
	})
	require.NoError(t, err)
	waitForStatus(t, repo, job.JobID, JobStatusCompleted)

	assert.Equal(t, []awards.AwardType{awards.TopScorer, awards.ClutchMan}, calc.called())
	calc.mu.Lock()
	assert.Equal(t, awards.Options{Season: "2024", Recalculate: true}, calc.opts[0])
	calc.mu.Unlock()

	stored, events, err := svc.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ProgressCurrent)
	assert.Equal(t, 2, stored.ProgressTotal)
	assert.True(t, stored.CompletedAt.Valid)

	assert.Equal(t, []string{"top_scorer: 2024=3", "clutch_man: 2024=3"}, eventsOf(events, "award"))
}

func TestWorkerMarksFailedJob(t *testing.T) {
	calc := &fakeCalculator{failOn: awards.TopScorer}
	svc, repo := newTestService(t, calc)
	svc.Start()

	job, err := svc.Enqueue(context.Background(), Request{AwardTypes: []string{"clutch_man", "top_scorer", "air_assault"}})
	require.NoError(t, err)
	waitForStatus(t, repo, job.JobID, JobStatusFailed)

	assert.Equal(t, []awards.AwardType{awards.ClutchMan, awards.TopScorer}, calc.called())

	stored, events, err := svc.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Contains(t, stored.LastError.String, "top_scorer: database unavailable")
	assert.Contains(t, eventsOf(events, "error"), "top_scorer: database unavailable")
}

func TestDryRunOnlyPreviews(t *testing.T) {
	calc := &fakeCalculator{preview: []awards.ScopeResult{
		{Season: "2024", Winners: []awards.Winner{{PlayerID: 1}, {PlayerID: 2}}},
		{Season: "2024", Winners: []awards.Winner{{PlayerID: 3}}},
		{Season: "2025"},
	}}
	svc, repo := newTestService(t, calc)
	svc.Start()

	job, err := svc.Enqueue(context.Background(), Request{AwardTypes: []string{"player_of_the_week"}, DryRun: true})
	require.NoError(t, err)
	waitForStatus(t, repo, job.JobID, JobStatusCompleted)

	assert.Empty(t, calc.called())
	_, events, err := svc.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, []string{"player_of_the_week: 2024=3 2025=0"}, eventsOf(events, "award"))
}

func TestStartRequeuesStuckJobs(t *testing.T) {
	calc := &fakeCalculator{}
	svc, repo := newTestService(t, calc)

	stuck, err := repo.CreateJob(context.Background(), &Job{AwardTypes: []string{"air_assault"}, Status: JobStatusRunning})
	require.NoError(t, err)

	svc.Start()
	waitForStatus(t, repo, stuck.JobID, JobStatusCompleted)
	assert.Equal(t, []awards.AwardType{awards.AirAssault}, calc.called())
}

func TestInvalidStoredJobFails(t *testing.T) {
	svc, repo := newTestService(t, &fakeCalculator{})

	bad, err := repo.CreateJob(context.Background(), &Job{AwardTypes: []string{"mvp"}, Status: JobStatusQueued})
	require.NoError(t, err)
	empty, err := repo.CreateJob(context.Background(), &Job{Status: JobStatusQueued})
	require.NoError(t, err)

	svc.Start()
	waitForStatus(t, repo, bad.JobID, JobStatusFailed)
	waitForStatus(t, repo, empty.JobID, JobStatusFailed)
}

func TestShutdownCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	calc := &fakeCalculator{calculate: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	logger, _ := test.NewNullLogger()
	repo := newMemJobs()
	svc := NewService(repo, NewRunner(calc), 10*time.Millisecond, 5, logger)
	svc.Start()

	job, err := svc.Enqueue(context.Background(), Request{AwardTypes: []string{"top_scorer"}})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	assert.Equal(t, JobStatusCancelled, repo.status(job.JobID))
}

func TestGetStatusLimitsHistory(t *testing.T) {
	svc, repo := newTestService(t, &fakeCalculator{})
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.Enqueue(ctx, Request{AwardTypes: []string{"top_scorer"}})
		require.NoError(t, err)
	}
	running, err := repo.MarkNextJobRunning(ctx)
	require.NoError(t, err)

	summary, err := svc.GetStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary.ActiveJob)
	assert.Equal(t, running.JobID, summary.ActiveJob.JobID)
	require.Len(t, summary.History, 5)
	assert.Equal(t, "job-7", summary.History[0].JobID)
}

func TestGetJobNotFound(t *testing.T) {
	svc, _ := newTestService(t, &fakeCalculator{})
	_, _, err := svc.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunnerWithoutReporter(t *testing.T) {
	calc := &fakeCalculator{}
	r := NewRunner(calc)

	require.NoError(t, r.Run(context.Background(), JobSpec{}, nil))
	require.NoError(t, r.Run(context.Background(), JobSpec{AwardTypes: []awards.AwardType{awards.TopScorer}}, nil))
	assert.Equal(t, []awards.AwardType{awards.TopScorer}, calc.called())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, JobSpec{AwardTypes: []awards.AwardType{awards.AirAssault}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, calc.called(), 1)
}

func TestJobJSON(t *testing.T) {
	started := time.Date(2024, time.March, 4, 4, 0, 0, 0, time.UTC)
	job := &Job{
		JobID:         "abc",
		Season:        sql.NullString{String: "2024", Valid: true},
		Status:        JobStatusRunning,
		StatusMessage: sql.NullString{String: "Calculating top_scorer (1/1)", Valid: true},
		StartedAt:     sql.NullTime{Time: started, Valid: true},
	}

	raw, err := json.Marshal(job)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "2024", out["season"])
	assert.Equal(t, "running", out["status"])
	assert.Equal(t, []interface{}{}, out["award_types"])
	assert.Equal(t, "2024-03-04T04:00:00Z", out["started_at"])
	assert.NotContains(t, out, "completed_at")
	assert.NotContains(t, out, "last_error")
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "no seasons", formatCounts(nil))
	assert.Equal(t, "2023=1 2024=0", formatCounts(map[string]int{"2024": 0, "2023": 1}))
}
