package recompute

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/laurel/internal/awards"
)

// JobStore is the persistence the service needs. *Repository implements it.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) (*Job, error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, message string, lastErr error) error
	UpdateProgress(ctx context.Context, jobID string, current, total int, message string) error
	AppendEvent(ctx context.Context, jobID string, eventType, message string, current, total *int) error
	ListEvents(ctx context.Context, jobID string) ([]Event, error)
	ResetStuckJobs(ctx context.Context) (int64, error)
	MarkNextJobRunning(ctx context.Context) (*Job, error)
	GetActiveJob(ctx context.Context) (*Job, error)
	ListRecentJobs(ctx context.Context, limit int) ([]*Job, error)
}

var _ JobStore = (*Repository)(nil)

// Service coordinates job persistence, execution, and status reporting.
// A single worker runs jobs one at a time.
type Service struct {
	repo   JobStore
	runner *Runner

	historyLimit int
	pollInterval time.Duration
	wake         chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log logrus.FieldLogger
}

// NewService constructs a Service. Call Start to launch the worker.
func NewService(repo JobStore, runner *Runner, pollInterval time.Duration, historyLimit int, logger logrus.FieldLogger) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}

	return &Service{
		repo:         repo,
		runner:       runner,
		historyLimit: historyLimit,
		pollInterval: pollInterval,
		wake:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		log:          logger.WithField("component", "recompute"),
	}
}

// Start launches the background worker loop.
func (s *Service) Start() {
	n, err := s.repo.ResetStuckJobs(s.ctx)
	if err != nil {
		s.log.WithError(err).Warn("⚠️  Failed to reset stuck jobs")
	} else if n > 0 {
		s.log.WithField("jobs", n).Info("Requeued jobs left running by a previous process")
	}

	s.wg.Add(1)
	go s.worker()
}

// Shutdown stops the worker and waits for the running job to stop.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Enqueue validates the request and stores a queued job.
func (s *Service) Enqueue(ctx context.Context, req Request) (*Job, error) {
	types, err := resolveAwardTypes(req.AwardTypes)
	if err != nil {
		return nil, err
	}

	season := strings.TrimSpace(req.Season)
	job := &Job{
		AwardTypes:    types,
		Season:        sql.NullString{String: season, Valid: season != ""},
		Recalculate:   req.Recalculate,
		DryRun:        req.DryRun,
		Status:        JobStatusQueued,
		StatusMessage: sql.NullString{String: "Queued", Valid: true},
		ProgressTotal: len(types),
	}

	stored, err := s.repo.CreateJob(ctx, job)
	if err != nil {
		return nil, err
	}

	_ = s.repo.AppendEvent(ctx, stored.JobID, "queued", "Job queued", nil, nil)

	s.log.WithFields(logrus.Fields{
		"job_id":      stored.JobID,
		"award_types": len(types),
		"season":      season,
		"recalculate": req.Recalculate,
	}).Info("Recalculation job queued")

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return stored, nil
}

// GetJob returns one job with its event log.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, []Event, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.repo.ListEvents(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, events, nil
}

// GetStatus returns the currently running job plus recent history.
func (s *Service) GetStatus(ctx context.Context) (*StatusSummary, error) {
	active, err := s.repo.GetActiveJob(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListRecentJobs(ctx, s.historyLimit)
	if err != nil {
		return nil, err
	}

	return &StatusSummary{
		ActiveJob: active,
		History:   history,
	}, nil
}

func (s *Service) worker() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		job, err := s.repo.MarkNextJobRunning(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Error("Failed to claim job")
		}
		if job != nil {
			s.executeJob(job)
			continue
		}

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		case <-s.wake:
		}
	}
}

func (s *Service) executeJob(job *Job) {
	log := s.log.WithField("job_id", job.JobID)

	spec, err := buildSpec(job)
	if err != nil {
		log.WithError(err).Error("Invalid job specification")
		_ = s.repo.UpdateStatus(s.ctx, job.JobID, JobStatusFailed, "Invalid job specification", err)
		return
	}

	reporter := &jobReporter{
		ctx:   s.ctx,
		repo:  s.repo,
		jobID: job.JobID,
		total: len(spec.AwardTypes),
	}

	start := time.Now()
	if err := s.runner.Run(s.ctx, spec, reporter); err != nil {
		status, message := JobStatusFailed, "Job failed"
		if s.ctx.Err() != nil {
			status, message = JobStatusCancelled, "Cancelled by shutdown"
		}
		// The service context may already be cancelled here.
		_ = s.repo.UpdateStatus(context.Background(), job.JobID, status, message, err)
		log.WithError(err).WithField("status", status).Error("Recalculation job did not complete")
		return
	}

	_ = s.repo.UpdateStatus(s.ctx, job.JobID, JobStatusCompleted, "Job completed", nil)
	log.WithField("duration", time.Since(start).Round(time.Millisecond)).Info("✓ Recalculation job completed")
}

func buildSpec(job *Job) (JobSpec, error) {
	spec := JobSpec{
		Season:      job.Season.String,
		Recalculate: job.Recalculate,
		DryRun:      job.DryRun,
	}

	for _, raw := range job.AwardTypes {
		t, err := awards.ParseAwardType(raw)
		if err != nil {
			return spec, err
		}
		spec.AwardTypes = append(spec.AwardTypes, t)
	}
	if len(spec.AwardTypes) == 0 {
		return spec, fmt.Errorf("job has no award types")
	}

	return spec, nil
}

// resolveAwardTypes validates requested types, removing duplicates. An empty
// request selects the whole catalogue in display order.
func resolveAwardTypes(requested []string) ([]string, error) {
	if len(requested) == 0 {
		var all []string
		for _, e := range awards.Catalogue() {
			all = append(all, string(e.Type))
		}
		return all, nil
	}

	seen := make(map[awards.AwardType]bool, len(requested))
	var out []string
	for _, raw := range requested {
		t, err := awards.ParseAwardType(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, string(t))
	}
	return out, nil
}

type jobReporter struct {
	ctx   context.Context
	repo  JobStore
	jobID string
	total int
}

func (r *jobReporter) OnJobStart(spec JobSpec) {
	if r.total == 0 {
		r.total = len(spec.AwardTypes)
	}
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, 0, r.total, "Job starting")
}

func (r *jobReporter) OnAwardStart(awardType awards.AwardType, index int, total int) {
	msg := fmt.Sprintf("Calculating %s (%d/%d)", awardType, index+1, total)
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, index, valueOr(total, r.total), msg)
}

func (r *jobReporter) OnAwardComplete(awardType awards.AwardType, counts map[string]int) {
	_ = r.repo.AppendEvent(r.ctx, r.jobID, "award", fmt.Sprintf("%s: %s", awardType, formatCounts(counts)), nil, nil)
}

func (r *jobReporter) OnProgress(message string, current int, total int) {
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, current, valueOr(total, r.total), message)
}

func (r *jobReporter) OnJobComplete() {
	_ = r.repo.UpdateProgress(r.ctx, r.jobID, r.total, r.total, "Job complete")
}

func (r *jobReporter) OnJobError(err error) {
	_ = r.repo.AppendEvent(context.Background(), r.jobID, "error", err.Error(), nil, nil)
}

// formatCounts renders per-season counts in season order, e.g. "2023=4 2024=7".
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "no seasons"
	}
	seasons := make([]string, 0, len(counts))
	for s := range counts {
		seasons = append(seasons, s)
	}
	sort.Strings(seasons)

	parts := make([]string, len(seasons))
	for i, s := range seasons {
		parts[i] = fmt.Sprintf("%s=%d", s, counts[s])
	}
	return strings.Join(parts, " ")
}

func valueOr(val, fallback int) int {
	if val > 0 {
		return val
	}
	return fallback
}
