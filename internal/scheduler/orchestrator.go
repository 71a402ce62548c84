package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fortuna/laurel/internal/recompute"
)

// Enqueuer queues recalculation jobs. *recompute.Service implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, req recompute.Request) (*recompute.Job, error)
}

// Config holds scheduler configuration
type Config struct {
	Schedule string                     // cron spec, default Mondays 04:00
	SeasonOf func(now time.Time) string // season recomputed by a scheduled run
	Location *time.Location             // zone the schedule is read in, default UTC
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		Schedule: "0 4 * * 1",
		SeasonOf: func(now time.Time) string { return fmt.Sprintf("%d", now.Year()) },
		Location: time.UTC,
	}
}

// Status describes the scheduled recalculation for API callers.
type Status struct {
	Schedule   string    `json:"schedule"`
	Running    bool      `json:"running"`
	NextRun    time.Time `json:"next_run"`
	LastRun    time.Time `json:"last_run"`
	LastJobID  string    `json:"last_job_id,omitempty"`
	LastSeason string    `json:"last_season,omitempty"`
	RunCount   int       `json:"run_count"`
	ErrorCount int       `json:"error_count"`
	LastError  string    `json:"last_error,omitempty"`
}

// Orchestrator queues a full recalculation of the current season on a cron schedule.
type Orchestrator struct {
	jobs   Enqueuer
	config *Config
	cron   *cron.Cron
	log    logrus.FieldLogger
	now    func() time.Time

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
	status  Status
}

// NewOrchestrator creates a new scheduler orchestrator
func NewOrchestrator(jobs Enqueuer, config *Config, logger logrus.FieldLogger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.SeasonOf == nil {
		config.SeasonOf = defaults.SeasonOf
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "scheduler")

	return &Orchestrator{
		jobs:   jobs,
		config: config,
		cron:   cron.New(cron.WithLocation(config.Location), cron.WithLogger(cron.PrintfLogger(logger))),
		log:    logger,
		now:    time.Now,
		status: Status{Schedule: config.Schedule},
	}
}

// Start registers the recalculation and starts the cron loop.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("scheduler is already running")
	}

	id, err := o.cron.AddFunc(o.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = o.TriggerRecalculation(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid awards schedule %q: %w", o.config.Schedule, err)
	}

	o.entry = id
	o.cron.Start()
	o.running = true
	o.status.Running = true

	o.log.WithFields(logrus.Fields{
		"schedule": o.config.Schedule,
		"next_run": o.cron.Entry(id).Next,
	}).Info("✓ Awards scheduler started")
	return nil
}

// Stop removes the scheduled entry, halts the cron loop and waits for a
// trigger in flight, or until ctx ends.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil
	}
	o.running = false
	o.status.Running = false
	o.cron.Remove(o.entry)
	o.entry = 0
	o.mu.Unlock()

	select {
	case <-o.cron.Stop().Done():
		o.log.Info("✓ Awards scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerRecalculation queues a recalculation of every award for the
// current season, the same job a scheduled run queues.
func (o *Orchestrator) TriggerRecalculation(ctx context.Context) (*recompute.Job, error) {
	now := o.now()
	season := o.config.SeasonOf(now)

	job, err := o.jobs.Enqueue(ctx, recompute.Request{Season: season, Recalculate: true})

	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.LastRun = now
	o.status.LastSeason = season
	o.status.RunCount++
	if err != nil {
		o.status.ErrorCount++
		o.status.LastError = err.Error()
		o.log.WithError(err).WithField("season", season).Error("❌ Failed to queue scheduled recalculation")
		return nil, fmt.Errorf("queue recalculation for season %s: %w", season, err)
	}

	o.status.LastJobID = job.JobID
	o.status.LastError = ""
	o.log.WithFields(logrus.Fields{"season": season, "job_id": job.JobID}).Info("Scheduled recalculation queued")
	return job, nil
}

// GetStatus returns current scheduler status
func (o *Orchestrator) GetStatus() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.status
	if o.running {
		s.NextRun = o.cron.Entry(o.entry).Next
	}
	return s
}
