package recompute

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/laurel/internal/awards"
)

// ErrJobNotFound is returned when a job id matches no stored job.
var ErrJobNotFound = errors.New("job not found")

// JobStatus represents the lifecycle state for a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a job in this status will not run again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job models the database representation of a recalculation job.
type Job struct {
	JobID           string
	AwardTypes      pq.StringArray
	Season          sql.NullString
	Recalculate     bool
	DryRun          bool
	Status          JobStatus
	StatusMessage   sql.NullString
	ProgressCurrent int
	ProgressTotal   int
	LastError       sql.NullString
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       sql.NullTime
	CompletedAt     sql.NullTime
}

type jobJSON struct {
	JobID           string     `json:"job_id"`
	AwardTypes      []string   `json:"award_types"`
	Season          string     `json:"season,omitempty"`
	Recalculate     bool       `json:"recalculate"`
	DryRun          bool       `json:"dry_run"`
	Status          JobStatus  `json:"status"`
	StatusMessage   string     `json:"status_message,omitempty"`
	ProgressCurrent int        `json:"progress_current"`
	ProgressTotal   int        `json:"progress_total"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// MarshalJSON flattens the nullable columns for API callers.
func (j *Job) MarshalJSON() ([]byte, error) {
	out := jobJSON{
		JobID:           j.JobID,
		AwardTypes:      []string(j.AwardTypes),
		Season:          j.Season.String,
		Recalculate:     j.Recalculate,
		DryRun:          j.DryRun,
		Status:          j.Status,
		StatusMessage:   j.StatusMessage.String,
		ProgressCurrent: j.ProgressCurrent,
		ProgressTotal:   j.ProgressTotal,
		LastError:       j.LastError.String,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
	if out.AwardTypes == nil {
		out.AwardTypes = []string{}
	}
	if j.StartedAt.Valid {
		out.StartedAt = &j.StartedAt.Time
	}
	if j.CompletedAt.Valid {
		out.CompletedAt = &j.CompletedAt.Time
	}
	return json.Marshal(out)
}

// Copy returns a shallow copy to prevent external mutation.
func (j *Job) Copy() *Job {
	if j == nil {
		return nil
	}
	cpy := *j
	cpy.AwardTypes = append(pq.StringArray(nil), j.AwardTypes...)
	return &cpy
}

// Request represents a recalculation invocation. Empty AwardTypes means
// every award in the catalogue; an empty Season means every season.
type Request struct {
	AwardTypes  []string `json:"award_types"`
	Season      string   `json:"season"`
	Recalculate bool     `json:"recalculate"`
	DryRun      bool     `json:"dry_run"`
}

// JobSpec describes the work to be performed by the runner.
type JobSpec struct {
	AwardTypes  []awards.AwardType
	Season      string
	Recalculate bool
	DryRun      bool
}

// Options converts the job parameters into engine options.
func (s JobSpec) Options() awards.Options {
	return awards.Options{Season: s.Season, Recalculate: s.Recalculate}
}

// Reporter receives lifecycle callbacks from the runner.
type Reporter interface {
	OnJobStart(spec JobSpec)
	OnAwardStart(awardType awards.AwardType, index int, total int)
	OnAwardComplete(awardType awards.AwardType, counts map[string]int)
	OnProgress(message string, current int, total int)
	OnJobComplete()
	OnJobError(err error)
}

// Event is one entry of a job's log.
type Event struct {
	EventType       string    `json:"event_type"`
	Message         string    `json:"message"`
	ProgressCurrent *int      `json:"progress_current,omitempty"`
	ProgressTotal   *int      `json:"progress_total,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	ActiveJob *Job   `json:"active_job,omitempty"`
	History   []*Job `json:"recent_jobs,omitempty"`
}
