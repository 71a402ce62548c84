package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fortuna/laurel/internal/recompute"
	"github.com/fortuna/laurel/internal/scheduler"
)

// JobQueue queues and reports recalculation jobs. *recompute.Service implements it.
type JobQueue interface {
	Enqueue(ctx context.Context, req recompute.Request) (*recompute.Job, error)
	GetStatus(ctx context.Context) (*recompute.StatusSummary, error)
	GetJob(ctx context.Context, jobID string) (*recompute.Job, []recompute.Event, error)
}

// ScheduleControl exposes the recalculation schedule. *scheduler.Orchestrator implements it.
type ScheduleControl interface {
	GetStatus() scheduler.Status
	TriggerRecalculation(ctx context.Context) (*recompute.Job, error)
}

// JobHandler proxies API calls to the recalculation service.
type JobHandler struct {
	jobs     JobQueue
	schedule ScheduleControl
}

// NewJobHandler wires the REST layer to the job service. schedule may be nil
// when the scheduler is disabled.
func NewJobHandler(jobs JobQueue, schedule ScheduleControl) *JobHandler {
	return &JobHandler{jobs: jobs, schedule: schedule}
}

// HandleJobRequest handles POST /api/v1/awards/jobs
func (h *JobHandler) HandleJobRequest(w http.ResponseWriter, r *http.Request) {
	var req recompute.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.jobs.Enqueue(r.Context(), req)
	if err != nil {
		respondError(w, statusFor(err), "Failed to enqueue recalculation job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": job,
	})
}

// HandleJobStatus handles GET /api/v1/awards/jobs/status
func (h *JobHandler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := h.jobs.GetStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch status", err)
		return
	}

	respondJSON(w, http.StatusOK, buildStatusPayload(summary))
}

// HandleGetJob handles GET /api/v1/awards/jobs/{jobID}
func (h *JobHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	job, events, err := h.jobs.GetJob(r.Context(), mux.Vars(r)["jobID"])
	if err != nil {
		respondError(w, statusFor(err), "Failed to fetch job", err)
		return
	}
	if events == nil {
		events = []recompute.Event{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":    job,
		"events": events,
	})
}

// HandleSchedule handles GET /api/v1/awards/schedule
func (h *JobHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	if h.schedule == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":  true,
		"schedule": h.schedule.GetStatus(),
	})
}

// HandleTriggerSchedule handles POST /api/v1/awards/schedule/trigger
func (h *JobHandler) HandleTriggerSchedule(w http.ResponseWriter, r *http.Request) {
	if h.schedule == nil {
		respondError(w, http.StatusConflict, "Scheduler is disabled", nil)
		return
	}

	job, err := h.schedule.TriggerRecalculation(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to trigger recalculation", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": job,
	})
}

func buildStatusPayload(summary *recompute.StatusSummary) map[string]interface{} {
	response := map[string]interface{}{
		"status":  "idle",
		"message": "No active jobs",
	}

	if summary.ActiveJob != nil {
		response["status"] = summary.ActiveJob.Status
		if summary.ActiveJob.StatusMessage.Valid {
			response["message"] = summary.ActiveJob.StatusMessage.String
		}
		response["active_job"] = summary.ActiveJob
	}

	history := summary.History
	if history == nil {
		history = []*recompute.Job{}
	}
	response["history"] = history
	return response
}
