package api

import (
	"log/slog"
	"net/http"

	"github.com/dghosef/vscode-flix/internal/api/shared"
	"github.com/dghosef/vscode-flix/internal/job"
	"github.com/dghosef/vscode-flix/internal/scheduler"
)

// SchedulerService is the slice of the scheduler the debug API needs.
type SchedulerService interface {
	Enqueue(j job.Job) job.Enqueued
	PendingCount() int
	Stats() scheduler.Stats
}

// QueueHandler handles queue inspection and job submission requests.
type QueueHandler struct {
	svc    SchedulerService
	logger *slog.Logger
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(svc SchedulerService, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		svc:    svc,
		logger: logger,
	}
}

// GetStats handles GET /api/queue/stats requests.
func (h *QueueHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{
		Stats:   h.svc.Stats(),
		Pending: h.svc.PendingCount(),
	}
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// SubmitJob handles POST /api/jobs requests. Jobs are accepted for
// asynchronous dispatch; results flow through the event emitter, not this
// response.
func (h *QueueHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	kind := job.Kind(req.Kind)
	if kind.Priority() && req.URI == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "uri is required for "+req.Kind)
		return
	}

	ej := h.svc.Enqueue(job.Job{
		Kind: kind,
		URI:  req.URI,
		Src:  req.Src,
	})

	h.logger.Debug("job accepted via api",
		"job_id", ej.ID,
		"kind", req.Kind,
		"trace_id", shared.GetTraceID(r.Context()))

	response := JobResponse{
		ID:   ej.ID,
		Kind: string(ej.Kind),
		URI:  ej.URI,
	}

	// 202 Accepted: dispatch happens asynchronously.
	shared.RespondWithJSON(w, r, http.StatusAccepted, response)
}
