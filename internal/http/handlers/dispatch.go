package handlers

import (
	"context"
	"net/http"

	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/logx"
)

// DispatchHandler serves job dispatch endpoints.
type DispatchHandler struct {
	uc     dispatchUsecase
	logger logx.Logger
}

// NewDispatchHandler wires a dispatchUsecase into HTTP handlers.
func NewDispatchHandler(logger logx.Logger, uc dispatchUsecase) *DispatchHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &DispatchHandler{uc: uc, logger: logger}
}

// Submit handles POST /jobs: stores the job (if new) and dispatches it.
func (h *DispatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.uc.Submit(r.Context(), domain.Job{
		ID:       req.ID,
		ClientID: req.ClientID,
		Skill:    req.Skill,
		Location: toPoint(req.Location),
	})
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusConflict: "job is not open for dispatch",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, toDispatchResponse(res))
}

// Dispatch handles POST /jobs/{id}/dispatch.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.uc.Dispatch(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "job not found",
			http.StatusConflict: "job is not open for dispatch",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toDispatchResponse(res))
}

// Cancel handles POST /jobs/{id}/cancel.
func (h *DispatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	res, err := h.uc.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "job not found",
			http.StatusConflict: "job already completed",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, cancelResponse{
		JobID:       res.JobID,
		Status:      string(domain.JobStatusCancelled),
		Invalidated: res.Invalidated,
	})
}

// Start handles POST /jobs/{id}/start.
func (h *DispatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.uc.Start, domain.JobStatusInProgress)
}

// Complete handles POST /jobs/{id}/complete.
func (h *DispatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.uc.Complete, domain.JobStatusCompleted)
}

func (h *DispatchHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, jobID int64) error,
	to domain.JobStatus,
) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	if err := fn(r.Context(), id); err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "job not found",
			http.StatusConflict: "job cannot move to " + string(to),
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, jobStatusResponse{JobID: id, Status: string(to)})
}

// History handles GET /jobs/{id}/assignments.
func (h *DispatchHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	list, err := h.uc.History(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "job not found",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toAssignmentDTOs(list))
}
