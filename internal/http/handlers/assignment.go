package handlers

import (
	"net/http"

	"service-master-dispatch/internal/logx"
)

// AssignmentHandler serves offer accept/reject endpoints.
type AssignmentHandler struct {
	uc     assignmentUsecase
	logger logx.Logger
}

// NewAssignmentHandler wires an assignmentUsecase into HTTP handlers.
func NewAssignmentHandler(logger logx.Logger, uc assignmentUsecase) *AssignmentHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &AssignmentHandler{uc: uc, logger: logger}
}

// Accept handles POST /assignments/{id}/accept.
func (h *AssignmentHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req acceptRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.uc.Accept(r.Context(), id, req.MasterID)
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "assignment not found",
			http.StatusConflict: "already taken",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, acceptResponse{
		AssignmentID: res.AssignmentID.String(),
		JobID:        res.JobID,
		MasterID:     res.MasterID,
		AcceptedAt:   res.AcceptedAt,
		Invalidated:  res.Invalidated,
	})
}

// Reject handles POST /assignments/{id}/reject.
func (h *AssignmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req rejectRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.uc.Reject(r.Context(), id, req.MasterID, req.Reason)
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "assignment not found",
			http.StatusConflict: "already taken",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toRejectResponse(res))
}
