package handlers

import (
	"net/http"

	"service-master-dispatch/internal/logx"
)

// MasterHandler serves master lookup and shift endpoints.
type MasterHandler struct {
	uc     masterUsecase
	logger logx.Logger
}

// NewMasterHandler wires a masterUsecase into HTTP handlers.
func NewMasterHandler(logger logx.Logger, uc masterUsecase) *MasterHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &MasterHandler{uc: uc, logger: logger}
}

// GetByID handles GET /masters/{id}.
func (h *MasterHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}

	m, err := h.uc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "master not found",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toMasterDTO(m))
}

// SetShift handles PATCH /masters/{id}/shift.
func (h *MasterHandler) SetShift(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req shiftRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	if err := h.uc.SetShift(r.Context(), id, *req.Available); err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "master not found",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, map[string]any{"id": id, "available": *req.Available})
}
