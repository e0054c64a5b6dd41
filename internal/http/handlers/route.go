package handlers

import (
	"net/http"
	"strconv"

	"service-master-dispatch/internal/domain"
	"service-master-dispatch/internal/logx"
)

// RouteHandler serves route optimization endpoints.
type RouteHandler struct {
	uc     routeUsecase
	logger logx.Logger
}

// NewRouteHandler wires a routeUsecase into HTTP handlers.
func NewRouteHandler(logger logx.Logger, uc routeUsecase) *RouteHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &RouteHandler{uc: uc, logger: logger}
}

// Optimize handles POST /routes/optimize.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	rt, err := h.uc.OptimizeJobs(r.Context(), req.JobIDs, toPoint(req.Start))
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "job not found",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toRouteResponse(rt))
}

// ForMaster handles GET /masters/{id}/route?lat=..&lon=..
func (h *RouteHandler) ForMaster(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid id")
		return
	}
	start, ok := startFromQuery(r)
	if !ok {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid start: lat and lon go together")
		return
	}

	rt, err := h.uc.OptimizeForMaster(r.Context(), id, start)
	if err != nil {
		writeServiceError(h.logger, w, r, err, errorMessages{
			http.StatusNotFound: "master not found",
		})
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, toRouteResponse(rt))
}

func startFromQuery(r *http.Request) (*domain.Point, bool) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return nil, true
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, false
	}
	return &domain.Point{Lat: lat, Lon: lon}, true
}
