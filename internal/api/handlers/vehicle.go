package handlers

import (
	"net/http"
	"strconv"

	"github.com/fleema/fleetcore/internal/api/middleware"
	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VehicleHandler struct {
	svc    *service.VehicleService
	logger *zap.Logger
}

func NewVehicleHandler(svc *service.VehicleService, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{svc: svc, logger: logger}
}

type listVehiclesResponse struct {
	Vehicles []*domain.Vehicle `json:"vehicles"`
	Count    int               `json:"count"`
}

// listOptions reads ?include_deleted and ?tenant_id. It writes the 400
// itself and reports false on a malformed tenant id.
func listOptions(w http.ResponseWriter, r *http.Request) (service.ListOptions, bool) {
	q := r.URL.Query()
	opts := service.ListOptions{IncludeDeleted: queryBool(q.Get("include_deleted"))}
	if raw := q.Get("tenant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tenant_id")
			return opts, false
		}
		opts.TenantID = &id
	}
	return opts, true
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}

	vehicles, err := h.svc.List(r.Context(), middleware.IdentityFromContext(r.Context()), opts)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if vehicles == nil {
		vehicles = []*domain.Vehicle{}
	}
	writeJSON(w, http.StatusOK, listVehiclesResponse{Vehicles: vehicles, Count: len(vehicles)})
}

func (h *VehicleHandler) Count(w http.ResponseWriter, r *http.Request) {
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}

	n, err := h.svc.Count(r.Context(), middleware.IdentityFromContext(r.Context()), opts)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.VehicleInput
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.svc.Create(r.Context(), middleware.IdentityFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *VehicleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	v, err := h.svc.Get(r.Context(), middleware.IdentityFromContext(r.Context()), id, queryBool(r.URL.Query().Get("include_deleted")))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}
	var req domain.VehicleInput
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.svc.Update(r.Context(), middleware.IdentityFromContext(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.SoftDelete(r.Context(), middleware.IdentityFromContext(r.Context()), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VehicleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	v, err := h.svc.Restore(r.Context(), middleware.IdentityFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *VehicleHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, ok := vehicleID(w, r)
	if !ok {
		return
	}

	if err := h.svc.HardDelete(r.Context(), middleware.IdentityFromContext(r.Context()), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("vehicle purged", zap.String("vehicle_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func vehicleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vehicle id")
		return uuid.Nil, false
	}
	return id, true
}

func queryBool(raw string) bool {
	b, _ := strconv.ParseBool(raw)
	return b
}
