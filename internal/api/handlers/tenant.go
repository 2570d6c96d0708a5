package handlers

import (
	"net/http"

	"github.com/fleema/fleetcore/internal/api/middleware"
	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/service"
	"go.uber.org/zap"
)

// TenantHandler serves the caller's own tenant. Routes are mounted behind
// RequireCapability(CapTenantMember), so the caller always has a tenant.
type TenantHandler struct {
	svc    *service.TenantService
	logger *zap.Logger
}

func NewTenantHandler(svc *service.TenantService, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{svc: svc, logger: logger}
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil || user.TenantID == nil {
		writeDetail(w, http.StatusForbidden, detailForbidden)
		return
	}

	t, err := h.svc.Get(r.Context(), *user.TenantID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil || user.TenantID == nil {
		writeDetail(w, http.StatusForbidden, detailForbidden)
		return
	}

	var req domain.TenantUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.svc.Update(r.Context(), *user.TenantID, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("tenant updated", zap.String("tenant_id", t.ID.String()), zap.String("user_id", user.ID.String()))
	writeJSON(w, http.StatusOK, t)
}
