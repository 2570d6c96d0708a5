package handlers

import (
	"net/http"
	"time"

	"github.com/fleema/fleetcore/internal/api/middleware"
	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieConfig describes the auth cookie. It is always HttpOnly, SameSite=Lax
// and scoped to the whole site.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (c CookieConfig) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		Expires:  time.Now().Add(c.MaxAge).UTC(),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type AuthHandler struct {
	svc    *service.AuthService
	cookie CookieConfig
	logger *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie, logger: logger}
}

type tenantSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Email     string    `json:"email"`
	Currency  string    `json:"currency"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
}

type profileResponse struct {
	ID         uuid.UUID      `json:"id"`
	Email      string         `json:"email"`
	FirstName  string         `json:"first_name"`
	LastName   string         `json:"last_name"`
	Phone      string         `json:"phone"`
	Role       domain.Role    `json:"role"`
	Tenant     *tenantSummary `json:"tenant"`
	DateJoined time.Time      `json:"date_joined"`
}

type sessionResponse struct {
	User   profileResponse `json:"user"`
	Tenant *tenantSummary  `json:"tenant"`
}

func newTenantSummary(t *domain.Tenant) *tenantSummary {
	if t == nil {
		return nil
	}
	return &tenantSummary{
		ID:        t.ID,
		Name:      t.Name,
		Subdomain: t.Subdomain,
		Email:     t.Email,
		Currency:  t.Currency,
		Timezone:  t.Timezone,
		IsActive:  t.IsActive,
	}
}

func newProfileResponse(u *domain.User, t *domain.Tenant) profileResponse {
	return profileResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		Role:       u.Role,
		Tenant:     newTenantSummary(t),
		DateJoined: u.DateJoined,
	}
}

func newSessionResponse(s *service.Session) sessionResponse {
	p := newProfileResponse(s.User, s.Tenant)
	return sessionResponse{User: p, Tenant: p.Tenant}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.cookie.set(w, sess.Token)
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.cookie.set(w, sess.Token)
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), middleware.UserFromContext(r.Context())); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.cookie.clear(w)
	writeDetail(w, http.StatusOK, "Logged out successfully.")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context(), middleware.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(p.User, p.Tenant))
}

// UpdateMe serves both PUT and PATCH. Only fields present in the body are
// written; email, role and tenant in the body are ignored.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.svc.UpdateProfile(r.Context(), middleware.UserFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(p.User, p.Tenant))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req service.ChangePasswordInput
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.svc.ChangePassword(r.Context(), middleware.UserFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.cookie.set(w, token)
	writeDetail(w, http.StatusOK, "Password updated successfully.")
}
