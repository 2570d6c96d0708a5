package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fleema/fleetcore/internal/domain"
)

type contextKey string

const userContextKey contextKey = "user"

const (
	detailNotProvided = "Authentication credentials were not provided."
	detailInvalid     = "Invalid token."
)

// TokenResolver maps an opaque token key to its active user.
type TokenResolver interface {
	Resolve(ctx context.Context, key string) (*domain.User, error)
}

func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userContextKey).(*domain.User)
	return u
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	return UserFromContext(ctx).Identity()
}

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	annotateActor(ctx, u)
	return context.WithValue(ctx, userContextKey, u)
}

// TokenAuth authenticates requests by the token in the named cookie,
// falling back to an "Authorization: Token <key>" or "Bearer <key>" header.
// Requests without a valid token are rejected with 401.
func TokenAuth(resolver TokenResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := tokenFromRequest(r, cookieName)
			if !ok {
				writeDetail(w, http.StatusUnauthorized, detailNotProvided)
				return
			}

			user, err := resolver.Resolve(r.Context(), key)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					writeDetail(w, http.StatusUnauthorized, detailInvalid)
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to authenticate")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func tokenFromRequest(r *http.Request, cookieName string) (string, bool) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	scheme, key, found := strings.Cut(authHeader, " ")
	if !found || !(strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
		return "", false
	}
	key = strings.TrimSpace(key)
	return key, key != ""
}

// RequireCapability rejects requests whose identity lacks c: 401 when
// anonymous, 403 otherwise.
func RequireCapability(c domain.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := domain.Authorize(IdentityFromContext(r.Context()), c); err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					writeDetail(w, http.StatusUnauthorized, detailNotProvided)
					return
				}
				writeDetail(w, http.StatusForbidden, domain.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
