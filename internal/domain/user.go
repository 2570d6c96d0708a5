package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        string     `json:"phone"`
	IsActive     bool       `json:"is_active"`
	DateJoined   time.Time  `json:"date_joined"`
}

// Identity is the resolved caller of a request.
func (u *User) Identity() *Identity {
	if u == nil {
		return nil
	}
	return &Identity{UserID: u.ID, Role: u.Role, TenantID: u.TenantID}
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate holds the self-service mutable fields of a user.
// Role, tenant and email are immutable through this path.
type ProfileUpdate struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
}

func (u ProfileUpdate) Apply(user *User) {
	if u.FirstName != nil {
		user.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		user.LastName = *u.LastName
	}
	if u.Phone != nil {
		user.Phone = *u.Phone
	}
}

// Token is the opaque credential bound to exactly one user.
type Token struct {
	Key       string    `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is older than ttl. A zero ttl never expires.
func (t *Token) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(t.CreatedAt) > ttl
}
