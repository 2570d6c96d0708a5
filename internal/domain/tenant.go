package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCurrency = "RWF"
	DefaultTimezone = "Africa/Kigali"
)

type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	TaxID     string    `json:"tax_id"`
	Currency  string    `json:"currency"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantUpdate holds the tenant-admin editable fields. Nil fields are left untouched.
type TenantUpdate struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Address  *string `json:"address"`
	TaxID    *string `json:"tax_id" validate:"omitempty,max=100"`
	Currency *string `json:"currency" validate:"omitempty,len=3,alpha"`
	Timezone *string `json:"timezone" validate:"omitempty,max=50"`
}

func (u TenantUpdate) Apply(t *Tenant) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Email != nil {
		t.Email = *u.Email
	}
	if u.Phone != nil {
		t.Phone = *u.Phone
	}
	if u.Address != nil {
		t.Address = *u.Address
	}
	if u.TaxID != nil {
		t.TaxID = *u.TaxID
	}
	if u.Currency != nil {
		t.Currency = *u.Currency
	}
	if u.Timezone != nil {
		t.Timezone = *u.Timezone
	}
}
