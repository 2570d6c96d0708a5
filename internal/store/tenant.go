package store

import (
	"context"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/google/uuid"
)

type TenantStore struct {
	db Querier
}

func NewTenantStore(db Querier) *TenantStore {
	return &TenantStore{db: db}
}

const tenantColumns = `id, name, subdomain, email, phone, address, tax_id, currency, timezone, is_active, created_at, updated_at`

func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, subdomain, email, phone, address, tax_id, currency, timezone, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.Subdomain, t.Email, t.Phone, t.Address, t.TaxID, t.Currency, t.Timezone, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapError(err)
}

func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Subdomain, &t.Email, &t.Phone, &t.Address, &t.TaxID,
		&t.Currency, &t.Timezone, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (s *TenantStore) Update(ctx context.Context, t *domain.Tenant) error {
	err := s.db.QueryRow(ctx,
		`UPDATE tenants
		 SET name = $2, email = $3, phone = $4, address = $5, tax_id = $6,
		     currency = $7, timezone = $8, is_active = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		t.ID, t.Name, t.Email, t.Phone, t.Address, t.TaxID, t.Currency, t.Timezone, t.IsActive,
	).Scan(&t.UpdatedAt)
	return mapError(err)
}

func (s *TenantStore) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE subdomain = $1)`, subdomain,
	).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}
