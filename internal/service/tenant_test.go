package service

import (
	"context"
	"testing"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTenantService_Create(t *testing.T) {
	s := NewTenantService(memstore.New().Tenants(), zap.NewNop())
	ctx := context.Background()

	tenant, err := s.Create(ctx, CreateTenantInput{Name: "Kigali Movers", Email: "Ops@KigaliMovers.rw", Phone: "+250788123456"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.Equal(t, "kigali-movers", tenant.Subdomain)
	assert.Equal(t, "ops@kigalimovers.rw", tenant.Email)
	assert.Equal(t, "RWF", tenant.Currency)
	assert.Equal(t, "Africa/Kigali", tenant.Timezone)
	assert.True(t, tenant.IsActive)

	exists, err := s.SubdomainExists(ctx, "kigali-movers")
	require.NoError(t, err)
	assert.True(t, exists)

	next, err := s.GenerateSubdomain(ctx, "Kigali Movers")
	require.NoError(t, err)
	assert.Equal(t, "kigali-movers-1", next)
}

func TestTenantService_CreateValidation(t *testing.T) {
	s := NewTenantService(memstore.New().Tenants(), zap.NewNop())

	_, err := s.Create(context.Background(), CreateTenantInput{Email: "bad"})
	verr, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
}

func TestTenantService_GetNotFound(t *testing.T) {
	s := NewTenantService(memstore.New().Tenants(), zap.NewNop())
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestTenantService_Update(t *testing.T) {
	s := NewTenantService(memstore.New().Tenants(), zap.NewNop())
	ctx := context.Background()

	tenant, err := s.Create(ctx, CreateTenantInput{Name: "Acme", Email: "acme@example.com"})
	require.NoError(t, err)

	name, currency := "Acme Logistics", "USD"
	updated, err := s.Update(ctx, tenant.ID, domain.TenantUpdate{Name: &name, Currency: &currency})
	require.NoError(t, err)
	assert.Equal(t, "Acme Logistics", updated.Name)
	assert.Equal(t, "USD", updated.Currency)
	assert.Equal(t, "acme", updated.Subdomain, "subdomain is immutable")
	assert.Equal(t, "Africa/Kigali", updated.Timezone)

	bad := "dollars"
	_, err = s.Update(ctx, tenant.ID, domain.TenantUpdate{Currency: &bad})
	verr, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "currency")

	_, err = s.Update(ctx, uuid.New(), domain.TenantUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
