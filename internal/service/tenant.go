package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/slug"
	"github.com/fleema/fleetcore/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fallbackSubdomain is used when a name has no slug-able characters.
const fallbackSubdomain = "tenant"

var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrSubdomainTaken  = errors.New("subdomain already taken")
	errTooManyAttempts = errors.New("could not find a free subdomain")
)

// maxSubdomainProbes bounds the -1, -2, ... scan.
const maxSubdomainProbes = 1000

// maxSubdomainLength matches tenants.subdomain VARCHAR(100).
const maxSubdomainLength = 100

type TenantService struct {
	store  domain.TenantStore
	logger *zap.Logger
}

func NewTenantService(s domain.TenantStore, logger *zap.Logger) *TenantService {
	return &TenantService{store: s, logger: logger}
}

type CreateTenantInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"max=30"`
}

func (s *TenantService) Create(ctx context.Context, in CreateTenantInput) (*domain.Tenant, error) {
	if verr := validateStruct(in); verr != nil {
		return nil, verr
	}
	t, err := createTenant(ctx, s.store, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tenant created", zap.String("tenant_id", t.ID.String()), zap.String("subdomain", t.Subdomain))
	return t, nil
}

func (s *TenantService) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	return s.store.SubdomainExists(ctx, subdomain)
}

func (s *TenantService) GenerateSubdomain(ctx context.Context, name string) (string, error) {
	return generateSubdomain(ctx, s.store, name)
}

func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

// Update applies a tenant-admin profile edit. The subdomain never changes.
func (s *TenantService) Update(ctx context.Context, id uuid.UUID, upd domain.TenantUpdate) (*domain.Tenant, error) {
	if verr := validateStruct(upd); verr != nil {
		return nil, verr
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(t)
	if err := s.store.Update(ctx, t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return t, nil
}

// generateSubdomain probes slug(name), slug(name)-1, slug(name)-2, ... and
// returns the first one not in use. It is best effort: the unique constraint
// on tenants.subdomain settles concurrent registrations.
func generateSubdomain(ctx context.Context, tenants domain.TenantStore, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = fallbackSubdomain
	}
	for n := 0; n < maxSubdomainProbes; n++ {
		candidate := slug.WithSuffix(base, n)
		if over := len(candidate) - maxSubdomainLength; over > 0 {
			candidate = slug.WithSuffix(slug.Truncate(base, len(base)-over), n)
		}
		exists, err := tenants.SubdomainExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check subdomain: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errTooManyAttempts
}

func createTenant(ctx context.Context, tenants domain.TenantStore, in CreateTenantInput) (*domain.Tenant, error) {
	subdomain, err := generateSubdomain(ctx, tenants, in.Name)
	if err != nil {
		return nil, err
	}
	t := &domain.Tenant{
		Name:      in.Name,
		Subdomain: subdomain,
		Email:     domain.NormalizeEmail(in.Email),
		Phone:     in.Phone,
		Currency:  domain.DefaultCurrency,
		Timezone:  domain.DefaultTimezone,
		IsActive:  true,
	}
	if err := tenants.Create(ctx, t); err != nil {
		if store.IsConstraint(err, store.ConstraintTenantSubdomain) {
			return nil, ErrSubdomainTaken
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return t, nil
}
