package service

import (
	"context"
	"errors"
	"time"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/store"
	"github.com/google/uuid"
)

var ErrRecordNotFound = errors.New("record not found")

// ListOptions narrows a record listing.
type ListOptions struct {
	// TenantID is honoured for superadmins only; everyone else is pinned
	// to their own tenant.
	TenantID       *uuid.UUID
	IncludeDeleted bool
}

// RecordService enforces the role and tenant checks shared by every
// tenant-owned resource before delegating to its RecordStore.
type RecordService[T domain.TenantOwned] struct {
	store domain.RecordStore[T]
}

func NewRecordService[T domain.TenantOwned](s domain.RecordStore[T]) *RecordService[T] {
	return &RecordService[T]{store: s}
}

// authorizeRead admits tenant members and superadmins.
func authorizeRead(id *domain.Identity) error {
	if id.Allows(domain.CapPlatformAdmin) {
		return nil
	}
	return domain.Authorize(id, domain.CapTenantMember)
}

func (s *RecordService[T]) scope(id *domain.Identity, opts ListOptions) domain.RecordQuery {
	q := domain.AllRecords()
	switch {
	case !id.Allows(domain.CapPlatformAdmin):
		q = q.ForTenant(*id.TenantID)
	case opts.TenantID != nil:
		q = q.ForTenant(*opts.TenantID)
	}
	if !opts.IncludeDeleted {
		q = q.Active()
	}
	return q
}

func (s *RecordService[T]) List(ctx context.Context, id *domain.Identity, opts ListOptions) ([]T, error) {
	if err := authorizeRead(id); err != nil {
		return nil, err
	}
	return s.store.List(ctx, s.scope(id, opts))
}

// Count reports how many records List would return.
func (s *RecordService[T]) Count(ctx context.Context, id *domain.Identity, opts ListOptions) (int, error) {
	if err := authorizeRead(id); err != nil {
		return 0, err
	}
	return s.store.Count(ctx, s.scope(id, opts))
}

// Get loads a record and checks the caller may see its tenant.
func (s *RecordService[T]) Get(ctx context.Context, id *domain.Identity, recID uuid.UUID, includeDeleted bool) (T, error) {
	var zero T
	if err := authorizeRead(id); err != nil {
		return zero, err
	}

	q := domain.AllRecords()
	if !includeDeleted {
		q = q.Active()
	}
	rec, err := s.store.Get(ctx, recID, q)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, ErrRecordNotFound
		}
		return zero, err
	}
	if err := domain.AuthorizeObject(id, rec.Base().TenantID); err != nil {
		return zero, err
	}
	return rec, nil
}

// SoftDelete hides an active record from the active view. Managers and up.
func (s *RecordService[T]) SoftDelete(ctx context.Context, id *domain.Identity, recID uuid.UUID) (time.Time, error) {
	rec, err := s.authorizeWrite(ctx, id, recID, domain.CapManage)
	if err != nil {
		return time.Time{}, err
	}
	at, err := s.store.SoftDelete(ctx, recID, rec.Base().TenantID)
	return at, notFound(err)
}

// Restore brings a soft-deleted record back. Tenant admins and up.
func (s *RecordService[T]) Restore(ctx context.Context, id *domain.Identity, recID uuid.UUID) (T, error) {
	var zero T
	rec, err := s.authorizeWrite(ctx, id, recID, domain.CapTenantAdmin)
	if err != nil {
		return zero, err
	}
	if err := s.store.Restore(ctx, recID, rec.Base().TenantID); err != nil {
		return zero, notFound(err)
	}
	rec.Base().Restore()
	return rec, nil
}

// HardDelete removes a record permanently. Tenant admins and up.
func (s *RecordService[T]) HardDelete(ctx context.Context, id *domain.Identity, recID uuid.UUID) error {
	rec, err := s.authorizeWrite(ctx, id, recID, domain.CapTenantAdmin)
	if err != nil {
		return err
	}
	return notFound(s.store.HardDelete(ctx, recID, rec.Base().TenantID))
}

func (s *RecordService[T]) authorizeWrite(ctx context.Context, id *domain.Identity, recID uuid.UUID, c domain.Capability) (T, error) {
	var zero T
	if err := domain.Authorize(id, c); err != nil {
		return zero, err
	}
	return s.Get(ctx, id, recID, true)
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrRecordNotFound
	}
	return err
}
