package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantRecord holds the ownership and lifecycle columns shared by every
// tenant-owned entity. Entities embed it by value.
type TenantRecord struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Base exposes the embedded record to generic code.
func (r *TenantRecord) Base() *TenantRecord {
	return r
}

func (r *TenantRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// MarkDeleted stamps the record as deleted at now. Calling it again re-stamps.
func (r *TenantRecord) MarkDeleted(now time.Time) {
	t := now.UTC()
	r.DeletedAt = &t
}

// Restore clears the deletion stamp. It is a no-op on active records.
func (r *TenantRecord) Restore() {
	r.DeletedAt = nil
}

// TenantOwned is satisfied by a pointer to any entity embedding TenantRecord.
type TenantOwned interface {
	Base() *TenantRecord
}

// RecordQuery describes a view over a tenant-owned table. The zero value is
// the "all" view: every tenant, soft-deleted rows included.
type RecordQuery struct {
	TenantID   *uuid.UUID
	ActiveOnly bool
}

// AllRecords is the unfiltered view used for audits and restores.
func AllRecords() RecordQuery {
	return RecordQuery{}
}

// ForTenant narrows q to records owned by tenantID. It does not touch
// soft-delete filtering.
func (q RecordQuery) ForTenant(tenantID uuid.UUID) RecordQuery {
	id := tenantID
	q.TenantID = &id
	return q
}

// Active narrows q to records whose deleted_at is null.
func (q RecordQuery) Active() RecordQuery {
	q.ActiveOnly = true
	return q
}

// Matches reports whether r falls inside the view.
func (q RecordQuery) Matches(r *TenantRecord) bool {
	if q.TenantID != nil && r.TenantID != *q.TenantID {
		return false
	}
	if q.ActiveOnly && r.IsDeleted() {
		return false
	}
	return true
}
