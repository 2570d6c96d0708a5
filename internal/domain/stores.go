package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
}

type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type TokenStore interface {
	// GetOrCreate returns the user's live token, inserting key when the
	// user has none or the existing one is older than the cutoff.
	GetOrCreate(ctx context.Context, userID uuid.UUID, key string, staleBefore time.Time) (*Token, error)
	// Replace swaps the user's token for key in one step.
	Replace(ctx context.Context, userID uuid.UUID, key string) (*Token, error)
	// DeleteByUser removes the user's token. Absent tokens are not an error.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	GetByKey(ctx context.Context, key string) (*Token, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RecordStore is the tenant-scoped, soft-delete aware access path for an
// entity type T (a pointer to a struct embedding TenantRecord).
type RecordStore[T TenantOwned] interface {
	List(ctx context.Context, q RecordQuery) ([]T, error)
	Get(ctx context.Context, id uuid.UUID, q RecordQuery) (T, error)
	Count(ctx context.Context, q RecordQuery) (int, error)
	SoftDelete(ctx context.Context, id, tenantID uuid.UUID) (time.Time, error)
	Restore(ctx context.Context, id, tenantID uuid.UUID) error
	HardDelete(ctx context.Context, id, tenantID uuid.UUID) error
}

type VehicleStore interface {
	RecordStore[*Vehicle]
	Create(ctx context.Context, v *Vehicle) error
	Update(ctx context.Context, v *Vehicle) error
}

// TxStores are store handles bound to one transaction.
type TxStores struct {
	Tenants TenantStore
	Users   UserStore
	Tokens  TokenStore
}

// Transactor runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on error or panic.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx TxStores) error) error
}
