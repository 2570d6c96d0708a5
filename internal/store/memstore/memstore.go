// Package memstore is an in-process implementation of the domain stores,
// used for local development and tests. It enforces the same unique
// constraints and error sentinels as the postgres stores.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/store"
	"github.com/google/uuid"
)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	now  func() time.Time

	tenants map[uuid.UUID]domain.Tenant
	users   map[uuid.UUID]domain.User
	tokens  map[string]domain.Token // by key
}

func New() *Store {
	return &Store{
		now:     time.Now,
		tenants: make(map[uuid.UUID]domain.Tenant),
		users:   make(map[uuid.UUID]domain.User),
		tokens:  make(map[string]domain.Token),
	}
}

// SetClock overrides the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Tenants() *TenantStore { return &TenantStore{s: s} }
func (s *Store) Users() *UserStore     { return &UserStore{s: s} }
func (s *Store) Tokens() *TokenStore   { return &TokenStore{s: s} }

// WithinTx serialises transactions and restores the tenant, user and token
// tables if fn fails or panics. Non-transactional writes made concurrently
// by other goroutines are not isolated from the rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.TxStores) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	restore := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
		if err != nil {
			restore()
		}
	}()

	return fn(ctx, domain.TxStores{
		Tenants: s.Tenants(),
		Users:   s.Users(),
		Tokens:  s.Tokens(),
	})
}

func (s *Store) snapshot() func() {
	s.mu.RLock()
	tenants := make(map[uuid.UUID]domain.Tenant, len(s.tenants))
	for k, v := range s.tenants {
		tenants[k] = v
	}
	users := make(map[uuid.UUID]domain.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	tokens := make(map[string]domain.Token, len(s.tokens))
	for k, v := range s.tokens {
		tokens[k] = v
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.tenants, s.users, s.tokens = tenants, users, tokens
		s.mu.Unlock()
	}
}

// TenantCount and UserCount expose table sizes to tests.
func (s *Store) TenantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants)
}

func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

type TenantStore struct{ s *Store }

func (t *TenantStore) Create(ctx context.Context, tenant *domain.Tenant) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, existing := range t.s.tenants {
		if existing.Subdomain == tenant.Subdomain {
			return &store.ConstraintError{Constraint: store.ConstraintTenantSubdomain}
		}
	}
	now := t.s.now().UTC()
	tenant.ID = uuid.New()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	t.s.tenants[tenant.ID] = *tenant
	return nil
}

func (t *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	tenant, ok := t.s.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tenant, nil
}

func (t *TenantStore) Update(ctx context.Context, tenant *domain.Tenant) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	existing, ok := t.s.tenants[tenant.ID]
	if !ok {
		return store.ErrNotFound
	}
	tenant.Subdomain = existing.Subdomain
	tenant.CreatedAt = existing.CreatedAt
	tenant.UpdatedAt = t.s.now().UTC()
	t.s.tenants[tenant.ID] = *tenant
	return nil
}

func (t *TenantStore) SubdomainExists(ctx context.Context, subdomain string) (bool, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	for _, existing := range t.s.tenants {
		if existing.Subdomain == subdomain {
			return true, nil
		}
	}
	return false, nil
}

type UserStore struct{ s *Store }

func (u *UserStore) Create(ctx context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return &store.ConstraintError{Constraint: store.ConstraintUserEmail}
		}
	}
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	if user.TenantID != nil {
		if _, ok := u.s.tenants[*user.TenantID]; !ok {
			return store.ErrNotFound
		}
	} else if user.Role.RequiresTenant() {
		return fmt.Errorf("%w: %s without tenant", store.ErrCheckFailed, user.Role)
	}
	user.ID = uuid.New()
	user.DateJoined = u.s.now().UTC()
	u.s.users[user.ID] = *user
	return nil
}

func (u *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	for _, user := range u.s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}

func (u *UserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := u.GetByEmail(ctx, email)
	if err == store.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (u *UserStore) UpdateProfile(ctx context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	existing, ok := u.s.users[user.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Phone = user.Phone
	u.s.users[user.ID] = existing
	return nil
}

func (u *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	existing, ok := u.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	existing.PasswordHash = hash
	u.s.users[id] = existing
	return nil
}

// SetActive flips a user's active flag. There is no deactivation endpoint,
// so only tests call it.
func (u *UserStore) SetActive(id uuid.UUID, active bool) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	existing, ok := u.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	existing.IsActive = active
	u.s.users[id] = existing
	return nil
}

type TokenStore struct{ s *Store }

// byUser must be called with the lock held.
func (t *TokenStore) byUser(userID uuid.UUID) (domain.Token, bool) {
	for _, tok := range t.s.tokens {
		if tok.UserID == userID {
			return tok, true
		}
	}
	return domain.Token{}, false
}

func (t *TokenStore) GetOrCreate(ctx context.Context, userID uuid.UUID, key string, staleBefore time.Time) (*domain.Token, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if existing, ok := t.byUser(userID); ok {
		if !existing.CreatedAt.Before(staleBefore) {
			return &existing, nil
		}
		delete(t.s.tokens, existing.Key)
	}
	return t.insert(userID, key)
}

func (t *TokenStore) Replace(ctx context.Context, userID uuid.UUID, key string) (*domain.Token, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if existing, ok := t.byUser(userID); ok {
		delete(t.s.tokens, existing.Key)
	}
	return t.insert(userID, key)
}

func (t *TokenStore) insert(userID uuid.UUID, key string) (*domain.Token, error) {
	if _, ok := t.s.users[userID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := t.s.tokens[key]; ok {
		return nil, &store.ConstraintError{Constraint: "auth_tokens_pkey"}
	}
	tok := domain.Token{Key: key, UserID: userID, CreatedAt: t.s.now().UTC()}
	t.s.tokens[key] = tok
	return &tok, nil
}

func (t *TokenStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if existing, ok := t.byUser(userID); ok {
		delete(t.s.tokens, existing.Key)
	}
	return nil
}

func (t *TokenStore) GetByKey(ctx context.Context, key string) (*domain.Token, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	tok, ok := t.s.tokens[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tok, nil
}

func (t *TokenStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	var n int64
	for key, tok := range t.s.tokens {
		if tok.CreatedAt.Before(cutoff) {
			delete(t.s.tokens, key)
			n++
		}
	}
	return n, nil
}

// RecordTable is the in-memory twin of store.RecordTable. clone keeps
// callers from mutating stored rows through returned pointers.
type RecordTable[T domain.TenantOwned] struct {
	mu    sync.RWMutex
	now   func() time.Time
	rows  map[uuid.UUID]T
	clone func(T) T
}

func NewRecordTable[T domain.TenantOwned](clone func(T) T) *RecordTable[T] {
	return &RecordTable[T]{now: time.Now, rows: make(map[uuid.UUID]T), clone: clone}
}

// SetClock overrides the time source.
func (t *RecordTable[T]) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

func (t *RecordTable[T]) insert(rec T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	base := rec.Base()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := t.now().UTC()
	base.CreatedAt = now
	base.UpdatedAt = now
	t.rows[base.ID] = t.clone(rec)
}

func (t *RecordTable[T]) List(ctx context.Context, q domain.RecordQuery) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []T
	for _, rec := range t.rows {
		if q.Matches(rec.Base()) {
			out = append(out, t.clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Base(), out[j].Base()
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (t *RecordTable[T]) Get(ctx context.Context, id uuid.UUID, q domain.RecordQuery) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.rows[id]
	if !ok || !q.Matches(rec.Base()) {
		var zero T
		return zero, store.ErrNotFound
	}
	return t.clone(rec), nil
}

func (t *RecordTable[T]) Count(ctx context.Context, q domain.RecordQuery) (int, error) {
	list, err := t.List(ctx, q)
	return len(list), err
}

func (t *RecordTable[T]) owned(id, tenantID uuid.UUID) (T, bool) {
	rec, ok := t.rows[id]
	if !ok || rec.Base().TenantID != tenantID {
		var zero T
		return zero, false
	}
	return rec, true
}

func (t *RecordTable[T]) SoftDelete(ctx context.Context, id, tenantID uuid.UUID) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.owned(id, tenantID)
	if !ok {
		return time.Time{}, store.ErrNotFound
	}
	rec.Base().MarkDeleted(t.now())
	return *rec.Base().DeletedAt, nil
}

func (t *RecordTable[T]) Restore(ctx context.Context, id, tenantID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.owned(id, tenantID)
	if !ok {
		return store.ErrNotFound
	}
	rec.Base().Restore()
	return nil
}

func (t *RecordTable[T]) HardDelete(ctx context.Context, id, tenantID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.owned(id, tenantID); !ok {
		return store.ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

type VehicleStore struct {
	*RecordTable[*domain.Vehicle]
}

func NewVehicleStore() *VehicleStore {
	return &VehicleStore{RecordTable: NewRecordTable(func(v *domain.Vehicle) *domain.Vehicle {
		c := *v
		if v.DeletedAt != nil {
			d := *v.DeletedAt
			c.DeletedAt = &d
		}
		return &c
	})}
}

func (s *VehicleStore) Create(ctx context.Context, v *domain.Vehicle) error {
	s.insert(v)
	return nil
}

func (s *VehicleStore) Update(ctx context.Context, v *domain.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.owned(v.ID, v.TenantID)
	if !ok {
		return store.ErrNotFound
	}
	existing.Name = v.Name
	existing.PlateNumber = v.PlateNumber
	existing.UpdatedAt = s.now().UTC()
	v.UpdatedAt = existing.UpdatedAt
	return nil
}

var (
	_ domain.Transactor   = (*Store)(nil)
	_ domain.TenantStore  = (*TenantStore)(nil)
	_ domain.UserStore    = (*UserStore)(nil)
	_ domain.TokenStore   = (*TokenStore)(nil)
	_ domain.VehicleStore = (*VehicleStore)(nil)
)
