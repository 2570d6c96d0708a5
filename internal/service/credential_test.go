package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/store"
	"github.com/fleema/fleetcore/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockTokenStore mocks the TokenStore interface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) GetOrCreate(ctx context.Context, userID uuid.UUID, key string, staleBefore time.Time) (*domain.Token, error) {
	args := m.Called(ctx, userID, key, staleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Token), args.Error(1)
}

func (m *MockTokenStore) Replace(ctx context.Context, userID uuid.UUID, key string) (*domain.Token, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Token), args.Error(1)
}

func (m *MockTokenStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTokenStore) GetByKey(ctx context.Context, key string) (*domain.Token, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Token), args.Error(1)
}

func (m *MockTokenStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func seedUser(t *testing.T, mem *memstore.Store) *domain.User {
	t.Helper()
	ctx := context.Background()
	tenant := &domain.Tenant{Name: "Acme", Subdomain: "acme-" + uuid.NewString()[:8], Email: "acme@example.com", IsActive: true}
	require.NoError(t, mem.Tenants().Create(ctx, tenant))
	user := &domain.User{
		Email:    uuid.NewString()[:8] + "@example.com",
		Role:     domain.RoleEmployee,
		TenantID: &tenant.ID,
		IsActive: true,
	}
	require.NoError(t, mem.Users().Create(ctx, user))
	return user
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, key, TokenLength)
		assert.True(t, wellFormedToken(key))
		assert.False(t, seen[key], "duplicate token generated")
		seen[key] = true
	}
}

func TestWellFormedToken(t *testing.T) {
	assert.True(t, wellFormedToken(strings.Repeat("a", TokenLength)))
	assert.False(t, wellFormedToken(""))
	assert.False(t, wellFormedToken(strings.Repeat("a", TokenLength-1)))
	assert.False(t, wellFormedToken(strings.Repeat("A", TokenLength)))
	assert.False(t, wellFormedToken(strings.Repeat("g", TokenLength)))
	assert.False(t, wellFormedToken(strings.Repeat("a", TokenLength)+"'--"))
}

func TestCredentialService_IssueIsIdempotent(t *testing.T) {
	mem := memstore.New()
	user := seedUser(t, mem)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), time.Hour, zap.NewNop())
	ctx := context.Background()

	first, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)
	second, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCredentialService_RotateReplaces(t *testing.T) {
	mem := memstore.New()
	user := seedUser(t, mem)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), time.Hour, zap.NewNop())
	ctx := context.Background()

	old, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)
	fresh, err := creds.Rotate(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	_, err = creds.Resolve(ctx, old)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	got, err := creds.Resolve(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestCredentialService_Expiry(t *testing.T) {
	mem := memstore.New()
	clk := newClock()
	mem.SetClock(clk.now)
	user := seedUser(t, mem)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), time.Hour, zap.NewNop())
	creds.SetClock(clk.now)
	ctx := context.Background()

	key, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)

	clk.advance(59 * time.Minute)
	_, err = creds.Resolve(ctx, key)
	require.NoError(t, err)

	clk.advance(2 * time.Minute)
	_, err = creds.Resolve(ctx, key)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// An expired token is replaced on the next issue.
	renewed, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, key, renewed)
	_, err = creds.Resolve(ctx, renewed)
	assert.NoError(t, err)
}

func TestCredentialService_ZeroTTLNeverExpires(t *testing.T) {
	mem := memstore.New()
	clk := newClock()
	mem.SetClock(clk.now)
	user := seedUser(t, mem)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), 0, zap.NewNop())
	creds.SetClock(clk.now)
	ctx := context.Background()

	key, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)
	clk.advance(10 * 365 * 24 * time.Hour)
	_, err = creds.Resolve(ctx, key)
	assert.NoError(t, err)

	n, err := creds.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCredentialService_ResolveInactiveUser(t *testing.T) {
	mem := memstore.New()
	user := seedUser(t, mem)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), time.Hour, zap.NewNop())
	ctx := context.Background()

	key, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, mem.Users().SetActive(user.ID, false))

	_, err = creds.Resolve(ctx, key)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCredentialService_ResolveMalformedSkipsStore(t *testing.T) {
	tokens := new(MockTokenStore)
	creds := NewCredentialService(tokens, memstore.New().Users(), time.Hour, zap.NewNop())

	for _, key := range []string{"", "short", "Token abc", strings.Repeat("z", TokenLength)} {
		_, err := creds.Resolve(context.Background(), key)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	}
	tokens.AssertNotCalled(t, "GetByKey", mock.Anything, mock.Anything)
}

func TestCredentialService_ResolveStoreFailure(t *testing.T) {
	tokens := new(MockTokenStore)
	key := strings.Repeat("b", TokenLength)
	boom := errors.New("connection reset")
	tokens.On("GetByKey", mock.Anything, key).Return(nil, boom)

	creds := NewCredentialService(tokens, memstore.New().Users(), time.Hour, zap.NewNop())
	_, err := creds.Resolve(context.Background(), key)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrUnauthenticated)
	tokens.AssertExpectations(t)
}

func TestCredentialService_ResolveUnknownKey(t *testing.T) {
	tokens := new(MockTokenStore)
	key := strings.Repeat("c", TokenLength)
	tokens.On("GetByKey", mock.Anything, key).Return(nil, store.ErrNotFound)

	creds := NewCredentialService(tokens, memstore.New().Users(), time.Hour, zap.NewNop())
	_, err := creds.Resolve(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCredentialService_ResolveMetrics(t *testing.T) {
	mem := memstore.New()
	user := seedUser(t, mem)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), time.Hour, zap.NewNop())
	m := NewAuthMetrics(prometheus.NewRegistry())
	creds.SetMetrics(m)
	ctx := context.Background()

	key, err := creds.Issue(ctx, user.ID)
	require.NoError(t, err)
	_, err = creds.Resolve(ctx, key)
	require.NoError(t, err)
	_, err = creds.Resolve(ctx, "bogus")
	require.Error(t, err)
	_, err = creds.Resolve(ctx, strings.Repeat("b", TokenLength))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("resolve", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("resolve", "failure")))
}

func TestCredentialService_IssuePassesCutoff(t *testing.T) {
	tokens := new(MockTokenStore)
	clk := newClock()
	userID := uuid.New()
	tokens.On("GetOrCreate", mock.Anything, userID, mock.AnythingOfType("string"), clk.t.Add(-2*time.Hour)).
		Return(&domain.Token{Key: strings.Repeat("d", TokenLength), UserID: userID, CreatedAt: clk.t}, nil)

	creds := NewCredentialService(tokens, memstore.New().Users(), 2*time.Hour, zap.NewNop())
	creds.SetClock(clk.now)
	key, err := creds.Issue(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("d", TokenLength), key)
	tokens.AssertExpectations(t)
}

func TestCredentialService_RevokeWithoutToken(t *testing.T) {
	mem := memstore.New()
	user := seedUser(t, mem)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), time.Hour, zap.NewNop())
	assert.NoError(t, creds.Revoke(context.Background(), user.ID))
}

func TestTokenExpirer_Run(t *testing.T) {
	mem := memstore.New()
	clk := newClock()
	mem.SetClock(clk.now)
	creds := NewCredentialService(mem.Tokens(), mem.Users(), time.Hour, zap.NewNop())
	creds.SetClock(clk.now)
	ctx := context.Background()

	stale := seedUser(t, mem)
	staleKey, err := creds.Issue(ctx, stale.ID)
	require.NoError(t, err)

	clk.advance(90 * time.Minute)
	live := seedUser(t, mem)
	liveKey, err := creds.Issue(ctx, live.ID)
	require.NoError(t, err)

	NewTokenExpirer(creds, zap.NewNop()).run(ctx)

	_, err = mem.Tokens().GetByKey(ctx, staleKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = mem.Tokens().GetByKey(ctx, liveKey)
	assert.NoError(t, err)
}

func TestTokenExpirer_StartStop(t *testing.T) {
	tokens := new(MockTokenStore)
	tokens.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil).Maybe()

	e := NewTokenExpirer(NewCredentialService(tokens, memstore.New().Users(), time.Hour, zap.NewNop()), zap.NewNop())
	e.SetInterval(5 * time.Millisecond)
	e.Start()
	time.Sleep(20 * time.Millisecond)
	e.Stop()
}
