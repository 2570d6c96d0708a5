package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool, zap.NewNop()))
	// A second run finds every migration recorded.
	require.NoError(t, Migrate(ctx, pool, zap.NewNop()))
	return pool
}

func createTenant(t *testing.T, ctx context.Context, pool *pgxpool.Pool, subdomain string) *domain.Tenant {
	t.Helper()
	tenant := &domain.Tenant{
		Name:      subdomain,
		Subdomain: subdomain,
		Email:     subdomain + "@example.com",
		Currency:  domain.DefaultCurrency,
		Timezone:  domain.DefaultTimezone,
		IsActive:  true,
	}
	require.NoError(t, NewTenantStore(pool).Create(ctx, tenant))
	return tenant
}

func createUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID uuid.UUID, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", TenantID: &tenantID, IsActive: true}
	require.NoError(t, NewUserStore(pool).Create(ctx, u))
	return u
}

func countRows(t *testing.T, ctx context.Context, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(ctx, query, args...).Scan(&n))
	return n
}

func TestIntegration_Postgres(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgresContainer(t, ctx)

	t.Run("issue is idempotent", func(t *testing.T) {
		tenant := createTenant(t, ctx, pool, "issue")
		user := createUser(t, ctx, pool, tenant.ID, "issue@example.com")
		tokens := NewTokenStore(pool)

		first, err := tokens.GetOrCreate(ctx, user.ID, strings.Repeat("a", 40), time.Time{})
		require.NoError(t, err)
		second, err := tokens.GetOrCreate(ctx, user.ID, strings.Repeat("b", 40), time.Time{})
		require.NoError(t, err)

		assert.Equal(t, strings.Repeat("a", 40), first.Key)
		assert.Equal(t, first.Key, second.Key)
		assert.Equal(t, 1, countRows(t, ctx, pool, `SELECT count(*) FROM auth_tokens WHERE user_id = $1`, user.ID))
	})

	t.Run("issue replaces a stale token", func(t *testing.T) {
		tenant := createTenant(t, ctx, pool, "stale")
		user := createUser(t, ctx, pool, tenant.ID, "stale@example.com")
		tokens := NewTokenStore(pool)

		old, err := tokens.GetOrCreate(ctx, user.ID, strings.Repeat("c", 40), time.Time{})
		require.NoError(t, err)
		fresh, err := tokens.GetOrCreate(ctx, user.ID, strings.Repeat("d", 40), time.Now().Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, strings.Repeat("d", 40), fresh.Key)
		assert.False(t, fresh.CreatedAt.Before(old.CreatedAt))
		_, err = tokens.GetByKey(ctx, old.Key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rotate replaces the old key", func(t *testing.T) {
		tenant := createTenant(t, ctx, pool, "rotate")
		user := createUser(t, ctx, pool, tenant.ID, "rotate@example.com")
		tokens := NewTokenStore(pool)

		_, err := tokens.GetOrCreate(ctx, user.ID, strings.Repeat("e", 40), time.Time{})
		require.NoError(t, err)
		rotated, err := tokens.Replace(ctx, user.ID, strings.Repeat("f", 40))
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("f", 40), rotated.Key)

		_, err = tokens.GetByKey(ctx, strings.Repeat("e", 40))
		assert.ErrorIs(t, err, ErrNotFound)
		got, err := tokens.GetByKey(ctx, rotated.Key)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.UserID)
		assert.Equal(t, 1, countRows(t, ctx, pool, `SELECT count(*) FROM auth_tokens WHERE user_id = $1`, user.ID))

		require.NoError(t, tokens.DeleteByUser(ctx, user.ID))
		require.NoError(t, tokens.DeleteByUser(ctx, user.ID))
		_, err = tokens.GetByKey(ctx, rotated.Key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("failed transaction leaves no tenant", func(t *testing.T) {
		existing := createTenant(t, ctx, pool, "taken")
		createUser(t, ctx, pool, existing.ID, "dup@example.com")

		err := NewTxManager(pool).WithinTx(ctx, func(ctx context.Context, tx domain.TxStores) error {
			tenant := &domain.Tenant{Name: "Rolled Back", Subdomain: "rolled-back", Email: "dup@example.com", IsActive: true}
			if err := tx.Tenants.Create(ctx, tenant); err != nil {
				return err
			}
			return tx.Users.Create(ctx, &domain.User{Email: "dup@example.com", PasswordHash: "x", Role: domain.RoleTenantAdmin, TenantID: &tenant.ID, IsActive: true})
		})
		assert.True(t, IsConstraint(err, ConstraintUserEmail), "got %v", err)
		assert.Equal(t, 0, countRows(t, ctx, pool, `SELECT count(*) FROM tenants WHERE subdomain = $1`, "rolled-back"))

		sentinel := errors.New("abort")
		err = NewTxManager(pool).WithinTx(ctx, func(ctx context.Context, tx domain.TxStores) error {
			if err := tx.Tenants.Create(ctx, &domain.Tenant{Name: "Aborted", Subdomain: "aborted", Email: "a@example.com"}); err != nil {
				return err
			}
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		exists, err := NewTenantStore(pool).SubdomainExists(ctx, "aborted")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("constraint errors map to sentinels", func(t *testing.T) {
		createTenant(t, ctx, pool, "dupe")
		err := NewTenantStore(pool).Create(ctx, &domain.Tenant{Name: "Dupe", Subdomain: "dupe", Email: "d@example.com"})
		assert.True(t, IsConstraint(err, ConstraintTenantSubdomain), "got %v", err)

		err = NewTenantStore(pool).Create(ctx, &domain.Tenant{Name: "Long", Subdomain: strings.Repeat("x", 101), Email: "l@example.com"})
		assert.ErrorIs(t, err, ErrValueTooLong)

		err = NewUserStore(pool).Create(ctx, &domain.User{Email: "loose@example.com", PasswordHash: "x", Role: domain.RoleManager})
		assert.ErrorIs(t, err, ErrCheckFailed)

		u := &domain.User{Email: "root@example.com", PasswordHash: "x", Role: domain.RoleSuperadmin, IsActive: true}
		require.NoError(t, NewUserStore(pool).Create(ctx, u))
		assert.Nil(t, u.TenantID)
	})

	t.Run("soft delete round trip", func(t *testing.T) {
		tenant := createTenant(t, ctx, pool, "fleet")
		other := createTenant(t, ctx, pool, "other-fleet")
		vehicles := NewVehicleStore(pool)

		v := &domain.Vehicle{Name: "Truck", PlateNumber: "RAB 123A"}
		v.TenantID = tenant.ID
		require.NoError(t, vehicles.Create(ctx, v))
		keep := &domain.Vehicle{Name: "Van", PlateNumber: "RAB 456B"}
		keep.TenantID = tenant.ID
		require.NoError(t, vehicles.Create(ctx, keep))

		scope := domain.AllRecords().ForTenant(tenant.ID)

		_, err := vehicles.SoftDelete(ctx, v.ID, other.ID)
		assert.ErrorIs(t, err, ErrNotFound, "another tenant cannot delete the row")

		first, err := vehicles.SoftDelete(ctx, v.ID, tenant.ID)
		require.NoError(t, err)
		second, err := vehicles.SoftDelete(ctx, v.ID, tenant.ID)
		require.NoError(t, err)
		assert.False(t, second.Before(first), "repeated soft delete re-stamps")

		active, err := vehicles.List(ctx, scope.Active())
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, keep.ID, active[0].ID)

		n, err := vehicles.Count(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = vehicles.Get(ctx, v.ID, scope.Active())
		assert.ErrorIs(t, err, ErrNotFound)
		deleted, err := vehicles.Get(ctx, v.ID, scope)
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted())
		assert.Equal(t, "Truck", deleted.Name)

		require.NoError(t, vehicles.Restore(ctx, v.ID, tenant.ID))
		require.NoError(t, vehicles.Restore(ctx, v.ID, tenant.ID))
		restored, err := vehicles.Get(ctx, v.ID, scope.Active())
		require.NoError(t, err)
		assert.False(t, restored.IsDeleted())

		require.NoError(t, vehicles.HardDelete(ctx, v.ID, tenant.ID))
		assert.ErrorIs(t, vehicles.HardDelete(ctx, v.ID, tenant.ID), ErrNotFound)
		n, err = vehicles.Count(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("purge removes only expired tokens", func(t *testing.T) {
		tenant := createTenant(t, ctx, pool, "purge")
		user := createUser(t, ctx, pool, tenant.ID, "purge@example.com")
		tokens := NewTokenStore(pool)
		_, err := tokens.GetOrCreate(ctx, user.ID, strings.Repeat("9", 40), time.Time{})
		require.NoError(t, err)

		n, err := tokens.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = tokens.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		_, err = tokens.GetByKey(ctx, strings.Repeat("9", 40))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
