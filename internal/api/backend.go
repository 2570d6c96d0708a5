package api

import (
	"context"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/store"
	"github.com/fleema/fleetcore/internal/store/memstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend bundles the stores the app runs on.
type Backend struct {
	Tx       domain.Transactor
	Tenants  domain.TenantStore
	Users    domain.UserStore
	Tokens   domain.TokenStore
	Vehicles domain.VehicleStore
	// Ping reports whether the backing database is reachable.
	Ping func(ctx context.Context) error
}

func PostgresBackend(db *pgxpool.Pool) Backend {
	return Backend{
		Tx:       store.NewTxManager(db),
		Tenants:  store.NewTenantStore(db),
		Users:    store.NewUserStore(db),
		Tokens:   store.NewTokenStore(db),
		Vehicles: store.NewVehicleStore(db),
		Ping:     db.Ping,
	}
}

// MemoryBackend keeps everything in process. Data is lost on restart.
func MemoryBackend(mem *memstore.Store) Backend {
	return Backend{
		Tx:       mem,
		Tenants:  mem.Tenants(),
		Users:    mem.Users(),
		Tokens:   mem.Tokens(),
		Vehicles: memstore.NewVehicleStore(),
		Ping:     func(context.Context) error { return nil },
	}
}

var (
	_ domain.Transactor   = (*store.TxManager)(nil)
	_ domain.TenantStore  = (*store.TenantStore)(nil)
	_ domain.UserStore    = (*store.UserStore)(nil)
	_ domain.TokenStore   = (*store.TokenStore)(nil)
	_ domain.VehicleStore = (*store.VehicleStore)(nil)
)
