package store

import (
	"context"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/jackc/pgx/v5"
)

type VehicleStore struct {
	RecordTable[*domain.Vehicle]
}

func NewVehicleStore(db Querier) *VehicleStore {
	return &VehicleStore{
		RecordTable: NewRecordTable(db, "vehicles", []string{"name", "plate_number"}, scanVehicle),
	}
}

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	err := row.Scan(&v.ID, &v.TenantID, &v.CreatedAt, &v.UpdatedAt, &v.DeletedAt, &v.Name, &v.PlateNumber)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *VehicleStore) Create(ctx context.Context, v *domain.Vehicle) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO vehicles (tenant_id, name, plate_number)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		v.TenantID, v.Name, v.PlateNumber,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	return mapError(err)
}

// Update writes the mutable columns. tenant_id is never rewritten.
func (s *VehicleStore) Update(ctx context.Context, v *domain.Vehicle) error {
	err := s.db.QueryRow(ctx,
		`UPDATE vehicles SET name = $3, plate_number = $4, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING updated_at`,
		v.ID, v.TenantID, v.Name, v.PlateNumber,
	).Scan(&v.UpdatedAt)
	return mapError(err)
}
