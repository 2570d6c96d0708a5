package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VehicleService struct {
	*RecordService[*domain.Vehicle]
	store  domain.VehicleStore
	logger *zap.Logger
}

func NewVehicleService(s domain.VehicleStore, logger *zap.Logger) *VehicleService {
	return &VehicleService{
		RecordService: NewRecordService[*domain.Vehicle](s),
		store:         s,
		logger:        logger,
	}
}

// Create adds a vehicle to the caller's tenant. Managers and up; the caller
// must belong to a tenant.
func (s *VehicleService) Create(ctx context.Context, id *domain.Identity, in domain.VehicleInput) (*domain.Vehicle, error) {
	if err := domain.Authorize(id, domain.CapManage); err != nil {
		return nil, err
	}
	if err := domain.Authorize(id, domain.CapTenantMember); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.PlateNumber = strings.ToUpper(strings.TrimSpace(in.PlateNumber))
	if verr := validateStruct(in); verr != nil {
		return nil, verr
	}

	v := &domain.Vehicle{
		TenantRecord: domain.TenantRecord{TenantID: *id.TenantID},
		Name:         in.Name,
		PlateNumber:  in.PlateNumber,
	}
	if err := s.store.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	s.logger.Info("vehicle created", zap.String("vehicle_id", v.ID.String()), zap.String("tenant_id", v.TenantID.String()))
	return v, nil
}

// Update rewrites name and plate of an active vehicle. The owning tenant is immutable.
func (s *VehicleService) Update(ctx context.Context, id *domain.Identity, vehicleID uuid.UUID, in domain.VehicleInput) (*domain.Vehicle, error) {
	if err := domain.Authorize(id, domain.CapManage); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.PlateNumber = strings.ToUpper(strings.TrimSpace(in.PlateNumber))
	if verr := validateStruct(in); verr != nil {
		return nil, verr
	}

	v, err := s.Get(ctx, id, vehicleID, false)
	if err != nil {
		return nil, err
	}
	v.Name = in.Name
	v.PlateNumber = in.PlateNumber
	if err := s.store.Update(ctx, v); err != nil {
		return nil, notFound(err)
	}
	return v, nil
}
