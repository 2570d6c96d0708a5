package domain

// Vehicle is the sample tenant-owned resource gated by the role engine.
type Vehicle struct {
	TenantRecord
	Name        string `json:"name"`
	PlateNumber string `json:"plate_number"`
}

type VehicleInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	PlateNumber string `json:"plate_number" validate:"required,max=20"`
}
