package domain

type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "AVAILABLE"
	UnitStatusMaintenance UnitStatus = "MAINTENANCE"
	UnitStatusRetired     UnitStatus = "RETIRED"
)

// VehicleModel is a rentable model; prices are VND.
type VehicleModel struct {
	ID            int32  `json:"id"`
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	StationID     int32  `json:"station_id"`
	Seats         int32  `json:"seats"`
	RangeKm       int32  `json:"range_km"`
	PricePerDay   int64  `json:"price_per_day"`
	DepositAmount int64  `json:"deposit_amount"`
}

// Unit is a physical vehicle (license plate) backing a model.
type Unit struct {
	ID             int32      `json:"id"`
	VehicleModelID int32      `json:"vehicle_model_id"`
	LicensePlate   string     `json:"license_plate"`
	Status         UnitStatus `json:"status"`
}

// Rentable reports whether the unit may be assigned at all.
func (u Unit) Rentable() bool {
	return u.Status == UnitStatusAvailable
}

// VehicleFilter narrows the search for available models. Zero values mean
// "no constraint".
type VehicleFilter struct {
	StationID      int32  `json:"station_id"`
	Brand          string `json:"brand"`
	MinSeats       int32  `json:"min_seats"`
	MaxPricePerDay int64  `json:"max_price_per_day"`
}

type AvailableVehicle struct {
	VehicleModel
	AvailableUnits int `json:"available_units"`
}
