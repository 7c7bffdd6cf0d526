package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository"
)

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleModelColumns = `id, name, brand, station_id, seats, range_km, price_per_day, deposit_amount`

func (r *vehicleRepository) GetModel(ctx context.Context, id int32) (*domain.VehicleModel, error) {
	logger.EnterMethod("vehicleRepository.GetModel", "vehicleModelID", id)

	m := &domain.VehicleModel{}
	query := `SELECT ` + vehicleModelColumns + ` FROM vehicle_models WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.Name, &m.Brand, &m.StationID, &m.Seats, &m.RangeKm, &m.PricePerDay, &m.DepositAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("vehicle model %d", id)
	}
	if err != nil {
		logger.ExitMethodWithError("vehicleRepository.GetModel", err, "vehicleModelID", id)
		return nil, err
	}

	logger.ExitMethod("vehicleRepository.GetModel", "vehicleModelID", id)
	return m, nil
}

func (r *vehicleRepository) ListModels(ctx context.Context, f domain.VehicleFilter) ([]domain.VehicleModel, error) {
	logger.EnterMethod("vehicleRepository.ListModels", "stationID", f.StationID, "brand", f.Brand)

	query := `SELECT ` + vehicleModelColumns + ` FROM vehicle_models WHERE 1=1`
	var args []any
	if f.StationID > 0 {
		args = append(args, f.StationID)
		query += fmt.Sprintf(" AND station_id = $%d", len(args))
	}
	if f.Brand != "" {
		args = append(args, f.Brand)
		query += fmt.Sprintf(" AND LOWER(brand) = LOWER($%d)", len(args))
	}
	if f.MinSeats > 0 {
		args = append(args, f.MinSeats)
		query += fmt.Sprintf(" AND seats >= $%d", len(args))
	}
	if f.MaxPricePerDay > 0 {
		args = append(args, f.MaxPricePerDay)
		query += fmt.Sprintf(" AND price_per_day <= $%d", len(args))
	}
	query += " ORDER BY id"

	logger.DatabaseCall("ListModels", query, "args", len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("ListModels", 0, err)
		return nil, err
	}
	defer rows.Close()

	var models []domain.VehicleModel
	for rows.Next() {
		var m domain.VehicleModel
		if err := rows.Scan(&m.ID, &m.Name, &m.Brand, &m.StationID, &m.Seats, &m.RangeKm, &m.PricePerDay, &m.DepositAmount); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	logger.DatabaseResult("ListModels", int64(len(models)), rows.Err())
	return models, rows.Err()
}

func (r *vehicleRepository) ListUnits(ctx context.Context, vehicleModelID int32) ([]domain.Unit, error) {
	return selectUnits(ctx, r.db, vehicleModelID)
}

func (r *vehicleRepository) ListBookedWindows(ctx context.Context, vehicleModelID int32, start, end time.Time) ([]domain.UnitAssignment, error) {
	return selectBookedWindows(ctx, r.db, vehicleModelID, start, end)
}

func selectUnits(ctx context.Context, q querier, vehicleModelID int32) ([]domain.Unit, error) {
	query := `SELECT id, vehicle_model_id, license_plate, status FROM units WHERE vehicle_model_id = $1 ORDER BY id`
	rows, err := q.QueryContext(ctx, query, vehicleModelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []domain.Unit
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.VehicleModelID, &u.LicensePlate, &u.Status); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// selectBookedWindows uses the same half-open overlap test as
// domain.Overlaps.
func selectBookedWindows(ctx context.Context, q querier, vehicleModelID int32, start, end time.Time) ([]domain.UnitAssignment, error) {
	query := `SELECT ou.order_id, ou.unit_id, u.license_plate, ou.start_time, ou.end_time, ou.active
	          FROM order_units ou JOIN units u ON u.id = ou.unit_id
	          WHERE u.vehicle_model_id = $1 AND ou.active AND ou.start_time < $3 AND ou.end_time > $2`
	rows, err := q.QueryContext(ctx, query, vehicleModelID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var booked []domain.UnitAssignment
	for rows.Next() {
		var a domain.UnitAssignment
		if err := rows.Scan(&a.OrderID, &a.UnitID, &a.LicensePlate, &a.StartTime, &a.EndTime, &a.Active); err != nil {
			return nil, err
		}
		booked = append(booked, a)
	}
	return booked, rows.Err()
}
