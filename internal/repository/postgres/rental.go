package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const orderColumns = `id, user_id, vehicle_model_id, start_time, end_time, total_amount, status, booking_for_others,
	COALESCE(renter_license_image_ref, ''), COALESCE(staff_notes, ''), COALESCE(cancel_reason, ''), cancelled_by, created_at, updated_at`

const contractColumns = `id, order_id, code, status, deposit_amount, rental_fee, extra_fees, total_amount, deposit_paid,
	handover_odometer, handover_battery, COALESCE(handover_photo_ref, ''), COALESCE(handover_notes, ''), handed_over_at,
	return_odometer, return_battery, COALESCE(return_photo_ref, ''), COALESCE(return_notes, ''), returned_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := &domain.Order{}
	var total sql.NullInt64
	var cancelledBy sql.NullInt32
	err := row.Scan(&o.ID, &o.UserID, &o.VehicleModelID, &o.StartTime, &o.EndTime, &total, &o.Status, &o.BookingForOthers,
		&o.RenterLicenseImageRef, &o.StaffNotes, &o.CancelReason, &cancelledBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if total.Valid {
		o.TotalAmount = &total.Int64
	}
	if cancelledBy.Valid {
		o.CancelledBy = &cancelledBy.Int32
	}
	return o, nil
}

func scanContract(row rowScanner) (*domain.Contract, error) {
	c := &domain.Contract{}
	var extras []byte
	err := row.Scan(&c.ID, &c.OrderID, &c.Code, &c.Status, &c.DepositAmount, &c.RentalFee, &extras, &c.TotalAmount, &c.DepositPaid,
		&c.HandoverOdometer, &c.HandoverBattery, &c.HandoverPhotoRef, &c.HandoverNotes, &c.HandedOverAt,
		&c.ReturnOdometer, &c.ReturnBattery, &c.ReturnPhotoRef, &c.ReturnNotes, &c.ReturnedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &c.ExtraFees); err != nil {
			return nil, fmt.Errorf("decode extra fees for contract %d: %w", c.ID, err)
		}
	}
	return c, nil
}

// encodeExtraFees renders fees as JSON text; lib/pq would send []byte as
// bytea, which jsonb does not accept.
func encodeExtraFees(fees []domain.ExtraFee) (string, error) {
	if fees == nil {
		fees = []domain.ExtraFee{}
	}
	b, err := json.Marshal(fees)
	return string(b), err
}

func (r *rentalRepository) CreateRental(ctx context.Context, o *domain.Order, c *domain.Contract, pick repository.UnitPicker) (*domain.Unit, error) {
	logger.EnterMethod("rentalRepository.CreateRental", "userID", o.UserID, "vehicleModelID", o.VehicleModelID)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.CreateRental", err)
		return nil, err
	}
	defer tx.Rollback()

	// Claims for the same model queue on this row lock until commit.
	var modelID int32
	err = tx.QueryRowContext(ctx, `SELECT id FROM vehicle_models WHERE id = $1 FOR UPDATE`, o.VehicleModelID).Scan(&modelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("vehicle model %d", o.VehicleModelID)
	}
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.CreateRental", err, "vehicleModelID", o.VehicleModelID)
		return nil, err
	}

	units, err := selectUnits(ctx, tx, modelID)
	if err != nil {
		return nil, err
	}
	booked, err := selectBookedWindows(ctx, tx, modelID, o.StartTime, o.EndTime)
	if err != nil {
		return nil, err
	}
	unit, ok := pick(units, booked)
	if !ok {
		logger.ExitMethod("rentalRepository.CreateRental", "vehicleModelID", modelID, "result", "no unit")
		return nil, domain.ErrNoUnitAvailable
	}

	now := time.Now()
	orderQuery := `INSERT INTO orders (user_id, vehicle_model_id, start_time, end_time, total_amount, status, booking_for_others,
	                   renter_license_image_ref, created_at, updated_at)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, orderQuery, o.UserID, o.VehicleModelID, o.StartTime, o.EndTime, o.TotalAmount, o.Status,
		o.BookingForOthers, o.RenterLicenseImageRef, now, now).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.CreateRental", err, "step", "order")
		return nil, mapError(err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO order_units (order_id, unit_id, start_time, end_time, active) VALUES ($1, $2, $3, $4, TRUE)`,
		o.ID, unit.ID, o.StartTime, o.EndTime)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.CreateRental", err, "step", "assignment", "unitID", unit.ID)
		return nil, mapError(err)
	}

	extras, err := encodeExtraFees(c.ExtraFees)
	if err != nil {
		return nil, err
	}
	c.OrderID = o.ID
	contractQuery := `INSERT INTO contracts (order_id, code, status, deposit_amount, rental_fee, extra_fees, total_amount, deposit_paid, created_at)
	                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, contractQuery, c.OrderID, c.Code, c.Status, c.DepositAmount, c.RentalFee, extras, c.TotalAmount,
		c.DepositPaid, now).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.CreateRental", err, "step", "contract")
		return nil, mapError(err)
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("rentalRepository.CreateRental", err, "step", "commit")
		return nil, mapError(err)
	}

	o.Contract = c
	o.Units = []domain.UnitAssignment{{
		OrderID: o.ID, UnitID: unit.ID, LicensePlate: unit.LicensePlate,
		StartTime: o.StartTime, EndTime: o.EndTime, Active: true,
	}}
	logger.ExitMethod("rentalRepository.CreateRental", "orderID", o.ID, "unitID", unit.ID)
	return unit, nil
}

func (r *rentalRepository) GetOrder(ctx context.Context, id int32) (*domain.Order, error) {
	logger.EnterMethod("rentalRepository.GetOrder", "orderID", id)

	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("order %d", id)
	}
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.GetOrder", err, "orderID", id)
		return nil, err
	}

	c, err := scanContract(r.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE order_id = $1`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		logger.ExitMethodWithError("rentalRepository.GetOrder", err, "orderID", id, "step", "contract")
		return nil, err
	default:
		o.Contract = c
	}

	rows, err := r.db.QueryContext(ctx, `SELECT ou.order_id, ou.unit_id, u.license_plate, ou.start_time, ou.end_time, ou.active
	                                     FROM order_units ou JOIN units u ON u.id = ou.unit_id
	                                     WHERE ou.order_id = $1 ORDER BY ou.unit_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.UnitAssignment
		if err := rows.Scan(&a.OrderID, &a.UnitID, &a.LicensePlate, &a.StartTime, &a.EndTime, &a.Active); err != nil {
			return nil, err
		}
		o.Units = append(o.Units, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.ExitMethod("rentalRepository.GetOrder", "orderID", id, "status", o.Status)
	return o, nil
}

func (r *rentalRepository) UpdateRental(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	logger.EnterMethod("rentalRepository.UpdateRental", "orderID", o.ID, "from", from, "to", o.Status)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	query := `UPDATE orders SET status=$1, total_amount=$2, staff_notes=$3, cancel_reason=$4, cancelled_by=$5, updated_at=$6
	          WHERE id=$7 AND status=$8`
	logger.DatabaseCall("UpdateRental", query, "orderID", o.ID)
	res, err := tx.ExecContext(ctx, query, o.Status, o.TotalAmount, o.StaffNotes, o.CancelReason, o.CancelledBy, now, o.ID, from)
	if err != nil {
		logger.DatabaseResult("UpdateRental", 0, err)
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UpdateRental", n, nil)
	if n == 0 {
		// Lost the race, or the order does not exist.
		var current domain.OrderStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, o.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("order %d", o.ID)
		}
		if err != nil {
			return err
		}
		return &domain.TransitionError{Action: "update", Current: current, Required: []domain.OrderStatus{from}}
	}

	if c := o.Contract; c != nil {
		extras, err := encodeExtraFees(c.ExtraFees)
		if err != nil {
			return err
		}
		// deposit_paid belongs to MarkDepositPaid; writing it here could undo a
		// payment recorded after this order was read.
		contractQuery := `UPDATE contracts SET status=$1, rental_fee=$2, extra_fees=$3, total_amount=$4,
		                      handover_odometer=$5, handover_battery=$6, handover_photo_ref=$7, handover_notes=$8, handed_over_at=$9,
		                      return_odometer=$10, return_battery=$11, return_photo_ref=$12, return_notes=$13, returned_at=$14
		                  WHERE id=$15`
		_, err = tx.ExecContext(ctx, contractQuery, c.Status, c.RentalFee, extras, c.TotalAmount,
			c.HandoverOdometer, c.HandoverBattery, c.HandoverPhotoRef, c.HandoverNotes, c.HandedOverAt,
			c.ReturnOdometer, c.ReturnBattery, c.ReturnPhotoRef, c.ReturnNotes, c.ReturnedAt, c.ID)
		if err != nil {
			logger.ExitMethodWithError("rentalRepository.UpdateRental", err, "orderID", o.ID, "step", "contract")
			return mapError(err)
		}
	}

	// Completed and cancelled orders stop holding their unit.
	release := !o.Status.Holding()
	if release {
		if _, err := tx.ExecContext(ctx, `UPDATE order_units SET active = FALSE WHERE order_id = $1`, o.ID); err != nil {
			logger.ExitMethodWithError("rentalRepository.UpdateRental", err, "orderID", o.ID, "step", "release")
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	o.UpdatedAt = now
	if release {
		for i := range o.Units {
			o.Units[i].Active = false
		}
	}
	logger.ExitMethod("rentalRepository.UpdateRental", "orderID", o.ID, "status", o.Status)
	return nil
}

func (r *rentalRepository) ListOrders(ctx context.Context, userID *int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	logger.EnterMethod("rentalRepository.ListOrders", "status", status, "page", page)

	offset := (page - 1) * pageSize
	where := ` WHERE 1=1`
	var args []any
	if userID != nil {
		args = append(args, *userID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&count); err != nil {
		logger.ExitMethodWithError("rentalRepository.ListOrders", err)
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.ListOrders", err)
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	logger.ExitMethod("rentalRepository.ListOrders", "count", len(orders), "total", count)
	return orders, count, rows.Err()
}

// MarkDepositPaid records the deposit on a live order. A cancelled order is
// left untouched and reported as a transition error so the payment can be
// refunded instead.
func (r *rentalRepository) MarkDepositPaid(ctx context.Context, orderID int32) error {
	query := `UPDATE contracts c SET deposit_paid = TRUE
	          FROM orders o
	          WHERE o.id = c.order_id AND c.order_id = $1 AND o.status <> $2`
	logger.DatabaseCall("MarkDepositPaid", query, "orderID", orderID)
	res, err := r.db.ExecContext(ctx, query, orderID, domain.OrderStatusCancelled)
	if err != nil {
		logger.DatabaseResult("MarkDepositPaid", 0, err)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("MarkDepositPaid", n, nil)
	if n > 0 {
		return nil
	}

	var current domain.OrderStatus
	err = r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("contract for order %d", orderID)
	}
	if err != nil {
		return err
	}
	if current == domain.OrderStatusCancelled {
		return &domain.TransitionError{Action: "record deposit", Current: current,
			Required: []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusActive, domain.OrderStatusCompleted}}
	}
	return domain.NotFoundf("contract for order %d", orderID)
}

func (r *rentalRepository) ListLapsedPending(ctx context.Context, cutoff time.Time) ([]int32, error) {
	query := `SELECT id FROM orders WHERE status = $1 AND start_time < $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, domain.OrderStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
