package repository

import (
	"context"
	"time"

	"evrental-backend/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
}

type VehicleRepository interface {
	GetModel(ctx context.Context, id int32) (*domain.VehicleModel, error)
	ListModels(ctx context.Context, filter domain.VehicleFilter) ([]domain.VehicleModel, error)
	ListUnits(ctx context.Context, vehicleModelID int32) ([]domain.Unit, error)
	// ListBookedWindows returns active assignments on the model's units that
	// overlap [start,end).
	ListBookedWindows(ctx context.Context, vehicleModelID int32, start, end time.Time) ([]domain.UnitAssignment, error)
}

// UnitPicker chooses a unit from a snapshot taken while the vehicle model is
// locked.
type UnitPicker func(units []domain.Unit, booked []domain.UnitAssignment) (*domain.Unit, bool)

type RentalRepository interface {
	// CreateRental locks the vehicle model, lets pick choose a unit from the
	// locked snapshot and inserts the order, its assignment and its contract in
	// one transaction. Returns domain.ErrNoUnitAvailable when pick finds
	// nothing.
	CreateRental(ctx context.Context, order *domain.Order, contract *domain.Contract, pick UnitPicker) (*domain.Unit, error)
	// GetOrder loads the order aggregate: order, contract and assignments.
	GetOrder(ctx context.Context, id int32) (*domain.Order, error)
	// UpdateRental persists order and contract if the stored order is still in
	// from. Moving to CANCELLED also clears the assignments' active flag.
	// Returns a *domain.TransitionError when the stored status has moved on.
	UpdateRental(ctx context.Context, order *domain.Order, from domain.OrderStatus) error
	// ListOrders pages through orders, newest first. A nil userID lists all.
	ListOrders(ctx context.Context, userID *int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error)
	MarkDepositPaid(ctx context.Context, orderID int32) error
	// ListLapsedPending returns ids of PENDING orders that started before cutoff.
	ListLapsedPending(ctx context.Context, cutoff time.Time) ([]int32, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error)
	// Resolve moves a PENDING payment to status and records txn, atomically.
	// It reports false, with nothing written, if the payment was already
	// resolved. txn may be nil for local expiry.
	Resolve(ctx context.Context, txnRef string, status domain.PaymentStatus, responseCode string, txn *domain.Transaction) (bool, error)
	// ListStalePending returns PENDING payments created before cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Payment, error)
}
