package service

import (
	"context"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockVehicleRepo
type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) GetModel(ctx context.Context, id int32) (*domain.VehicleModel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VehicleModel), args.Error(1)
}
func (m *MockVehicleRepo) ListModels(ctx context.Context, filter domain.VehicleFilter) ([]domain.VehicleModel, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.VehicleModel), args.Error(1)
}
func (m *MockVehicleRepo) ListUnits(ctx context.Context, vehicleModelID int32) ([]domain.Unit, error) {
	args := m.Called(ctx, vehicleModelID)
	return args.Get(0).([]domain.Unit), args.Error(1)
}
func (m *MockVehicleRepo) ListBookedWindows(ctx context.Context, vehicleModelID int32, start, end time.Time) ([]domain.UnitAssignment, error) {
	args := m.Called(ctx, vehicleModelID, start, end)
	return args.Get(0).([]domain.UnitAssignment), args.Error(1)
}

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) CreateRental(ctx context.Context, order *domain.Order, contract *domain.Contract, pick repository.UnitPicker) (*domain.Unit, error) {
	args := m.Called(ctx, order, contract, pick)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Unit), args.Error(1)
}
func (m *MockRentalRepo) GetOrder(ctx context.Context, id int32) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}
func (m *MockRentalRepo) UpdateRental(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	args := m.Called(ctx, order, from)
	return args.Error(0)
}
func (m *MockRentalRepo) ListOrders(ctx context.Context, userID *int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	args := m.Called(ctx, userID, status, page, pageSize)
	return args.Get(0).([]domain.Order), args.Get(1).(int32), args.Error(2)
}
func (m *MockRentalRepo) MarkDepositPaid(ctx context.Context, orderID int32) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}
func (m *MockRentalRepo) ListLapsedPending(ctx context.Context, cutoff time.Time) ([]int32, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]int32), args.Error(1)
}

// MockPaymentRepo
type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error) {
	args := m.Called(ctx, txnRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) Resolve(ctx context.Context, txnRef string, status domain.PaymentStatus, responseCode string, txn *domain.Transaction) (bool, error) {
	args := m.Called(ctx, txnRef, status, responseCode, txn)
	return args.Bool(0), args.Error(1)
}
func (m *MockPaymentRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Payment, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendRentalCreatedNotification(ctx context.Context, to *domain.User, order *domain.Order, licensePlate string) error {
	args := m.Called(ctx, to, order, licensePlate)
	return args.Error(0)
}
func (m *MockEmailService) SendRentalStatusNotification(ctx context.Context, to *domain.User, order *domain.Order) error {
	args := m.Called(ctx, to, order)
	return args.Error(0)
}
func (m *MockEmailService) SendPaymentReceipt(ctx context.Context, to *domain.User, p *domain.Payment) error {
	args := m.Called(ctx, to, p)
	return args.Error(0)
}

// MockPaymentObserver
type MockPaymentObserver struct {
	mock.Mock
}

func (m *MockPaymentObserver) PaymentResolved(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
