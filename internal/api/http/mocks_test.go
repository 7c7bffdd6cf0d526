package http

import (
	"context"
	"net/url"
	"time"

	"evrental-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockRentalService
type MockRentalService struct {
	mock.Mock
}

func order(args mock.Arguments) (*domain.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockRentalService) CreateRental(ctx context.Context, actor domain.Actor, req domain.CreateRentalRequest) (*domain.RentalResult, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalResult), args.Error(1)
}
func (m *MockRentalService) StaffConfirm(ctx context.Context, actor domain.Actor, orderID int32, accept bool, notes string) (*domain.Order, error) {
	return order(m.Called(ctx, actor, orderID, accept, notes))
}
func (m *MockRentalService) Handover(ctx context.Context, actor domain.Actor, orderID int32, insp domain.Inspection) (*domain.Order, error) {
	return order(m.Called(ctx, actor, orderID, insp))
}
func (m *MockRentalService) Return(ctx context.Context, actor domain.Actor, orderID int32, insp domain.Inspection) (*domain.Order, error) {
	return order(m.Called(ctx, actor, orderID, insp))
}
func (m *MockRentalService) Cancel(ctx context.Context, actor domain.Actor, orderID int32, reason string) (*domain.Order, error) {
	return order(m.Called(ctx, actor, orderID, reason))
}
func (m *MockRentalService) GetRental(ctx context.Context, actor domain.Actor, orderID int32) (*domain.Order, error) {
	return order(m.Called(ctx, actor, orderID))
}
func (m *MockRentalService) ListRentals(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	args := m.Called(ctx, actor, status, page, pageSize)
	var orders []domain.Order
	if args.Get(0) != nil {
		orders = args.Get(0).([]domain.Order)
	}
	return orders, args.Get(1).(int32), args.Error(2)
}
func (m *MockRentalService) CalculateCost(ctx context.Context, vehicleModelID int32, start, end time.Time) (*domain.CostQuote, error) {
	args := m.Called(ctx, vehicleModelID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CostQuote), args.Error(1)
}
func (m *MockRentalService) CancelLapsed(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}
func (m *MockRentalService) PaymentResolved(ctx context.Context, p *domain.Payment) error {
	return m.Called(ctx, p).Error(0)
}

// MockPaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Initiate(ctx context.Context, actor domain.Actor, orderID int32, amount int64, description, clientIP string) (*domain.PaymentInitiation, error) {
	args := m.Called(ctx, actor, orderID, amount, description, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentInitiation), args.Error(1)
}
func (m *MockPaymentService) HandleCallback(ctx context.Context, params url.Values) (*domain.CallbackOutcome, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CallbackOutcome), args.Error(1)
}
func (m *MockPaymentService) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	args := m.Called(ctx, ttl)
	return args.Int(0), args.Error(1)
}

// MockAvailabilityService
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) FindAvailableUnit(ctx context.Context, vehicleModelID int32, start, end time.Time) (*domain.Unit, error) {
	args := m.Called(ctx, vehicleModelID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Unit), args.Error(1)
}
func (m *MockAvailabilityService) IsAvailable(ctx context.Context, vehicleModelID int32, start, end time.Time) (bool, error) {
	args := m.Called(ctx, vehicleModelID, start, end)
	return args.Bool(0), args.Error(1)
}
func (m *MockAvailabilityService) ListAvailableVehicleModels(ctx context.Context, filter domain.VehicleFilter, start, end time.Time) ([]domain.AvailableVehicle, error) {
	args := m.Called(ctx, filter, start, end)
	var out []domain.AvailableVehicle
	if args.Get(0) != nil {
		out = args.Get(0).([]domain.AvailableVehicle)
	}
	return out, args.Error(1)
}
