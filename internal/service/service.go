package service

import (
	"context"
	"net/url"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/gateway"
)

type AvailabilityService interface {
	FindAvailableUnit(ctx context.Context, vehicleModelID int32, start, end time.Time) (*domain.Unit, error)
	IsAvailable(ctx context.Context, vehicleModelID int32, start, end time.Time) (bool, error)
	ListAvailableVehicleModels(ctx context.Context, filter domain.VehicleFilter, start, end time.Time) ([]domain.AvailableVehicle, error)
}

type RentalService interface {
	CreateRental(ctx context.Context, actor domain.Actor, req domain.CreateRentalRequest) (*domain.RentalResult, error)
	StaffConfirm(ctx context.Context, actor domain.Actor, orderID int32, accept bool, notes string) (*domain.Order, error)
	Handover(ctx context.Context, actor domain.Actor, orderID int32, insp domain.Inspection) (*domain.Order, error)
	Return(ctx context.Context, actor domain.Actor, orderID int32, insp domain.Inspection) (*domain.Order, error)
	Cancel(ctx context.Context, actor domain.Actor, orderID int32, reason string) (*domain.Order, error)
	GetRental(ctx context.Context, actor domain.Actor, orderID int32) (*domain.Order, error)
	ListRentals(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error)
	CalculateCost(ctx context.Context, vehicleModelID int32, start, end time.Time) (*domain.CostQuote, error)
	// CancelLapsed cancels PENDING orders whose start passed before cutoff
	// without staff confirmation. Returns the number cancelled.
	CancelLapsed(ctx context.Context, cutoff time.Time) (int, error)
	// Successful payments mark the order's deposit paid.
	PaymentObserver
}

type PaymentService interface {
	Initiate(ctx context.Context, actor domain.Actor, orderID int32, amount int64, description, clientIP string) (*domain.PaymentInitiation, error)
	HandleCallback(ctx context.Context, params url.Values) (*domain.CallbackOutcome, error)
	// ExpireStale fails PENDING payments older than ttl. Returns the number
	// expired by this call.
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// PaymentObserver is told about every payment this process resolved. It is
// not called for callbacks that found the payment already resolved.
type PaymentObserver interface {
	PaymentResolved(ctx context.Context, p *domain.Payment) error
}

// PaymentGateway is the redirect gateway as seen by reconciliation.
type PaymentGateway interface {
	BuildPaymentURL(req gateway.PaymentRequest) (string, error)
	ParseCallback(values url.Values) (*gateway.Callback, error)
}

type EmailService interface {
	SendRentalCreatedNotification(ctx context.Context, to *domain.User, order *domain.Order, licensePlate string) error
	SendRentalStatusNotification(ctx context.Context, to *domain.User, order *domain.Order) error
	SendPaymentReceipt(ctx context.Context, to *domain.User, p *domain.Payment) error
}
