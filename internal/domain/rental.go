package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusActive    OrderStatus = "ACTIVE"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the defined order states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusActive, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Holding reports whether an order in this state still claims its units.
func (s OrderStatus) Holding() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed || s == OrderStatusActive
}

// AllowedTransitions is the order state flow as code.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusActive, OrderStatusCancelled},
	OrderStatusActive:    {OrderStatusCompleted},
}

func CanTransition(from, to OrderStatus) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesOf lists the states from which to is reachable.
func SourcesOf(to OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, from := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusActive} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// TransitionError is returned when an action is attempted from a state that
// does not allow it. It matches ErrConflict under errors.Is.
type TransitionError struct {
	Action   string
	Current  OrderStatus
	Required []OrderStatus
}

func (e *TransitionError) Error() string {
	req := make([]string, len(e.Required))
	for i, s := range e.Required {
		req[i] = string(s)
	}
	return fmt.Sprintf("cannot %s order in status %s (requires %s)", e.Action, e.Current, strings.Join(req, " or "))
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrConflict
}

// CheckTransition validates that an order currently in from may move to to.
func CheckTransition(action string, from, to OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{Action: action, Current: from, Required: SourcesOf(to)}
}

type Order struct {
	ID                    int32       `json:"id"`
	UserID                int32       `json:"user_id"`
	VehicleModelID        int32       `json:"vehicle_model_id"`
	StartTime             time.Time   `json:"start_time"`
	EndTime               time.Time   `json:"end_time"`
	TotalAmount           *int64      `json:"total_amount,omitempty"` // nil until priced
	Status                OrderStatus `json:"status"`
	BookingForOthers      bool        `json:"booking_for_others"`
	RenterLicenseImageRef string      `json:"renter_license_image_ref,omitempty"`
	StaffNotes            string      `json:"staff_notes,omitempty"`
	CancelReason          string      `json:"cancel_reason,omitempty"`
	CancelledBy           *int32      `json:"cancelled_by,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`

	// Loaded together with the order so a transition sees the whole aggregate.
	Contract *Contract        `json:"contract,omitempty"`
	Units    []UnitAssignment `json:"units,omitempty"`
}

// OwnedBy reports whether the order belongs to userID.
func (o *Order) OwnedBy(userID int32) bool {
	return o.UserID == userID
}

// UnitAssignment links an order to a physical unit for the order's window.
// Active is cleared when the order is cancelled, releasing the unit.
type UnitAssignment struct {
	OrderID      int32     `json:"order_id"`
	UnitID       int32     `json:"unit_id"`
	LicensePlate string    `json:"license_plate,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Active       bool      `json:"active"`
}

// CreateRentalRequest is the renter's booking input.
type CreateRentalRequest struct {
	VehicleModelID        int32
	StartTime             time.Time
	EndTime               time.Time
	DepositAmount         *int64
	BookingForOthers      bool
	RenterLicenseImageRef string
}

// RentalResult is returned by a successful booking.
type RentalResult struct {
	OrderID       int32  `json:"order_id"`
	ContractID    int32  `json:"contract_id"`
	ContractCode  string `json:"contract_code"`
	UnitID        int32  `json:"unit_id"`
	LicensePlate  string `json:"license_plate"`
	RentalFee     int64  `json:"rental_fee"`
	DepositAmount int64  `json:"deposit_amount"`
}

// Inspection is recorded at handover and at return.
type Inspection struct {
	Odometer int32
	Battery  int32 // percent
	PhotoRef string
	Notes    string
}

// CostQuote is the price of a prospective rental.
type CostQuote struct {
	VehicleModelID int32 `json:"vehicle_model_id"`
	Days           int64 `json:"days"`
	PricePerDay    int64 `json:"price_per_day"`
	RentalFee      int64 `json:"rental_fee"`
	DepositAmount  int64 `json:"deposit_amount"`
	TotalAmount    int64 `json:"total_amount"`
}
