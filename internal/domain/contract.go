package domain

import "time"

type ContractStatus string

const (
	ContractStatusPending   ContractStatus = "PENDING"
	ContractStatusConfirmed ContractStatus = "CONFIRMED"
	ContractStatusActive    ContractStatus = "ACTIVE"
	ContractStatusCompleted ContractStatus = "COMPLETED"
	ContractStatusCancelled ContractStatus = "CANCELLED"
)

// ContractStatusFor mirrors an order state onto its contract.
func ContractStatusFor(s OrderStatus) ContractStatus {
	return ContractStatus(s)
}

type ExtraFeeType string

const (
	ExtraFeeDistance ExtraFeeType = "DISTANCE"
	ExtraFeeBattery  ExtraFeeType = "BATTERY"
	ExtraFeeLate     ExtraFeeType = "LATE_RETURN"
)

type ExtraFee struct {
	Type        ExtraFeeType `json:"type"`
	Description string       `json:"description"`
	Amount      int64        `json:"amount"`
}

// Contract is the priced agreement for an order. One contract covers every
// unit assigned to the order.
type Contract struct {
	ID            int32          `json:"id"`
	OrderID       int32          `json:"order_id"`
	Code          string         `json:"code"`
	Status        ContractStatus `json:"status"`
	DepositAmount int64          `json:"deposit_amount"`
	RentalFee     int64          `json:"rental_fee"`
	ExtraFees     []ExtraFee     `json:"extra_fees"`
	TotalAmount   int64          `json:"total_amount"`
	DepositPaid   bool           `json:"deposit_paid"`

	HandoverOdometer *int32     `json:"handover_odometer,omitempty"`
	HandoverBattery  *int32     `json:"handover_battery,omitempty"`
	HandoverPhotoRef string     `json:"handover_photo_ref,omitempty"`
	HandoverNotes    string     `json:"handover_notes,omitempty"`
	HandedOverAt     *time.Time `json:"handed_over_at,omitempty"`

	ReturnOdometer *int32     `json:"return_odometer,omitempty"`
	ReturnBattery  *int32     `json:"return_battery,omitempty"`
	ReturnPhotoRef string     `json:"return_photo_ref,omitempty"`
	ReturnNotes    string     `json:"return_notes,omitempty"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ExtraFeeTotal sums the itemized extra fees.
func (c *Contract) ExtraFeeTotal() int64 {
	var sum int64
	for _, f := range c.ExtraFees {
		sum += f.Amount
	}
	return sum
}
