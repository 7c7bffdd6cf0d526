package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Resolved reports whether the payment has left PENDING.
func (s PaymentStatus) Resolved() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

// GatewayCodeSuccess is the gateway response code for an approved payment.
const GatewayCodeSuccess = "00"

// GatewayCodeExpired is recorded when a pending payment times out locally.
const GatewayCodeExpired = "EXPIRED"

// PaymentStatusForCode maps a gateway response code to a final status.
func PaymentStatusForCode(code string) PaymentStatus {
	if code == GatewayCodeSuccess {
		return PaymentStatusSuccess
	}
	return PaymentStatusFailed
}

// Payment is one attempt to pay Amount (VND) against an order's contract.
type Payment struct {
	ID           int32         `json:"id"`
	OrderID      int32         `json:"order_id"`
	ContractID   *int32        `json:"contract_id,omitempty"`
	UserID       int32         `json:"user_id"`
	Amount       int64         `json:"amount"`
	Description  string        `json:"description"`
	TxnRef       string        `json:"txn_ref"`
	Status       PaymentStatus `json:"status"`
	ResponseCode string        `json:"response_code,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
}

// Transaction is the gateway-confirmed leg of a payment.
type Transaction struct {
	ID                int32         `json:"id"`
	PaymentID         int32         `json:"payment_id"`
	GatewayTxnNo      string        `json:"gateway_txn_no"`
	BankCode          string        `json:"bank_code"`
	BankTxnNo         string        `json:"bank_txn_no"`
	CardType          string        `json:"card_type"`
	PayDate           string        `json:"pay_date"`
	ResponseCode      string        `json:"response_code"`
	TransactionStatus string        `json:"transaction_status"`
	Status            PaymentStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

// PaymentInitiation is handed back to the client to follow the redirect.
type PaymentInitiation struct {
	PaymentID   int32  `json:"payment_id"`
	TxnRef      string `json:"txn_ref"`
	RedirectURL string `json:"redirect_url"`
}

// CallbackOutcome is the result of reconciling a gateway callback.
type CallbackOutcome struct {
	TxnRef           string        `json:"txn_ref"`
	OrderID          int32         `json:"order_id"`
	Amount           int64         `json:"amount"`
	Status           PaymentStatus `json:"status"`
	ResponseCode     string        `json:"response_code"`
	AlreadyProcessed bool          `json:"already_processed"`
}
