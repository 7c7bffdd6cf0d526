package gateway

import (
	"errors"

	"evrental-backend/internal/domain"
)

// IPNResponse is the acknowledgement body the gateway expects from the
// merchant's IPN endpoint.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// IPNResponseFor maps a reconciliation result onto the gateway's codes.
func IPNResponseFor(outcome *domain.CallbackOutcome, err error) IPNResponse {
	switch {
	case err == nil && outcome != nil && outcome.AlreadyProcessed:
		return IPNResponse{RspCode: "02", Message: "Order already confirmed"}
	case err == nil:
		return IPNResponse{RspCode: "00", Message: "Confirm Success"}
	case errors.Is(err, domain.ErrInvalidSignature):
		return IPNResponse{RspCode: "97", Message: "Invalid signature"}
	case errors.Is(err, domain.ErrNotFound):
		return IPNResponse{RspCode: "01", Message: "Order not found"}
	case errors.Is(err, domain.ErrAmountMismatch):
		return IPNResponse{RspCode: "04", Message: "Invalid amount"}
	}
	return IPNResponse{RspCode: "99", Message: "Unknown error"}
}
