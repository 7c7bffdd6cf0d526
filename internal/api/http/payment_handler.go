package http

import (
	"net/http"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/gateway"
	"evrental-backend/internal/logger"
)

type initiatePaymentRequest struct {
	OrderID     int32  `json:"order_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// Callback responses use fixed messages so nothing from the query string is
// reflected back to the browser.
var callbackMessages = map[domain.Kind]string{
	domain.KindInvalidSignature: "invalid payment signature",
	domain.KindValidation:       "malformed payment callback",
	domain.KindNotFound:         "payment not found",
	domain.KindConflict:         "payment amount mismatch",
	domain.KindInternal:         "internal server error",
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var req initiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.payments.Initiate(r.Context(), actor, req.OrderID, req.Amount, req.Description, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// PaymentCallback handles the browser returning from the gateway.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrorCode(w, http.StatusBadRequest, string(domain.KindValidation), callbackMessages[domain.KindValidation])
		return
	}
	outcome, err := h.payments.HandleCallback(r.Context(), r.Form)
	if err != nil {
		kind := domain.KindOf(err)
		if kind == domain.KindInternal {
			logger.FromContext(r.Context()).Error("Payment callback failed", "error", err)
		}
		msg, ok := callbackMessages[kind]
		if !ok {
			msg = callbackMessages[domain.KindInternal]
		}
		writeErrorCode(w, statusForKind[kind], string(kind), msg)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// PaymentIPN handles the gateway's server-to-server notification. The gateway
// reads the RspCode, so the HTTP status is always 200.
func (h *Handler) PaymentIPN(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.payments.HandleCallback(r.Context(), r.URL.Query())
	if err != nil && domain.KindOf(err) == domain.KindInternal {
		logger.FromContext(r.Context()).Error("Payment IPN failed", "error", err)
	}
	writeJSON(w, http.StatusOK, gateway.IPNResponseFor(outcome, err))
}
