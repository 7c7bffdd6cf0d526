package jobs

import (
	"context"
	"time"

	"evrental-backend/internal/logger"
)

const jobTimeout = 2 * time.Minute

// ExpireStalePayments fails payments that stayed PENDING longer than the
// configured TTL. A callback arriving later finds them already resolved.
func (jr *JobRunner) ExpireStalePayments() {
	jr.runWithRecovery("ExpireStalePayments", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		ttl := jr.config.PaymentTTL()
		n, err := jr.services.Payment.ExpireStale(ctx, ttl)
		if err != nil {
			logger.Error("Failed to expire stale payments", "error", err)
			return
		}
		logger.Info("Expired stale payments", "count", n, "ttl", ttl)
	})
}

// CancelLapsedReservations cancels PENDING orders that staff never confirmed
// and whose start passed more than the confirmation timeout ago. Their units
// are released.
func (jr *JobRunner) CancelLapsedReservations() {
	jr.runWithRecovery("CancelLapsedReservations", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		cutoff := jr.now().Add(-jr.config.ConfirmationTimeout())
		n, err := jr.services.Rental.CancelLapsed(ctx, cutoff)
		if err != nil {
			logger.Error("Failed to cancel lapsed reservations", "error", err)
			return
		}
		logger.Info("Cancelled lapsed reservations", "count", n, "cutoff", cutoff)
	})
}
