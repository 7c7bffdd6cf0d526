package service

import (
	"context"
	"fmt"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type emailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewEmailService sends through SendGrid. Without an API key messages are
// only logged.
func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	if apiKey == "" {
		return logOnlyEmailService{}
	}
	return &emailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailService) send(ctx context.Context, to *domain.User, subject, body string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(to.Name, to.Email)
	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	logger.ExternalServiceCall("sendgrid", "send", "to", to.Email, "subject", subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		logger.ExternalServiceResult("sendgrid", "send", err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "send", nil, "status", response.StatusCode)
	return nil
}

func (s *emailService) SendRentalCreatedNotification(ctx context.Context, to *domain.User, order *domain.Order, licensePlate string) error {
	subject, body := rentalCreatedMessage(to, order, licensePlate)
	return s.send(ctx, to, subject, body)
}

func (s *emailService) SendRentalStatusNotification(ctx context.Context, to *domain.User, order *domain.Order) error {
	subject, body := rentalStatusMessage(to, order)
	return s.send(ctx, to, subject, body)
}

func (s *emailService) SendPaymentReceipt(ctx context.Context, to *domain.User, p *domain.Payment) error {
	subject, body := paymentReceiptMessage(to, p)
	return s.send(ctx, to, subject, body)
}

func rentalCreatedMessage(to *domain.User, order *domain.Order, licensePlate string) (string, string) {
	subject := fmt.Sprintf("Booking #%d received", order.ID)
	body := fmt.Sprintf("Hello %s,\n\nWe have reserved vehicle %s for you from %s to %s.\n",
		to.Name, licensePlate, order.StartTime.Format("2006-01-02 15:04"), order.EndTime.Format("2006-01-02 15:04"))
	if order.Contract != nil {
		body += fmt.Sprintf("Contract %s: rental fee %d VND, deposit %d VND.\n",
			order.Contract.Code, order.Contract.RentalFee, order.Contract.DepositAmount)
	}
	body += "\nYour booking is waiting for confirmation by our staff.\n"
	return subject, body
}

func rentalStatusMessage(to *domain.User, order *domain.Order) (string, string) {
	subject := fmt.Sprintf("Booking #%d is now %s", order.ID, order.Status)
	body := fmt.Sprintf("Hello %s,\n\nYour booking #%d changed status to %s.\n", to.Name, order.ID, order.Status)
	switch order.Status {
	case domain.OrderStatusCancelled:
		if order.CancelReason != "" {
			body += fmt.Sprintf("Reason: %s\n", order.CancelReason)
		}
	case domain.OrderStatusCompleted:
		if c := order.Contract; c != nil {
			body += fmt.Sprintf("Final total: %d VND (extra fees %d VND).\n", c.TotalAmount, c.ExtraFeeTotal())
		}
	}
	return subject, body
}

func paymentReceiptMessage(to *domain.User, p *domain.Payment) (string, string) {
	subject := fmt.Sprintf("Payment received for booking #%d", p.OrderID)
	body := fmt.Sprintf("Hello %s,\n\nWe received your payment of %d VND (reference %s).\n", to.Name, p.Amount, p.TxnRef)
	return subject, body
}

type logOnlyEmailService struct{}

func (logOnlyEmailService) SendRentalCreatedNotification(ctx context.Context, to *domain.User, order *domain.Order, licensePlate string) error {
	subject, _ := rentalCreatedMessage(to, order, licensePlate)
	logger.Info("Email not sent (no provider configured)", "to", to.Email, "subject", subject)
	return nil
}

func (logOnlyEmailService) SendRentalStatusNotification(ctx context.Context, to *domain.User, order *domain.Order) error {
	subject, _ := rentalStatusMessage(to, order)
	logger.Info("Email not sent (no provider configured)", "to", to.Email, "subject", subject)
	return nil
}

func (logOnlyEmailService) SendPaymentReceipt(ctx context.Context, to *domain.User, p *domain.Payment) error {
	subject, _ := paymentReceiptMessage(to, p)
	logger.Info("Email not sent (no provider configured)", "to", to.Email, "subject", subject)
	return nil
}
