package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/gateway"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository"
	"evrental-backend/internal/utils"

	"github.com/google/uuid"
)

type paymentService struct {
	paymentRepo repository.PaymentRepository
	rentalRepo  repository.RentalRepository
	gw          PaymentGateway
	observers   []PaymentObserver
	now         func() time.Time
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	rentalRepo repository.RentalRepository,
	gw PaymentGateway,
	observers ...PaymentObserver,
) PaymentService {
	return &paymentService{
		paymentRepo: paymentRepo,
		rentalRepo:  rentalRepo,
		gw:          gw,
		observers:   observers,
		now:         time.Now,
	}
}

func newTxnRef() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *paymentService) Initiate(ctx context.Context, actor domain.Actor, orderID int32, amount int64, description, clientIP string) (*domain.PaymentInitiation, error) {
	logger.EnterMethod("paymentService.Initiate", "userID", actor.UserID, "orderID", orderID, "amount", amount)

	if amount <= 0 {
		return nil, domain.Validationf("amount must be positive")
	}
	if amount > utils.MaxGatewayAmount {
		return nil, domain.Validationf("amount must not exceed %d", utils.MaxGatewayAmount)
	}
	order, err := s.rentalRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !order.OwnedBy(actor.UserID) {
		return nil, domain.Forbiddenf("order %d belongs to another user", orderID)
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, domain.Conflictf("order %d is cancelled", orderID)
	}
	if strings.TrimSpace(description) == "" {
		description = fmt.Sprintf("Payment for order %d", orderID)
	}

	p := &domain.Payment{
		OrderID:     orderID,
		UserID:      order.UserID,
		Amount:      amount,
		Description: description,
		TxnRef:      newTxnRef(),
		Status:      domain.PaymentStatusPending,
	}
	if order.Contract != nil {
		p.ContractID = &order.Contract.ID
	}
	if err := s.paymentRepo.Create(ctx, p); err != nil {
		logger.ExitMethodWithError("paymentService.Initiate", err, "orderID", orderID)
		return nil, err
	}

	redirect, err := s.gw.BuildPaymentURL(gateway.PaymentRequest{
		TxnRef:    p.TxnRef,
		Amount:    amount,
		OrderInfo: description,
		IPAddr:    clientIP,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}

	logger.ExitMethod("paymentService.Initiate", "paymentID", p.ID, "txnRef", p.TxnRef)
	return &domain.PaymentInitiation{PaymentID: p.ID, TxnRef: p.TxnRef, RedirectURL: redirect}, nil
}

func outcomeOf(p *domain.Payment, already bool) *domain.CallbackOutcome {
	return &domain.CallbackOutcome{
		TxnRef:           p.TxnRef,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		Status:           p.Status,
		ResponseCode:     p.ResponseCode,
		AlreadyProcessed: already,
	}
}

func (s *paymentService) HandleCallback(ctx context.Context, params url.Values) (*domain.CallbackOutcome, error) {
	cb, err := s.gw.ParseCallback(params)
	if err != nil {
		logger.Warn("Rejected gateway callback", "error", err)
		return nil, err
	}
	logger.EnterMethod("paymentService.HandleCallback", "txnRef", cb.TxnRef, "responseCode", cb.ResponseCode)

	p, err := s.paymentRepo.GetByTxnRef(ctx, cb.TxnRef)
	if err != nil {
		return nil, err
	}
	amount, err := utils.FromMinorUnits(cb.AmountMinor)
	if err != nil || amount != p.Amount {
		logger.Warn("Gateway amount mismatch", "txnRef", cb.TxnRef, "expected", p.Amount, "gatewayMinor", cb.AmountMinor)
		return nil, domain.ErrAmountMismatch
	}
	if p.Status.Resolved() {
		return outcomeOf(p, true), nil
	}

	status := domain.PaymentStatusForCode(cb.ResponseCode)
	txn := &domain.Transaction{
		GatewayTxnNo:      cb.TransactionNo,
		BankCode:          cb.BankCode,
		BankTxnNo:         cb.BankTxnNo,
		CardType:          cb.CardType,
		PayDate:           cb.PayDate,
		ResponseCode:      cb.ResponseCode,
		TransactionStatus: cb.TransactionStatus,
		Status:            status,
	}
	won, err := s.paymentRepo.Resolve(ctx, p.TxnRef, status, cb.ResponseCode, txn)
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandleCallback", err, "txnRef", cb.TxnRef)
		return nil, err
	}
	if !won {
		// Another delivery resolved it first; report what it recorded.
		recorded, err := s.paymentRepo.GetByTxnRef(ctx, p.TxnRef)
		if err != nil {
			return nil, err
		}
		return outcomeOf(recorded, true), nil
	}

	now := s.now()
	p.Status = status
	p.ResponseCode = cb.ResponseCode
	p.ResolvedAt = &now
	s.publish(ctx, p)

	logger.ExitMethod("paymentService.HandleCallback", "txnRef", p.TxnRef, "status", p.Status)
	return outcomeOf(p, false), nil
}

func (s *paymentService) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	now := s.now()
	stale, err := s.paymentRepo.ListStalePending(ctx, now.Add(-ttl))
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		p := &stale[i]
		won, err := s.paymentRepo.Resolve(ctx, p.TxnRef, domain.PaymentStatusFailed, domain.GatewayCodeExpired, nil)
		if err != nil {
			logger.Error("Failed to expire payment", "txnRef", p.TxnRef, "error", err)
			continue
		}
		if !won {
			continue
		}
		p.Status = domain.PaymentStatusFailed
		p.ResponseCode = domain.GatewayCodeExpired
		p.ResolvedAt = &now
		s.publish(ctx, p)
		expired++
	}
	return expired, nil
}

func (s *paymentService) publish(ctx context.Context, p *domain.Payment) {
	for _, o := range s.observers {
		if err := o.PaymentResolved(ctx, p); err != nil {
			logger.Error("Payment observer failed", "txnRef", p.TxnRef, "status", p.Status, "error", err)
		}
	}
}
