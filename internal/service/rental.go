package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository"
	"evrental-backend/internal/utils"

	"github.com/google/uuid"
)

// RentalPolicy holds the booking limits.
type RentalPolicy struct {
	// StartGrace is how far in the past a requested start may lie.
	StartGrace    time.Duration
	MaxRentalDays int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type rentalService struct {
	rentalRepo  repository.RentalRepository
	vehicleRepo repository.VehicleRepository
	userRepo    repository.UserRepository
	emailSvc    EmailService
	fees        utils.ExtraFeeStrategy
	policy      RentalPolicy
	now         func() time.Time
}

// NewRentalService returns the order state machine.
func NewRentalService(
	rentalRepo repository.RentalRepository,
	vehicleRepo repository.VehicleRepository,
	userRepo repository.UserRepository,
	emailSvc EmailService,
	fees utils.ExtraFeeStrategy,
	policy RentalPolicy,
) RentalService {
	if fees == nil {
		fees = utils.SurchargePolicy{}
	}
	return &rentalService{
		rentalRepo:  rentalRepo,
		vehicleRepo: vehicleRepo,
		userRepo:    userRepo,
		emailSvc:    emailSvc,
		fees:        fees,
		policy:      policy,
		now:         time.Now,
	}
}

func newContractCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("EV-%s-%s", now.Format("20060102"), suffix)
}

func (s *rentalService) validateBooking(req domain.CreateRentalRequest) error {
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return err
	}
	if req.StartTime.Before(s.now().Add(-s.policy.StartGrace)) {
		return domain.Validationf("start time must not be in the past")
	}
	if s.policy.MaxRentalDays > 0 && req.EndTime.Sub(req.StartTime) > time.Duration(s.policy.MaxRentalDays)*24*time.Hour {
		return domain.Validationf("rental may not exceed %d days", s.policy.MaxRentalDays)
	}
	if req.BookingForOthers && strings.TrimSpace(req.RenterLicenseImageRef) == "" {
		return domain.Validationf("booking for someone else requires the renter's license image")
	}
	if req.DepositAmount != nil && *req.DepositAmount < 0 {
		return domain.Validationf("deposit must not be negative")
	}
	return nil
}

func (s *rentalService) CreateRental(ctx context.Context, actor domain.Actor, req domain.CreateRentalRequest) (*domain.RentalResult, error) {
	logger.EnterMethod("rentalService.CreateRental", "userID", actor.UserID, "vehicleModelID", req.VehicleModelID)

	if err := s.validateBooking(req); err != nil {
		return nil, err
	}

	model, err := s.vehicleRepo.GetModel(ctx, req.VehicleModelID)
	if err != nil {
		return nil, err
	}
	deposit := model.DepositAmount
	if req.DepositAmount != nil {
		deposit = *req.DepositAmount
	}
	fee, err := utils.DailyCost(model.PricePerDay, req.StartTime, req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	total := utils.ContractTotal(fee, deposit, nil)

	order := &domain.Order{
		UserID:                actor.UserID,
		VehicleModelID:        model.ID,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		TotalAmount:           &total,
		Status:                domain.OrderStatusPending,
		BookingForOthers:      req.BookingForOthers,
		RenterLicenseImageRef: req.RenterLicenseImageRef,
	}
	contract := &domain.Contract{
		Code:          newContractCode(s.now()),
		Status:        domain.ContractStatusPending,
		DepositAmount: deposit,
		RentalFee:     fee,
		TotalAmount:   total,
	}

	start, end := req.StartTime, req.EndTime
	unit, err := s.rentalRepo.CreateRental(ctx, order, contract, func(units []domain.Unit, booked []domain.UnitAssignment) (*domain.Unit, bool) {
		return domain.SelectFreeUnit(units, booked, start, end)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNoUnitAvailable) {
			logger.ExitMethodWithError("rentalService.CreateRental", err, "vehicleModelID", req.VehicleModelID)
		}
		return nil, err
	}

	s.notify(ctx, order.UserID, func(u *domain.User) error {
		return s.emailSvc.SendRentalCreatedNotification(ctx, u, order, unit.LicensePlate)
	})

	logger.ExitMethod("rentalService.CreateRental", "orderID", order.ID, "unitID", unit.ID)
	return &domain.RentalResult{
		OrderID:       order.ID,
		ContractID:    contract.ID,
		ContractCode:  contract.Code,
		UnitID:        unit.ID,
		LicensePlate:  unit.LicensePlate,
		RentalFee:     fee,
		DepositAmount: deposit,
	}, nil
}

// transition moves order to status `to` after apply has mutated it, guarded on
// the status it was loaded with.
func (s *rentalService) transition(ctx context.Context, order *domain.Order, action string, to domain.OrderStatus, apply func()) error {
	from := order.Status
	if err := domain.CheckTransition(action, from, to); err != nil {
		return err
	}
	saved := *order
	var savedContract domain.Contract
	if order.Contract != nil {
		savedContract = *order.Contract
	}
	if apply != nil {
		apply()
	}
	order.Status = to
	if order.Contract != nil {
		order.Contract.Status = domain.ContractStatusFor(to)
	}
	if err := s.rentalRepo.UpdateRental(ctx, order, from); err != nil {
		// Hand back the order as it was loaded.
		*order = saved
		if order.Contract != nil {
			*order.Contract = savedContract
		}
		var terr *domain.TransitionError
		if errors.As(err, &terr) {
			terr.Action = action
		}
		return err
	}

	logger.Info("Order transitioned", "orderID", order.ID, "from", from, "to", to, "action", action)
	s.notify(ctx, order.UserID, func(u *domain.User) error {
		return s.emailSvc.SendRentalStatusNotification(ctx, u, order)
	})
	return nil
}

func (s *rentalService) StaffConfirm(ctx context.Context, actor domain.Actor, orderID int32, accept bool, notes string) (*domain.Order, error) {
	if !actor.IsStaff() {
		return nil, domain.Forbiddenf("only staff may confirm rentals")
	}
	order, err := s.rentalRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// A confirmed order is cancelled through Cancel, not rejected here.
	if order.Status != domain.OrderStatusPending {
		return nil, &domain.TransitionError{Action: "confirm", Current: order.Status, Required: []domain.OrderStatus{domain.OrderStatusPending}}
	}

	if accept {
		err = s.transition(ctx, order, "confirm", domain.OrderStatusConfirmed, func() {
			order.StaffNotes = notes
		})
	} else {
		err = s.transition(ctx, order, "reject", domain.OrderStatusCancelled, func() {
			order.StaffNotes = notes
			order.CancelReason = notes
			if order.CancelReason == "" {
				order.CancelReason = "rejected by staff"
			}
			order.CancelledBy = &actor.UserID
		})
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func validateInspection(insp domain.Inspection) error {
	if insp.Odometer < 0 {
		return domain.Validationf("odometer must not be negative")
	}
	if insp.Battery < 0 || insp.Battery > 100 {
		return domain.Validationf("battery level must be between 0 and 100")
	}
	if strings.TrimSpace(insp.PhotoRef) == "" {
		return domain.Validationf("an inspection photo is required")
	}
	return nil
}

func (s *rentalService) Handover(ctx context.Context, actor domain.Actor, orderID int32, insp domain.Inspection) (*domain.Order, error) {
	if !actor.IsStaff() {
		return nil, domain.Forbiddenf("only staff may hand over vehicles")
	}
	if err := validateInspection(insp); err != nil {
		return nil, err
	}
	order, err := s.rentalRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Contract == nil {
		return nil, domain.Conflictf("order %d has no contract", orderID)
	}

	now := s.now()
	err = s.transition(ctx, order, "hand over", domain.OrderStatusActive, func() {
		c := order.Contract
		c.HandoverOdometer = &insp.Odometer
		c.HandoverBattery = &insp.Battery
		c.HandoverPhotoRef = insp.PhotoRef
		c.HandoverNotes = insp.Notes
		c.HandedOverAt = &now
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *rentalService) Return(ctx context.Context, actor domain.Actor, orderID int32, insp domain.Inspection) (*domain.Order, error) {
	if !actor.IsStaff() {
		return nil, domain.Forbiddenf("only staff may record returns")
	}
	if err := validateInspection(insp); err != nil {
		return nil, err
	}
	order, err := s.rentalRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition("return", order.Status, domain.OrderStatusCompleted); err != nil {
		return nil, err
	}
	c := order.Contract
	if c == nil || c.HandoverOdometer == nil {
		return nil, domain.Conflictf("order %d has no handover record", orderID)
	}
	if insp.Odometer < *c.HandoverOdometer {
		return nil, domain.Validationf("return odometer %d is below handover odometer %d", insp.Odometer, *c.HandoverOdometer)
	}

	days, err := utils.RentalDays(order.StartTime, order.EndTime)
	if err != nil {
		return nil, err
	}
	now := s.now()
	delta := utils.UsageDelta{
		DistanceKm:    insp.Odometer - *c.HandoverOdometer,
		ReturnBattery: insp.Battery,
		RentalDays:    days,
		LateBy:        now.Sub(order.EndTime),
	}
	if c.HandoverBattery != nil {
		delta.BatteryUsed = *c.HandoverBattery - insp.Battery
	}
	fees := s.fees.ExtraFees(delta)
	total := utils.ContractTotal(c.RentalFee, c.DepositAmount, fees)

	err = s.transition(ctx, order, "return", domain.OrderStatusCompleted, func() {
		c.ReturnOdometer = &insp.Odometer
		c.ReturnBattery = &insp.Battery
		c.ReturnPhotoRef = insp.PhotoRef
		c.ReturnNotes = insp.Notes
		c.ReturnedAt = &now
		c.ExtraFees = fees
		c.TotalAmount = total
		order.TotalAmount = &total
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *rentalService) Cancel(ctx context.Context, actor domain.Actor, orderID int32, reason string) (*domain.Order, error) {
	order, err := s.rentalRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !order.OwnedBy(actor.UserID) {
		return nil, domain.Forbiddenf("order %d belongs to another user", orderID)
	}
	reason = strings.TrimSpace(reason)
	if actor.IsStaff() && reason == "" {
		return nil, domain.Validationf("staff must give a cancellation reason")
	}

	err = s.transition(ctx, order, "cancel", domain.OrderStatusCancelled, func() {
		order.CancelReason = reason
		order.CancelledBy = &actor.UserID
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *rentalService) GetRental(ctx context.Context, actor domain.Actor, orderID int32) (*domain.Order, error) {
	order, err := s.rentalRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !order.OwnedBy(actor.UserID) {
		return nil, domain.Forbiddenf("order %d belongs to another user", orderID)
	}
	return order, nil
}

func (s *rentalService) ListRentals(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.Validationf("unknown status %q", status)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	var userID *int32
	if !actor.IsStaff() {
		userID = &actor.UserID
	}
	return s.rentalRepo.ListOrders(ctx, userID, status, page, pageSize)
}

func (s *rentalService) CalculateCost(ctx context.Context, vehicleModelID int32, start, end time.Time) (*domain.CostQuote, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	model, err := s.vehicleRepo.GetModel(ctx, vehicleModelID)
	if err != nil {
		return nil, err
	}
	days, err := utils.RentalDays(start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	fee := days * model.PricePerDay
	return &domain.CostQuote{
		VehicleModelID: model.ID,
		Days:           days,
		PricePerDay:    model.PricePerDay,
		RentalFee:      fee,
		DepositAmount:  model.DepositAmount,
		TotalAmount:    utils.ContractTotal(fee, model.DepositAmount, nil),
	}, nil
}

func (s *rentalService) CancelLapsed(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.rentalRepo.ListLapsedPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, id := range ids {
		order, err := s.rentalRepo.GetOrder(ctx, id)
		if err != nil {
			logger.Error("Failed to load lapsed order", "orderID", id, "error", err)
			continue
		}
		system := domain.SystemActor.UserID
		err = s.transition(ctx, order, "cancel", domain.OrderStatusCancelled, func() {
			order.CancelReason = "not confirmed before the rental start"
			order.CancelledBy = &system
		})
		if errors.Is(err, domain.ErrConflict) {
			// Confirmed or cancelled meanwhile.
			continue
		}
		if err != nil {
			logger.Error("Failed to cancel lapsed order", "orderID", id, "error", err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// PaymentResolved marks the contract deposit-paid once a payment succeeds.
func (s *rentalService) PaymentResolved(ctx context.Context, p *domain.Payment) error {
	if p.Status != domain.PaymentStatusSuccess {
		return nil
	}
	if err := s.rentalRepo.MarkDepositPaid(ctx, p.OrderID); err != nil {
		return err
	}
	s.notify(ctx, p.UserID, func(u *domain.User) error {
		return s.emailSvc.SendPaymentReceipt(ctx, u, p)
	})
	return nil
}

// notify looks up the recipient and sends. Failures are logged only.
func (s *rentalService) notify(ctx context.Context, userID int32, send func(u *domain.User) error) {
	if s.emailSvc == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		logger.Warn("Notification recipient not found", "userID", userID, "error", err)
		return
	}
	if err := send(u); err != nil {
		logger.Warn("Failed to send notification", "userID", userID, "error", err)
	}
}
