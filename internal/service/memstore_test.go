package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

// memStore is an in-memory rental and payment store. Its mutex plays the part
// of the vehicle model row lock and of the status compare-and-swap.
type memStore struct {
	mu           sync.Mutex
	units        map[int32][]domain.Unit
	orders       map[int32]*domain.Order
	payments     map[string]*domain.Payment
	transactions []domain.Transaction
	nextID       int32
}

func newMemStore(units ...domain.Unit) *memStore {
	s := &memStore{
		units:    make(map[int32][]domain.Unit),
		orders:   make(map[int32]*domain.Order),
		payments: make(map[string]*domain.Payment),
	}
	for _, u := range units {
		s.units[u.VehicleModelID] = append(s.units[u.VehicleModelID], u)
	}
	return s
}

var (
	_ repository.RentalRepository  = (*memStore)(nil)
	_ repository.PaymentRepository = (*memStore)(nil)
)

func (s *memStore) id() int32 {
	s.nextID++
	return s.nextID
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	if o.Contract != nil {
		c := *o.Contract
		c.ExtraFees = append([]domain.ExtraFee(nil), o.Contract.ExtraFees...)
		cp.Contract = &c
	}
	cp.Units = append([]domain.UnitAssignment(nil), o.Units...)
	return &cp
}

func (s *memStore) CreateRental(ctx context.Context, order *domain.Order, contract *domain.Contract, pick repository.UnitPicker) (*domain.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var booked []domain.UnitAssignment
	for _, o := range s.orders {
		if o.VehicleModelID != order.VehicleModelID {
			continue
		}
		for _, a := range o.Units {
			if a.Active && domain.Overlaps(a.StartTime, a.EndTime, order.StartTime, order.EndTime) {
				booked = append(booked, a)
			}
		}
	}
	unit, ok := pick(s.units[order.VehicleModelID], booked)
	if !ok {
		return nil, domain.ErrNoUnitAvailable
	}

	now := time.Now()
	order.ID = s.id()
	order.CreatedAt, order.UpdatedAt = now, now
	contract.ID = s.id()
	contract.OrderID = order.ID
	order.Contract = contract
	order.Units = []domain.UnitAssignment{{
		OrderID: order.ID, UnitID: unit.ID, LicensePlate: unit.LicensePlate,
		StartTime: order.StartTime, EndTime: order.EndTime, Active: true,
	}}
	s.orders[order.ID] = copyOrder(order)
	return unit, nil
}

func (s *memStore) GetOrder(ctx context.Context, id int32) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.NotFoundf("order %d", id)
	}
	return copyOrder(o), nil
}

func (s *memStore) UpdateRental(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[order.ID]
	if !ok {
		return domain.NotFoundf("order %d", order.ID)
	}
	if stored.Status != from {
		return &domain.TransitionError{Action: "update", Current: stored.Status, Required: []domain.OrderStatus{from}}
	}
	next := copyOrder(order)
	if next.Contract != nil && stored.Contract != nil {
		next.Contract.DepositPaid = stored.Contract.DepositPaid
	}
	if !next.Status.Holding() {
		for i := range next.Units {
			next.Units[i].Active = false
		}
		for i := range order.Units {
			order.Units[i].Active = false
		}
	}
	s.orders[order.ID] = next
	return nil
}

func (s *memStore) ListOrders(ctx context.Context, userID *int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if userID != nil && o.UserID != *userID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int32(len(out)), nil
}

func (s *memStore) MarkDepositPaid(ctx context.Context, orderID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Contract == nil {
		return domain.NotFoundf("contract for order %d", orderID)
	}
	if o.Status == domain.OrderStatusCancelled {
		return &domain.TransitionError{Action: "record deposit", Current: o.Status,
			Required: []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusActive, domain.OrderStatusCompleted}}
	}
	o.Contract.DepositPaid = true
	return nil
}

func (s *memStore) ListLapsedPending(ctx context.Context, cutoff time.Time) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int32
	for id, o := range s.orders {
		if o.Status == domain.OrderStatusPending && o.StartTime.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) Create(ctx context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.payments[p.TxnRef]; dup {
		return domain.ErrIntegrity
	}
	p.ID = s.id()
	p.CreatedAt = time.Now()
	cp := *p
	s.payments[p.TxnRef] = &cp
	return nil
}

func (s *memStore) GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[txnRef]
	if !ok {
		return nil, domain.NotFoundf("payment %s", txnRef)
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) Resolve(ctx context.Context, txnRef string, status domain.PaymentStatus, responseCode string, txn *domain.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[txnRef]
	if !ok || p.Status != domain.PaymentStatusPending {
		return false, nil
	}
	now := time.Now()
	p.Status = status
	p.ResponseCode = responseCode
	p.ResolvedAt = &now
	if txn != nil {
		txn.ID = s.id()
		txn.PaymentID = p.ID
		s.transactions = append(s.transactions, *txn)
	}
	return true, nil
}

func (s *memStore) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, p := range s.payments {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}
