package service

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testTmnCode = "EVTEST01"
	testSecret  = "TESTHASHSECRET0123456789"
)

func newTestGateway(t *testing.T) *gateway.VNPay {
	t.Helper()
	gw, err := gateway.NewVNPay(gateway.Config{
		PayURL:     "https://sandbox.vnpayment.test/paymentv2/vpcpay.html",
		TmnCode:    testTmnCode,
		HashSecret: testSecret,
		ReturnURL:  "https://evrental.test/payments/return",
		Location:   time.UTC,
	})
	require.NoError(t, err)
	return gw
}

// signedCallback builds the query string the gateway would send back for
// txnRef, signed with the test secret.
func signedCallback(txnRef string, amountVND int64, code string) url.Values {
	params := map[string]string{
		"vnp_TmnCode":           testTmnCode,
		"vnp_TxnRef":            txnRef,
		"vnp_Amount":            strconv.FormatInt(amountVND*100, 10),
		"vnp_ResponseCode":      code,
		"vnp_TransactionStatus": code,
		"vnp_TransactionNo":     "14012345",
		"vnp_BankCode":          "NCB",
		"vnp_BankTranNo":        "VNP14012345",
		"vnp_CardType":          "ATM",
		"vnp_PayDate":           "20250601093000",
		"vnp_OrderInfo":         "Payment for order 1",
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set(gateway.SignatureField, gateway.Sign(gateway.Canonicalize(params), testSecret))
	return values
}

// seedOrder books the store's only unit for renter and returns the order.
func seedOrder(t *testing.T, store *memStore) *domain.Order {
	t.Helper()
	order := &domain.Order{
		UserID:         renter.UserID,
		VehicleModelID: vf8.ID,
		StartTime:      testNow.Add(24 * time.Hour),
		EndTime:        testNow.Add(48 * time.Hour),
		Status:         domain.OrderStatusPending,
	}
	contract := &domain.Contract{Code: "EV-20250601-TEST0001", Status: domain.ContractStatusPending, RentalFee: 1000000, DepositAmount: 500000, TotalAmount: 1500000}
	_, err := store.CreateRental(context.Background(), order, contract, func(units []domain.Unit, booked []domain.UnitAssignment) (*domain.Unit, bool) {
		return domain.SelectFreeUnit(units, booked, order.StartTime, order.EndTime)
	})
	require.NoError(t, err)
	return order
}

func newPaymentStore() *memStore {
	return newMemStore(domain.Unit{ID: 1, VehicleModelID: vf8.ID, LicensePlate: "51A-111.11", Status: domain.UnitStatusAvailable})
}

func TestPaymentService_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := newPaymentStore()
		order := seedOrder(t, store)
		svc := NewPaymentService(store, store, newTestGateway(t)).(*paymentService)
		svc.now = func() time.Time { return testNow }

		res, err := svc.Initiate(ctx, renter, order.ID, 500000, "", "10.0.0.1")
		require.NoError(t, err)
		assert.Len(t, res.TxnRef, 32)

		u, err := url.Parse(res.RedirectURL)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "50000000", q.Get("vnp_Amount"))
		assert.Equal(t, res.TxnRef, q.Get("vnp_TxnRef"))
		assert.Equal(t, "20250601080000", q.Get("vnp_CreateDate"))
		assert.Equal(t, "10.0.0.1", q.Get("vnp_IpAddr"))
		assert.True(t, gateway.Verify(q.Get(gateway.SignatureField), gateway.Canonicalize(gateway.GatewayParams(q)), testSecret))

		p, err := store.GetByTxnRef(ctx, res.TxnRef)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPending, p.Status)
		assert.Equal(t, int64(500000), p.Amount)
		assert.Equal(t, "Payment for order 1", p.Description)
		require.NotNil(t, p.ContractID)
		assert.Equal(t, order.Contract.ID, *p.ContractID)
	})

	t.Run("Amount must be positive", func(t *testing.T) {
		rentalRepo := new(MockRentalRepo)
		paymentRepo := new(MockPaymentRepo)
		svc := NewPaymentService(paymentRepo, rentalRepo, newTestGateway(t))

		_, err := svc.Initiate(ctx, renter, 1, 0, "", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
		rentalRepo.AssertExpectations(t)
		paymentRepo.AssertExpectations(t)
	})

	t.Run("Amount beyond the gateway range", func(t *testing.T) {
		rentalRepo := new(MockRentalRepo)
		paymentRepo := new(MockPaymentRepo)
		svc := NewPaymentService(paymentRepo, rentalRepo, newTestGateway(t))

		_, err := svc.Initiate(ctx, renter, 1, math.MaxInt64/10, "", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		rentalRepo.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
		paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Another renter is forbidden", func(t *testing.T) {
		store := newPaymentStore()
		order := seedOrder(t, store)
		svc := NewPaymentService(store, store, newTestGateway(t))

		_, err := svc.Initiate(ctx, other, order.ID, 500000, "", "")
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = svc.Initiate(ctx, staff, order.ID, 500000, "counter payment", "")
		assert.NoError(t, err)
	})

	t.Run("Cancelled order", func(t *testing.T) {
		rentalRepo := new(MockRentalRepo)
		svc := NewPaymentService(new(MockPaymentRepo), rentalRepo, newTestGateway(t))
		rentalRepo.On("GetOrder", ctx, int32(4)).Return(&domain.Order{ID: 4, UserID: renter.UserID, Status: domain.OrderStatusCancelled}, nil)

		_, err := svc.Initiate(ctx, renter, 4, 500000, "", "")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Unknown order", func(t *testing.T) {
		rentalRepo := new(MockRentalRepo)
		svc := NewPaymentService(new(MockPaymentRepo), rentalRepo, newTestGateway(t))
		rentalRepo.On("GetOrder", ctx, int32(9)).Return(nil, domain.NotFoundf("order 9"))

		_, err := svc.Initiate(ctx, renter, 9, 500000, "", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// initiated returns a store holding one pending payment of 500000 VND.
func initiated(t *testing.T, observers ...PaymentObserver) (*paymentService, *memStore, string) {
	t.Helper()
	store := newPaymentStore()
	order := seedOrder(t, store)
	svc := NewPaymentService(store, store, newTestGateway(t), observers...).(*paymentService)
	res, err := svc.Initiate(context.Background(), renter, order.ID, 500000, "", "10.0.0.1")
	require.NoError(t, err)
	return svc, store, res.TxnRef
}

func TestPaymentService_HandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("Invalid signature touches nothing", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepo)
		svc := NewPaymentService(paymentRepo, new(MockRentalRepo), newTestGateway(t))

		values := signedCallback("abc", 500000, "00")
		values.Set("vnp_Amount", "1")
		_, err := svc.HandleCallback(ctx, values)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		paymentRepo.AssertNotCalled(t, "GetByTxnRef", mock.Anything, mock.Anything)
		paymentRepo.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown reference", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepo)
		svc := NewPaymentService(paymentRepo, new(MockRentalRepo), newTestGateway(t))
		paymentRepo.On("GetByTxnRef", ctx, "missing").Return(nil, domain.NotFoundf("payment missing"))

		_, err := svc.HandleCallback(ctx, signedCallback("missing", 500000, "00"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Amount mismatch", func(t *testing.T) {
		observer := new(MockPaymentObserver)
		svc, store, ref := initiated(t, observer)

		_, err := svc.HandleCallback(ctx, signedCallback(ref, 400000, "00"))
		assert.ErrorIs(t, err, domain.ErrAmountMismatch)

		p, _ := store.GetByTxnRef(ctx, ref)
		assert.Equal(t, domain.PaymentStatusPending, p.Status)
		assert.Empty(t, store.transactions)
		observer.AssertNotCalled(t, "PaymentResolved", mock.Anything, mock.Anything)
	})

	t.Run("Success then duplicate delivery", func(t *testing.T) {
		observer := new(MockPaymentObserver)
		observer.On("PaymentResolved", ctx, mock.MatchedBy(func(p *domain.Payment) bool {
			return p.Status == domain.PaymentStatusSuccess
		})).Return(nil).Once()
		svc, store, ref := initiated(t, observer)

		outcome, err := svc.HandleCallback(ctx, signedCallback(ref, 500000, "00"))
		require.NoError(t, err)
		assert.False(t, outcome.AlreadyProcessed)
		assert.Equal(t, domain.PaymentStatusSuccess, outcome.Status)
		assert.Equal(t, int64(500000), outcome.Amount)

		require.Len(t, store.transactions, 1)
		txn := store.transactions[0]
		assert.Equal(t, "14012345", txn.GatewayTxnNo)
		assert.Equal(t, "NCB", txn.BankCode)
		assert.Equal(t, domain.PaymentStatusSuccess, txn.Status)

		again, err := svc.HandleCallback(ctx, signedCallback(ref, 500000, "00"))
		require.NoError(t, err)
		assert.True(t, again.AlreadyProcessed)
		assert.Equal(t, domain.PaymentStatusSuccess, again.Status)
		assert.Len(t, store.transactions, 1)
		observer.AssertExpectations(t)
	})

	t.Run("Declined payment", func(t *testing.T) {
		observer := new(MockPaymentObserver)
		observer.On("PaymentResolved", ctx, mock.MatchedBy(func(p *domain.Payment) bool {
			return p.Status == domain.PaymentStatusFailed && p.ResponseCode == "24"
		})).Return(nil).Once()
		svc, store, ref := initiated(t, observer)

		outcome, err := svc.HandleCallback(ctx, signedCallback(ref, 500000, "24"))
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFailed, outcome.Status)
		assert.Equal(t, "24", outcome.ResponseCode)
		assert.Len(t, store.transactions, 1)
		observer.AssertExpectations(t)
	})

	t.Run("Lost race reports recorded status", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepo)
		observer := new(MockPaymentObserver)
		svc := NewPaymentService(paymentRepo, new(MockRentalRepo), newTestGateway(t), observer)

		pending := &domain.Payment{ID: 1, OrderID: 1, Amount: 500000, TxnRef: "ref1", Status: domain.PaymentStatusPending}
		resolved := &domain.Payment{ID: 1, OrderID: 1, Amount: 500000, TxnRef: "ref1", Status: domain.PaymentStatusSuccess, ResponseCode: "00"}
		paymentRepo.On("GetByTxnRef", ctx, "ref1").Return(pending, nil).Once()
		paymentRepo.On("Resolve", ctx, "ref1", domain.PaymentStatusSuccess, "00", mock.AnythingOfType("*domain.Transaction")).Return(false, nil)
		paymentRepo.On("GetByTxnRef", ctx, "ref1").Return(resolved, nil).Once()

		outcome, err := svc.HandleCallback(ctx, signedCallback("ref1", 500000, "00"))
		require.NoError(t, err)
		assert.True(t, outcome.AlreadyProcessed)
		assert.Equal(t, domain.PaymentStatusSuccess, outcome.Status)
		paymentRepo.AssertExpectations(t)
		observer.AssertNotCalled(t, "PaymentResolved", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_HandleCallback_ConcurrentDeliveries(t *testing.T) {
	observer := new(MockPaymentObserver)
	observer.On("PaymentResolved", mock.Anything, mock.Anything).Return(nil)
	svc, store, ref := initiated(t, observer)
	values := signedCallback(ref, 500000, "00")

	const deliveries = 10
	var wg sync.WaitGroup
	outcomes := make(chan *domain.CallbackOutcome, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := svc.HandleCallback(context.Background(), values)
			if assert.NoError(t, err) {
				outcomes <- outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	fresh := 0
	for o := range outcomes {
		assert.Equal(t, domain.PaymentStatusSuccess, o.Status)
		if !o.AlreadyProcessed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Len(t, store.transactions, 1)
	observer.AssertNumberOfCalls(t, "PaymentResolved", 1)
}

func TestPaymentService_MarksDepositPaid(t *testing.T) {
	ctx := context.Background()
	store := newPaymentStore()
	order := seedOrder(t, store)
	rentals := NewRentalService(store, new(MockVehicleRepo), nil, nil, nil, testPolicy)
	svc := NewPaymentService(store, store, newTestGateway(t), rentals)

	res, err := svc.Initiate(ctx, renter, order.ID, 500000, "", "")
	require.NoError(t, err)
	_, err = svc.HandleCallback(ctx, signedCallback(res.TxnRef, 500000, "00"))
	require.NoError(t, err)

	stored, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Contract.DepositPaid)
}

func TestPaymentService_ExpireStale(t *testing.T) {
	ctx := context.Background()
	observer := new(MockPaymentObserver)
	observer.On("PaymentResolved", ctx, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Status == domain.PaymentStatusFailed && p.ResponseCode == domain.GatewayCodeExpired
	})).Return(nil).Once()
	svc, store, ref := initiated(t, observer)

	n, err := svc.ExpireStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "fresh payments are left alone")

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = svc.ExpireStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, _ := store.GetByTxnRef(ctx, ref)
	assert.Equal(t, domain.PaymentStatusFailed, p.Status)
	assert.Equal(t, domain.GatewayCodeExpired, p.ResponseCode)
	assert.Empty(t, store.transactions)

	n, err = svc.ExpireStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A late success callback cannot revive an expired payment.
	outcome, err := svc.HandleCallback(ctx, signedCallback(ref, 500000, "00"))
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyProcessed)
	assert.Equal(t, domain.PaymentStatusFailed, outcome.Status)
	observer.AssertExpectations(t)
}
