package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, order_id, contract_id, user_id, amount, COALESCE(description, ''), txn_ref, status,
	COALESCE(response_code, ''), created_at, resolved_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	var contractID sql.NullInt32
	err := row.Scan(&p.ID, &p.OrderID, &contractID, &p.UserID, &p.Amount, &p.Description, &p.TxnRef, &p.Status,
		&p.ResponseCode, &p.CreatedAt, &p.ResolvedAt)
	if err != nil {
		return nil, err
	}
	if contractID.Valid {
		p.ContractID = &contractID.Int32
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.Create", "orderID", p.OrderID, "txnRef", p.TxnRef)

	query := `INSERT INTO payments (order_id, contract_id, user_id, amount, description, txn_ref, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, p.OrderID, p.ContractID, p.UserID, p.Amount, p.Description, p.TxnRef, p.Status, time.Now()).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		logger.ExitMethodWithError("paymentRepository.Create", err, "txnRef", p.TxnRef)
		return mapError(err)
	}

	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE txn_ref = $1`, txnRef))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("payment %s", txnRef)
	}
	return p, err
}

func (r *paymentRepository) Resolve(ctx context.Context, txnRef string, status domain.PaymentStatus, responseCode string, txn *domain.Transaction) (bool, error) {
	logger.EnterMethod("paymentRepository.Resolve", "txnRef", txnRef, "status", status)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now()
	query := `UPDATE payments SET status=$1, response_code=$2, resolved_at=$3
	          WHERE txn_ref=$4 AND status=$5 RETURNING id`
	logger.DatabaseCall("ResolvePayment", query, "txnRef", txnRef)
	var paymentID int32
	err = tx.QueryRowContext(ctx, query, status, responseCode, now, txnRef, domain.PaymentStatusPending).Scan(&paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("ResolvePayment", 0, nil)
		return false, nil
	}
	if err != nil {
		logger.DatabaseResult("ResolvePayment", 0, err)
		return false, err
	}
	logger.DatabaseResult("ResolvePayment", 1, nil)

	if txn != nil {
		txn.PaymentID = paymentID
		txnQuery := `INSERT INTO transactions (payment_id, gateway_txn_no, bank_code, bank_txn_no, card_type, pay_date,
		                 response_code, transaction_status, status, created_at)
		             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id, created_at`
		err = tx.QueryRowContext(ctx, txnQuery, txn.PaymentID, txn.GatewayTxnNo, txn.BankCode, txn.BankTxnNo, txn.CardType,
			txn.PayDate, txn.ResponseCode, txn.TransactionStatus, txn.Status, now).Scan(&txn.ID, &txn.CreatedAt)
		if err != nil {
			logger.ExitMethodWithError("paymentRepository.Resolve", err, "txnRef", txnRef, "step", "transaction")
			return false, mapError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	logger.ExitMethod("paymentRepository.Resolve", "txnRef", txnRef, "paymentID", paymentID)
	return true, nil
}

func (r *paymentRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 AND created_at < $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, domain.PaymentStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
