package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.VehicleRepository
	repository.RentalRepository
	repository.PaymentRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                db,
		UserRepository:    NewUserRepository(db),
		VehicleRepository: NewVehicleRepository(db),
		RentalRepository:  NewRentalRepository(db),
		PaymentRepository: NewPaymentRepository(db),
	}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// mapError translates driver errors into domain error kinds. Exclusion and
// unique violations mean a concurrent writer claimed the same row or window.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pgerrcode.ExclusionViolation, pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrIntegrity, pqErr.Message)
	case pgerrcode.ForeignKeyViolation, pgerrcode.CheckViolation:
		return fmt.Errorf("%w: %s", domain.ErrValidation, pqErr.Message)
	}
	return err
}
