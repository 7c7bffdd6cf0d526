package postgres

import (
	"context"
	"database/sql"
	"errors"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, name, COALESCE(phone_number, '') FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("user %d", id)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
