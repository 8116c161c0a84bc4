package postgres

import (
	"context"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

type userRepository struct {
	db repository.DBTX
}

func NewUserRepository(db repository.DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, name, COALESCE(push_token, ''), is_verified FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.PushToken, &u.IsVerified)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (r *userRepository) IsVerified(ctx context.Context, id int32) (bool, error) {
	var verified bool
	err := r.db.QueryRowContext(ctx, `SELECT is_verified FROM users WHERE id = $1`, id).Scan(&verified)
	if err != nil {
		return false, notFound(err, "user", id)
	}
	return verified, nil
}
