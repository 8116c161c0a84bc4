package postgres

import (
	"context"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

type reasonRepository struct {
	db repository.DBTX
}

func NewReasonRepository(db repository.DBTX) repository.ReasonRepository {
	return &reasonRepository{db: db}
}

func (r *reasonRepository) Attach(ctx context.Context, ra *domain.ReasonAttachment) error {
	query := `INSERT INTO reason_attachments (rental_id, category, code, feedback, author_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, ra.RentalID, ra.Category, ra.Code, ra.Feedback, ra.AuthorID, now).Scan(&ra.ID)
	if err != nil {
		return err
	}
	ra.CreatedAt = now
	return nil
}

func (r *reasonRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.ReasonAttachment, error) {
	query := `SELECT id, rental_id, category, code, feedback, author_id, created_at
	          FROM reason_attachments WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reasons []domain.ReasonAttachment
	for rows.Next() {
		var ra domain.ReasonAttachment
		if err := rows.Scan(&ra.ID, &ra.RentalID, &ra.Category, &ra.Code, &ra.Feedback, &ra.AuthorID, &ra.CreatedAt); err != nil {
			return nil, err
		}
		reasons = append(reasons, ra)
	}
	return reasons, rows.Err()
}
