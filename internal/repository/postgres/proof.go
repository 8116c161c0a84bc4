package postgres

import (
	"context"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

type proofRepository struct {
	db repository.DBTX
}

func NewProofRepository(db repository.DBTX) repository.ProofRepository {
	return &proofRepository{db: db}
}

func (r *proofRepository) Create(ctx context.Context, p *domain.Proof) error {
	query := `INSERT INTO proofs (rental_id, stage, type, submitted_by, image_path, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, p.RentalID, p.Stage, p.Type, p.SubmittedBy, p.ImagePath, nullString(p.Notes), now).Scan(&p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = now
	return nil
}

func (r *proofRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.Proof, error) {
	query := `SELECT id, rental_id, stage, type, submitted_by, image_path, COALESCE(notes, ''), created_at
	          FROM proofs WHERE rental_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proofs []domain.Proof
	for rows.Next() {
		var p domain.Proof
		if err := rows.Scan(&p.ID, &p.RentalID, &p.Stage, &p.Type, &p.SubmittedBy, &p.ImagePath, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		proofs = append(proofs, p)
	}
	return proofs, rows.Err()
}
