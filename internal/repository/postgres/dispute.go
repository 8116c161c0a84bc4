package postgres

import (
	"context"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

type disputeRepository struct {
	db repository.DBTX
}

func NewDisputeRepository(db repository.DBTX) repository.DisputeRepository {
	return &disputeRepository{db: db}
}

const disputeColumns = `id, rental_id, raised_by, description, proof_image_path, status,
	COALESCE(resolution_type, ''), deduction_amount, COALESCE(deduction_reason, ''),
	COALESCE(verdict, ''), COALESCE(verdict_notes, ''), reviewed_by, resolved_by, resolved_at, created_at`

func scanDispute(row rowScanner) (*domain.RentalDispute, error) {
	d := &domain.RentalDispute{}
	err := row.Scan(&d.ID, &d.RentalID, &d.RaisedBy, &d.Description, &d.ProofImagePath, &d.Status,
		&d.ResolutionType, &d.DeductionAmount, &d.DeductionReason,
		&d.Verdict, &d.VerdictNotes, &d.ReviewedBy, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *disputeRepository) Create(ctx context.Context, d *domain.RentalDispute) error {
	logger.EnterMethod("disputeRepository.Create", "rentalID", d.RentalID, "raisedBy", d.RaisedBy)

	query := `INSERT INTO rental_disputes (rental_id, raised_by, description, proof_image_path, status, deduction_amount, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, d.RentalID, d.RaisedBy, d.Description, d.ProofImagePath, d.Status, d.DeductionAmount, now).Scan(&d.ID)
	if err != nil {
		err = uniqueViolation(err, "one open dispute per rental")
		logger.ExitMethodWithError("disputeRepository.Create", err, "rentalID", d.RentalID)
		return err
	}

	d.CreatedAt = now
	logger.ExitMethod("disputeRepository.Create", "disputeID", d.ID)
	return nil
}

func (r *disputeRepository) GetByID(ctx context.Context, id int32) (*domain.RentalDispute, error) {
	d, err := scanDispute(r.db.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM rental_disputes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "dispute", id)
	}
	return d, nil
}

func (r *disputeRepository) GetForUpdate(ctx context.Context, id int32) (*domain.RentalDispute, error) {
	d, err := scanDispute(r.db.QueryRowContext(ctx, `SELECT `+disputeColumns+` FROM rental_disputes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "dispute", id)
	}
	return d, nil
}

func (r *disputeRepository) Update(ctx context.Context, d *domain.RentalDispute) error {
	query := `UPDATE rental_disputes SET status=$1, resolution_type=$2, deduction_amount=$3, deduction_reason=$4,
	          verdict=$5, verdict_notes=$6, reviewed_by=$7, resolved_by=$8, resolved_at=$9
	          WHERE id=$10`
	result, err := r.db.ExecContext(ctx, query, d.Status, nullString(string(d.ResolutionType)), d.DeductionAmount,
		nullString(d.DeductionReason), nullString(d.Verdict), nullString(d.VerdictNotes),
		d.ReviewedBy, d.ResolvedBy, d.ResolvedAt, d.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("dispute %d: %w", d.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *disputeRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.RentalDispute, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+disputeColumns+` FROM rental_disputes WHERE rental_id = $1 ORDER BY created_at, id`, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var disputes []domain.RentalDispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, *d)
	}
	return disputes, rows.Err()
}

func (r *disputeRepository) CreateDeduction(ctx context.Context, d *domain.DepositDeduction) error {
	query := `INSERT INTO deposit_deductions (rental_id, dispute_id, amount, reason, created_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now().UTC()
	logger.DatabaseCall("INSERT", "deposit_deductions", "rentalID", d.RentalID, "amount", d.Amount)
	err := r.db.QueryRowContext(ctx, query, d.RentalID, d.DisputeID, d.Amount, d.Reason, d.CreatedBy, now).Scan(&d.ID)
	if err != nil {
		return uniqueViolation(err, "one deposit deduction per dispute")
	}
	d.CreatedAt = now
	return nil
}

func (r *disputeRepository) SumDeductions(ctx context.Context, rentalID int32) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM deposit_deductions WHERE rental_id = $1`, rentalID).Scan(&total)
	return total, err
}

func (r *disputeRepository) CreateEarningsAdjustment(ctx context.Context, a *domain.LenderEarningsAdjustment) error {
	query := `INSERT INTO lender_earnings_adjustments (rental_id, dispute_id, lender_id, amount, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, a.RentalID, a.DisputeID, a.LenderID, a.Amount, now).Scan(&a.ID)
	if err != nil {
		return uniqueViolation(err, "one earnings adjustment per dispute")
	}
	a.CreatedAt = now
	return nil
}

func (r *disputeRepository) SumEarningsAdjustments(ctx context.Context, rentalID int32) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM lender_earnings_adjustments WHERE rental_id = $1`, rentalID).Scan(&total)
	return total, err
}
