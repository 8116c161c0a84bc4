package postgres

import (
	"context"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

type paymentRepository struct {
	db repository.DBTX
}

func NewPaymentRepository(db repository.DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentRequestColumns = `id, rental_id, type, amount, reference_number, proof_image_path, status,
	submitted_by, verified_by, verified_at, COALESCE(rejection_feedback, ''), created_at, updated_at`

func scanPaymentRequest(row rowScanner) (*domain.PaymentRequest, error) {
	p := &domain.PaymentRequest{}
	err := row.Scan(&p.ID, &p.RentalID, &p.Type, &p.Amount, &p.ReferenceNumber, &p.ProofImagePath, &p.Status,
		&p.SubmittedBy, &p.VerifiedBy, &p.VerifiedAt, &p.RejectionFeedback, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) CreateRequest(ctx context.Context, p *domain.PaymentRequest) error {
	logger.EnterMethod("paymentRepository.CreateRequest", "rentalID", p.RentalID, "type", p.Type)

	query := `INSERT INTO payment_requests (rental_id, type, amount, reference_number, proof_image_path, status, submitted_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		p.RentalID, p.Type, p.Amount, p.ReferenceNumber, p.ProofImagePath, p.Status, p.SubmittedBy, now, now,
	).Scan(&p.ID)
	if err != nil {
		err = uniqueViolation(err, "one pending payment request per type")
		logger.ExitMethodWithError("paymentRepository.CreateRequest", err, "rentalID", p.RentalID)
		return err
	}

	p.CreatedAt, p.UpdatedAt = now, now
	logger.ExitMethod("paymentRepository.CreateRequest", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) GetRequest(ctx context.Context, id int32) (*domain.PaymentRequest, error) {
	p, err := scanPaymentRequest(r.db.QueryRowContext(ctx, `SELECT `+paymentRequestColumns+` FROM payment_requests WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "payment request", id)
	}
	return p, nil
}

func (r *paymentRepository) GetRequestForUpdate(ctx context.Context, id int32) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1 FOR UPDATE`
	p, err := scanPaymentRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "payment request", id)
	}
	return p, nil
}

// UpdateRequest only touches rows that are still pending; verified and
// rejected requests are immutable.
func (r *paymentRepository) UpdateRequest(ctx context.Context, p *domain.PaymentRequest) error {
	query := `UPDATE payment_requests SET status=$1, verified_by=$2, verified_at=$3, rejection_feedback=$4, updated_at=$5
	          WHERE id=$6 AND status=$7`
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, p.Status, p.VerifiedBy, p.VerifiedAt, nullString(p.RejectionFeedback), now, p.ID, domain.PaymentStatusPending)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil, "paymentID", p.ID, "status", p.Status)
	if rows == 0 {
		return &domain.ConsistencyViolation{Invariant: fmt.Sprintf("payment request %d is no longer pending", p.ID)}
	}
	p.UpdatedAt = now
	return nil
}

func (r *paymentRepository) ListRequests(ctx context.Context, rentalID int32) ([]domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE rental_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.PaymentRequest
	for rows.Next() {
		p, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) HasRequestWithStatus(ctx context.Context, rentalID int32, paymentType domain.PaymentType, status domain.PaymentStatus) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM payment_requests WHERE rental_id = $1 AND type = $2 AND status = $3)`
	err := r.db.QueryRowContext(ctx, query, rentalID, paymentType, status).Scan(&exists)
	return exists, err
}

func (r *paymentRepository) CreateOverduePayment(ctx context.Context, op *domain.OverduePayment) error {
	query := `INSERT INTO overdue_payments (rental_id, payment_request_id, overdue_days, daily_rate, quantity, amount, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	logger.DatabaseCall("INSERT", "overdue_payments", "rentalID", op.RentalID, "amount", op.Amount)
	err := r.db.QueryRowContext(ctx, query, op.RentalID, op.PaymentRequestID, op.OverdueDays, op.DailyRate, op.Quantity, op.Amount, now).Scan(&op.ID)
	if err != nil {
		return uniqueViolation(err, "one overdue payment per rental")
	}
	op.CreatedAt = now
	return nil
}

func (r *paymentRepository) GetOverduePayment(ctx context.Context, rentalID int32) (*domain.OverduePayment, error) {
	op := &domain.OverduePayment{}
	query := `SELECT id, rental_id, payment_request_id, overdue_days, daily_rate, quantity, amount, created_at
	          FROM overdue_payments WHERE rental_id = $1`
	err := r.db.QueryRowContext(ctx, query, rentalID).Scan(&op.ID, &op.RentalID, &op.PaymentRequestID, &op.OverdueDays, &op.DailyRate, &op.Quantity, &op.Amount, &op.CreatedAt)
	if err != nil {
		return nil, notFound(err, "overdue payment for rental", rentalID)
	}
	return op, nil
}

func (r *paymentRepository) CreateCompletion(ctx context.Context, c *domain.CompletionPayment) error {
	logger.EnterMethod("paymentRepository.CreateCompletion", "rentalID", c.RentalID, "type", c.Type, "amount", c.Amount)

	query := `INSERT INTO completion_payments (rental_id, type, amount, reference_number, proof_image_path, processed_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, c.RentalID, c.Type, c.Amount, c.ReferenceNumber, c.ProofImagePath, c.ProcessedBy, now).Scan(&c.ID)
	if err != nil {
		err = uniqueViolation(err, "one completion payment per type")
		logger.ExitMethodWithError("paymentRepository.CreateCompletion", err, "rentalID", c.RentalID)
		return err
	}

	c.CreatedAt = now
	logger.ExitMethod("paymentRepository.CreateCompletion", "completionID", c.ID)
	return nil
}

func (r *paymentRepository) ListCompletions(ctx context.Context, rentalID int32) ([]domain.CompletionPayment, error) {
	query := `SELECT id, rental_id, type, amount, reference_number, proof_image_path, processed_by, created_at
	          FROM completion_payments WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []domain.CompletionPayment
	for rows.Next() {
		var c domain.CompletionPayment
		if err := rows.Scan(&c.ID, &c.RentalID, &c.Type, &c.Amount, &c.ReferenceNumber, &c.ProofImagePath, &c.ProcessedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}
