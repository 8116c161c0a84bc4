package postgres

import (
	"context"
	"fmt"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

type listingRepository struct {
	db repository.DBTX
}

func NewListingRepository(db repository.DBTX) repository.ListingRepository {
	return &listingRepository{db: db}
}

const listingColumns = `id, lender_id, title, daily_rate, deposit_per_unit, weekly_discount_percent, is_available, exclusively_rented`

func (r *listingRepository) scan(row rowScanner) (*domain.Listing, error) {
	l := &domain.Listing{}
	if err := row.Scan(&l.ID, &l.LenderID, &l.Title, &l.DailyRate, &l.DepositPerUnit, &l.WeeklyDiscountPercent, &l.IsAvailable, &l.ExclusivelyRented); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *listingRepository) GetByID(ctx context.Context, id int32) (*domain.Listing, error) {
	l, err := r.scan(r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "listing", id)
	}
	return l, nil
}

// GetForUpdate locks the listing row. Approvals of sibling requests for the
// same listing serialize on this lock.
func (r *listingRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Listing, error) {
	logger.DatabaseCall("SELECT FOR UPDATE", "listings", "listingID", id)
	l, err := r.scan(r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "listing", id)
	}
	return l, nil
}

func (r *listingRepository) SetAvailability(ctx context.Context, id int32, available bool) error {
	return r.setFlag(ctx, `UPDATE listings SET is_available = $1 WHERE id = $2`, id, available)
}

func (r *listingRepository) SetExclusivelyRented(ctx context.Context, id int32, exclusive bool) error {
	return r.setFlag(ctx, `UPDATE listings SET exclusively_rented = $1 WHERE id = $2`, id, exclusive)
}

func (r *listingRepository) setFlag(ctx context.Context, query string, id int32, value bool) error {
	logger.DatabaseCall("UPDATE", "listings", "listingID", id, "value", value)
	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "listingID", id)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil, "listingID", id)
	if rows == 0 {
		return fmt.Errorf("listing %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
