package postgres

import (
	"context"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"

	"github.com/lib/pq"
)

const rentalColumns = `id, listing_id, renter_id, lender_id,
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
	daily_rate, deposit_per_unit, weekly_discount_percent, service_fee_percent,
	base_price, discount, service_fee, deposit_fee, total_price,
	requested_quantity, approved_quantity, status, handover_at, return_at, created_at, updated_at`

type rentalRepository struct {
	db repository.DBTX
}

func NewRentalRepository(db repository.DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	err := row.Scan(&rt.ID, &rt.ListingID, &rt.RenterID, &rt.LenderID,
		&rt.StartDate, &rt.EndDate,
		&rt.Terms.DailyRate, &rt.Terms.DepositPerUnit, &rt.Terms.WeeklyDiscountPercent, &rt.Terms.ServiceFeePercent,
		&rt.BasePrice, &rt.Discount, &rt.ServiceFee, &rt.DepositFee, &rt.TotalPrice,
		&rt.RequestedQuantity, &rt.ApprovedQuantity, &rt.Status, &rt.HandoverAt, &rt.ReturnAt, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Create", "listingID", rt.ListingID, "renterID", rt.RenterID)

	query := `INSERT INTO rentals (listing_id, renter_id, lender_id, start_date, end_date,
	          daily_rate, deposit_per_unit, weekly_discount_percent, service_fee_percent,
	          base_price, discount, service_fee, deposit_fee, total_price,
	          requested_quantity, approved_quantity, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	          RETURNING id`
	now := time.Now().UTC()
	logger.DatabaseCall("INSERT", "rentals", "listingID", rt.ListingID)
	err := r.db.QueryRowContext(ctx, query,
		rt.ListingID, rt.RenterID, rt.LenderID, rt.StartDate, rt.EndDate,
		rt.Terms.DailyRate, rt.Terms.DepositPerUnit, rt.Terms.WeeklyDiscountPercent, rt.Terms.ServiceFeePercent,
		rt.BasePrice, rt.Discount, rt.ServiceFee, rt.DepositFee, rt.TotalPrice,
		rt.RequestedQuantity, rt.ApprovedQuantity, rt.Status, now, now,
	).Scan(&rt.ID)
	logger.DatabaseResult("INSERT", 1, err, "rentalID", rt.ID)
	if err != nil {
		logger.ExitMethodWithError("rentalRepository.Create", err, "listingID", rt.ListingID)
		return err
	}

	rt.CreatedAt, rt.UpdatedAt = now, now
	logger.ExitMethod("rentalRepository.Create", "rentalID", rt.ID)
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "rental", id)
	}
	return rt, nil
}

func (r *rentalRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 FOR UPDATE`
	logger.DatabaseCall("SELECT FOR UPDATE", "rentals", "rentalID", id)
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "rental", id)
	}
	return rt, nil
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	query := `UPDATE rentals SET end_date=$1, base_price=$2, discount=$3, service_fee=$4, deposit_fee=$5,
	          total_price=$6, approved_quantity=$7, status=$8, handover_at=$9, return_at=$10, updated_at=$11
	          WHERE id=$12`
	now := time.Now().UTC()
	logger.DatabaseCall("UPDATE", "rentals", "rentalID", rt.ID, "status", rt.Status)
	result, err := r.db.ExecContext(ctx, query,
		rt.EndDate, rt.BasePrice, rt.Discount, rt.ServiceFee, rt.DepositFee,
		rt.TotalPrice, rt.ApprovedQuantity, rt.Status, rt.HandoverAt, rt.ReturnAt, now, rt.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "rentalID", rt.ID)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil, "rentalID", rt.ID)
	if rows == 0 {
		return fmt.Errorf("rental %d: %w", rt.ID, domain.ErrNotFound)
	}
	rt.UpdatedAt = now
	return nil
}

func (r *rentalRepository) ListPendingByListingForUpdate(ctx context.Context, listingID, excludeID int32) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE listing_id = $1 AND id <> $2 AND status = $3
	          ORDER BY id FOR UPDATE`
	return r.queryRentals(ctx, query, listingID, excludeID, domain.RentalStatusPending)
}

func (r *rentalRepository) CountHoldingUnit(ctx context.Context, listingID, excludeID int32) (int32, error) {
	var holding []string
	for _, st := range domain.AllRentalStatuses {
		if st.HoldsUnit() {
			holding = append(holding, string(st))
		}
	}
	query := `SELECT count(*) FROM rentals WHERE listing_id = $1 AND id <> $2 AND status = ANY($3)`
	var count int32
	err := r.db.QueryRowContext(ctx, query, listingID, excludeID, pq.Array(holding)).Scan(&count)
	return count, err
}

func (r *rentalRepository) List(ctx context.Context, userID int32, role domain.Role, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	offset := (page - 1) * pageSize
	sql := `SELECT ` + rentalColumns + ` FROM rentals WHERE 1=1`

	args := []interface{}{}
	argIdx := 1
	switch role {
	case domain.RoleRenter:
		sql += fmt.Sprintf(" AND renter_id = $%d", argIdx)
		args = append(args, userID)
		argIdx++
	case domain.RoleLender:
		sql += fmt.Sprintf(" AND lender_id = $%d", argIdx)
		args = append(args, userID)
		argIdx++
	case domain.RoleAdmin:
	default:
		sql += fmt.Sprintf(" AND (renter_id = $%d OR lender_id = $%d)", argIdx, argIdx)
		args = append(args, userID)
		argIdx++
	}
	if status != "" {
		sql += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	countSql := "SELECT count(*) FROM (" + sql + ") as sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sql += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rentals, err := r.queryRentals(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return rentals, count, nil
}

func (r *rentalRepository) ListOverdue(ctx context.Context, today string) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 AND end_date < $2 ORDER BY end_date`
	return r.queryRentals(ctx, query, domain.RentalStatusActive, today)
}

func (r *rentalRepository) ListExpiredPending(ctx context.Context, today string) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 AND start_date < $2 ORDER BY id`
	return r.queryRentals(ctx, query, domain.RentalStatusPending, today)
}

func (r *rentalRepository) queryRentals(ctx context.Context, query string, args ...interface{}) ([]domain.Rental, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}
