package postgres

import (
	"context"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

type scheduleRepository struct {
	db repository.DBTX
}

func NewScheduleRepository(db repository.DBTX) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

const scheduleColumns = `id, rental_id, kind, proposed_by, scheduled_at, day_of_week,
	COALESCE(start_time, ''), COALESCE(end_time, ''), is_selected, is_confirmed, selected_by, confirmed_by, created_at`

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	s := &domain.Schedule{}
	err := row.Scan(&s.ID, &s.RentalID, &s.Kind, &s.ProposedBy, &s.ScheduledAt, &s.DayOfWeek,
		&s.StartTime, &s.EndTime, &s.IsSelected, &s.IsConfirmed, &s.SelectedBy, &s.ConfirmedBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepository) Create(ctx context.Context, s *domain.Schedule) error {
	query := `INSERT INTO schedules (rental_id, kind, proposed_by, scheduled_at, day_of_week, start_time, end_time, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := time.Now().UTC()
	logger.DatabaseCall("INSERT", "schedules", "rentalID", s.RentalID, "kind", s.Kind)
	err := r.db.QueryRowContext(ctx, query, s.RentalID, s.Kind, s.ProposedBy, s.ScheduledAt, s.DayOfWeek,
		nullString(s.StartTime), nullString(s.EndTime), now).Scan(&s.ID)
	if err != nil {
		return err
	}
	s.CreatedAt = now
	return nil
}

func (r *scheduleRepository) GetByID(ctx context.Context, id int32) (*domain.Schedule, error) {
	s, err := scanSchedule(r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "schedule", id)
	}
	return s, nil
}

func (r *scheduleRepository) Update(ctx context.Context, s *domain.Schedule) error {
	query := `UPDATE schedules SET is_selected=$1, is_confirmed=$2, selected_by=$3, confirmed_by=$4 WHERE id=$5`
	result, err := r.db.ExecContext(ctx, query, s.IsSelected, s.IsConfirmed, s.SelectedBy, s.ConfirmedBy, s.ID)
	if err != nil {
		return uniqueViolation(err, "one selected schedule per rental and kind")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("schedule %d: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id int32) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	return err
}

func (r *scheduleRepository) DeleteSiblings(ctx context.Context, rentalID int32, kind domain.ScheduleKind, keepID int32) (int64, error) {
	query := `DELETE FROM schedules WHERE rental_id = $1 AND kind = $2 AND id <> $3`
	result, err := r.db.ExecContext(ctx, query, rentalID, kind, keepID)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("DELETE", rows, err, "rentalID", rentalID, "kind", kind)
	return rows, err
}

func (r *scheduleRepository) DeleteByRental(ctx context.Context, rentalID int32, kind domain.ScheduleKind) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE rental_id = $1 AND kind = $2`, rentalID, kind)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *scheduleRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE rental_id = $1 ORDER BY kind, id`, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

const noShowColumns = `id, rental_id, schedule_id, reported_by, absent_party, description, status,
	COALESCE(resolution, ''), refund_amount, resolved_by, resolved_at, created_at`

func scanNoShow(row rowScanner) (*domain.HandoverDispute, error) {
	d := &domain.HandoverDispute{}
	err := row.Scan(&d.ID, &d.RentalID, &d.ScheduleID, &d.ReportedBy, &d.AbsentParty, &d.Description, &d.Status,
		&d.Resolution, &d.RefundAmount, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *scheduleRepository) CreateNoShow(ctx context.Context, d *domain.HandoverDispute) error {
	query := `INSERT INTO handover_disputes (rental_id, schedule_id, reported_by, absent_party, description, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query, d.RentalID, d.ScheduleID, d.ReportedBy, d.AbsentParty, d.Description, d.Status, now).Scan(&d.ID)
	if err != nil {
		return uniqueViolation(err, "one pending no-show report per rental")
	}
	d.CreatedAt = now
	return nil
}

func (r *scheduleRepository) GetNoShow(ctx context.Context, id int32) (*domain.HandoverDispute, error) {
	d, err := scanNoShow(r.db.QueryRowContext(ctx, `SELECT `+noShowColumns+` FROM handover_disputes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "no-show report", id)
	}
	return d, nil
}

func (r *scheduleRepository) GetNoShowForUpdate(ctx context.Context, id int32) (*domain.HandoverDispute, error) {
	d, err := scanNoShow(r.db.QueryRowContext(ctx, `SELECT `+noShowColumns+` FROM handover_disputes WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "no-show report", id)
	}
	return d, nil
}

func (r *scheduleRepository) UpdateNoShow(ctx context.Context, d *domain.HandoverDispute) error {
	query := `UPDATE handover_disputes SET status=$1, resolution=$2, refund_amount=$3, resolved_by=$4, resolved_at=$5 WHERE id=$6`
	_, err := r.db.ExecContext(ctx, query, d.Status, nullString(string(d.Resolution)), d.RefundAmount, d.ResolvedBy, d.ResolvedAt, d.ID)
	return err
}

func (r *scheduleRepository) ListNoShows(ctx context.Context, rentalID int32) ([]domain.HandoverDispute, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+noShowColumns+` FROM handover_disputes WHERE rental_id = $1 ORDER BY id`, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.HandoverDispute
	for rows.Next() {
		d, err := scanNoShow(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *d)
	}
	return reports, rows.Err()
}
