package postgres

import (
	"context"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

type timelineRepository struct {
	db repository.DBTX
}

func NewTimelineRepository(db repository.DBTX) repository.TimelineRepository {
	return &timelineRepository{db: db}
}

func (r *timelineRepository) Append(ctx context.Context, e *domain.TimelineEvent) error {
	query := `INSERT INTO rental_timeline_events (rental_id, actor_user_id, event_type, resulting_status, metadata, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	metadata := e.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	logger.DatabaseCall("INSERT", "rental_timeline_events", "rentalID", e.RentalID, "eventType", e.EventType)
	return r.db.QueryRowContext(ctx, query, e.RentalID, e.ActorUserID, e.EventType, e.ResultingStatus, metadata, e.CreatedAt).Scan(&e.ID)
}

func (r *timelineRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.TimelineEvent, error) {
	query := `SELECT id, rental_id, actor_user_id, event_type, resulting_status, metadata::text, created_at
	          FROM rental_timeline_events WHERE rental_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.TimelineEvent
	for rows.Next() {
		var e domain.TimelineEvent
		if err := rows.Scan(&e.ID, &e.RentalID, &e.ActorUserID, &e.EventType, &e.ResultingStatus, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
