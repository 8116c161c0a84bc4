package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"

	"github.com/lib/pq"
)

// Store owns the connection pool and hands out repositories bound either to
// the pool or to a transaction.
type Store struct {
	db    *sql.DB
	repos repository.Repos
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		repos: newRepos(db),
	}
}

func newRepos(db repository.DBTX) repository.Repos {
	return repository.Repos{
		Rentals:       NewRentalRepository(db),
		Listings:      NewListingRepository(db),
		Users:         NewUserRepository(db),
		Payments:      NewPaymentRepository(db),
		Schedules:     NewScheduleRepository(db),
		Proofs:        NewProofRepository(db),
		Disputes:      NewDisputeRepository(db),
		Timeline:      NewTimelineRepository(db),
		Reasons:       NewReasonRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// Repos returns repositories running on the pool, outside any transaction.
func (s *Store) Repos() repository.Repos {
	return s.repos
}

// WithinTx runs fn in a read-committed transaction. Row locks taken through
// the GetForUpdate methods are held until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound and leaves other errors alone.
func notFound(err error, entity string, id int32) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", entity, id, domain.ErrNotFound)
	}
	return err
}

// uniqueViolation turns a unique-index hit into a ConsistencyViolation so that
// duplicate ledger rows raced past the service checks still fail loudly.
func uniqueViolation(err error, invariant string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &domain.ConsistencyViolation{Invariant: invariant}
	}
	return err
}

func nullString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
