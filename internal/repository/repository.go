package repository

import (
	"context"
	"database/sql"

	"rental-escrow-backend/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	// GetForUpdate locks the rental row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.Rental, error)
	Update(ctx context.Context, rental *domain.Rental) error
	ListPendingByListingForUpdate(ctx context.Context, listingID, excludeID int32) ([]domain.Rental, error)
	CountHoldingUnit(ctx context.Context, listingID, excludeID int32) (int32, error)
	List(ctx context.Context, userID int32, role domain.Role, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	ListOverdue(ctx context.Context, today string) ([]domain.Rental, error)
	ListExpiredPending(ctx context.Context, today string) ([]domain.Rental, error)
}

type ListingRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Listing, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.Listing, error)
	SetAvailability(ctx context.Context, id int32, available bool) error
	SetExclusivelyRented(ctx context.Context, id int32, exclusive bool) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	IsVerified(ctx context.Context, id int32) (bool, error)
}

type PaymentRepository interface {
	CreateRequest(ctx context.Context, p *domain.PaymentRequest) error
	GetRequest(ctx context.Context, id int32) (*domain.PaymentRequest, error)
	GetRequestForUpdate(ctx context.Context, id int32) (*domain.PaymentRequest, error)
	UpdateRequest(ctx context.Context, p *domain.PaymentRequest) error
	ListRequests(ctx context.Context, rentalID int32) ([]domain.PaymentRequest, error)
	HasRequestWithStatus(ctx context.Context, rentalID int32, paymentType domain.PaymentType, status domain.PaymentStatus) (bool, error)

	CreateOverduePayment(ctx context.Context, op *domain.OverduePayment) error
	// GetOverduePayment returns domain.ErrNotFound until an overdue request is verified.
	GetOverduePayment(ctx context.Context, rentalID int32) (*domain.OverduePayment, error)

	CreateCompletion(ctx context.Context, c *domain.CompletionPayment) error
	ListCompletions(ctx context.Context, rentalID int32) ([]domain.CompletionPayment, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id int32) (*domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
	Delete(ctx context.Context, id int32) error
	DeleteSiblings(ctx context.Context, rentalID int32, kind domain.ScheduleKind, keepID int32) (int64, error)
	DeleteByRental(ctx context.Context, rentalID int32, kind domain.ScheduleKind) (int64, error)
	ListByRental(ctx context.Context, rentalID int32) ([]domain.Schedule, error)

	CreateNoShow(ctx context.Context, d *domain.HandoverDispute) error
	GetNoShow(ctx context.Context, id int32) (*domain.HandoverDispute, error)
	GetNoShowForUpdate(ctx context.Context, id int32) (*domain.HandoverDispute, error)
	UpdateNoShow(ctx context.Context, d *domain.HandoverDispute) error
	ListNoShows(ctx context.Context, rentalID int32) ([]domain.HandoverDispute, error)
}

type ProofRepository interface {
	Create(ctx context.Context, p *domain.Proof) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.Proof, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, d *domain.RentalDispute) error
	GetByID(ctx context.Context, id int32) (*domain.RentalDispute, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.RentalDispute, error)
	Update(ctx context.Context, d *domain.RentalDispute) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.RentalDispute, error)

	CreateDeduction(ctx context.Context, d *domain.DepositDeduction) error
	// SumDeductions is the total deducted from the rental's deposit, zero when none.
	SumDeductions(ctx context.Context, rentalID int32) (int64, error)
	CreateEarningsAdjustment(ctx context.Context, a *domain.LenderEarningsAdjustment) error
	SumEarningsAdjustments(ctx context.Context, rentalID int32) (int64, error)
}

type TimelineRepository interface {
	Append(ctx context.Context, e *domain.TimelineEvent) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.TimelineEvent, error)
}

type ReasonRepository interface {
	Attach(ctx context.Context, r *domain.ReasonAttachment) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.ReasonAttachment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

// Repos bundles every repository bound to the same connection or transaction.
type Repos struct {
	Rentals       RentalRepository
	Listings      ListingRepository
	Users         UserRepository
	Payments      PaymentRepository
	Schedules     ScheduleRepository
	Proofs        ProofRepository
	Disputes      DisputeRepository
	Timeline      TimelineRepository
	Reasons       ReasonRepository
	Notifications NotificationRepository
}

// Transactor runs a unit of work atomically. The callback receives repositories
// bound to the transaction; returning an error rolls everything back.
type Transactor interface {
	Repos() Repos
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
