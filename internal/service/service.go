package service

import (
	"context"
	"time"

	"rental-escrow-backend/internal/cache"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/storage"
)

type RentalService interface {
	CreateRentalRequest(ctx context.Context, actor domain.Actor, in CreateRentalInput) (*domain.Rental, error)
	ApproveRentalRequest(ctx context.Context, actor domain.Actor, rentalID int32, approvedQuantity *int32) (*domain.Rental, error)
	RejectRentalRequest(ctx context.Context, actor domain.Actor, rentalID int32, reasonCode, feedback string) (*domain.Rental, error)
	CancelRental(ctx context.Context, actor domain.Actor, rentalID int32, reasonCode, feedback string) (*domain.Rental, error)
	InitiateReturn(ctx context.Context, actor domain.Actor, rentalID int32) (*domain.Rental, error)
	GetRental(ctx context.Context, actor domain.Actor, rentalID int32) (*domain.RentalView, error)
	ListRentals(ctx context.Context, actor domain.Actor, role domain.Role, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	GetTimeline(ctx context.Context, actor domain.Actor, rentalID int32) ([]domain.TimelineEvent, error)
	ExpireStaleRequests(ctx context.Context) (int, error)
	ListOverdueRentals(ctx context.Context) ([]domain.OverdueRental, error)
}

type PaymentService interface {
	SubmitPayment(ctx context.Context, actor domain.Actor, rentalID int32, in PaymentInput) (*domain.PaymentRequest, error)
	SubmitOverduePayment(ctx context.Context, actor domain.Actor, rentalID int32, in PaymentInput) (*domain.PaymentRequest, error)
	VerifyPayment(ctx context.Context, actor domain.Actor, paymentID int32) (*domain.PaymentRequest, error)
	RejectPayment(ctx context.Context, actor domain.Actor, paymentID int32, reasonCode, feedback string) (*domain.PaymentRequest, error)
	ProcessLenderPayment(ctx context.Context, actor domain.Actor, rentalID int32, in PayoutInput) (*domain.CompletionPayment, error)
	ProcessDepositRefund(ctx context.Context, actor domain.Actor, rentalID int32, in PayoutInput) (*domain.CompletionPayment, error)
}

type HandoverService interface {
	SubmitHandoverProof(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error)
	ConfirmReceipt(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error)
	SubmitReturnProof(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error)
	ConfirmReturn(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error)
}

type ScheduleService interface {
	ProposeSchedule(ctx context.Context, actor domain.Actor, rentalID int32, in ProposeScheduleInput) (*domain.Schedule, error)
	SelectSchedule(ctx context.Context, actor domain.Actor, scheduleID int32) (*domain.Schedule, error)
	ConfirmSchedule(ctx context.Context, actor domain.Actor, scheduleID int32) (*domain.Schedule, error)
	DeleteSchedule(ctx context.Context, actor domain.Actor, scheduleID int32) error
	ReportNoShow(ctx context.Context, actor domain.Actor, scheduleID int32, description string) (*domain.HandoverDispute, error)
	ResolveNoShow(ctx context.Context, actor domain.Actor, noShowID int32, resolution domain.NoShowResolution, refundAmount int64) (*domain.HandoverDispute, error)
}

type DisputeService interface {
	RaiseDispute(ctx context.Context, actor domain.Actor, rentalID int32, in RaiseDisputeInput) (*domain.RentalDispute, error)
	ReviewDispute(ctx context.Context, actor domain.Actor, disputeID int32) (*domain.RentalDispute, error)
	ResolveDispute(ctx context.Context, actor domain.Actor, disputeID int32, in ResolveDisputeInput) (*domain.RentalDispute, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
}

// Upload is an image received from a client, stored before the transaction runs.
type Upload struct {
	Filename string
	Content  []byte
}

func (u *Upload) empty() bool {
	return u == nil || len(u.Content) == 0
}

type CreateRentalInput struct {
	ListingID int32
	StartDate string
	EndDate   string
	Quantity  int32
}

type PaymentInput struct {
	Amount          int64
	ReferenceNumber string
	Proof           *Upload
}

type PayoutInput struct {
	Amount          int64
	ReferenceNumber string
	Proof           *Upload
}

type ProofInput struct {
	Image *Upload
	Notes string
}

type ProposeScheduleInput struct {
	Kind        domain.ScheduleKind
	ScheduledAt *time.Time
	DayOfWeek   *int32
	StartTime   string
	EndTime     string
}

type RaiseDisputeInput struct {
	Description string
	Proof       *Upload
}

type ResolveDisputeInput struct {
	Verdict         string
	VerdictNotes    string
	Resolution      domain.DisputeResolution
	DeductionAmount int64
	DeductionReason string
}

const DefaultNotifyTimeout = 5 * time.Second

// Policy holds the tunable business rules.
type Policy struct {
	ServiceFeePercent int64
	MinFeedbackLength int
	DefaultPageSize   int32
	MaxPageSize       int32
}

func DefaultPolicy() Policy {
	return Policy{
		ServiceFeePercent: 10,
		MinFeedbackLength: 10,
		DefaultPageSize:   20,
		MaxPageSize:       100,
	}
}

// Dependencies are shared by every lifecycle service.
type Dependencies struct {
	Tx       repository.Transactor
	Blobs    storage.BlobStore
	Notifier notify.Dispatcher
	Timeline *cache.TimelineCache
	Policy   Policy
	// NotifyTimeout bounds the post-commit notification fan-out of one
	// command. Zero means DefaultNotifyTimeout.
	NotifyTimeout time.Duration
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}
