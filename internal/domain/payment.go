package domain

import "time"

type PaymentType string

const (
	PaymentTypeInitial PaymentType = "INITIAL"
	PaymentTypeOverdue PaymentType = "OVERDUE"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
)

// PaymentRequest is one renter payment attempt. Only an admin moves it out of
// PENDING, and a verified request is never modified again.
type PaymentRequest struct {
	ID                int32         `json:"id"`
	RentalID          int32         `json:"rental_id"`
	Type              PaymentType   `json:"type"`
	Amount            int64         `json:"amount"`
	ReferenceNumber   string        `json:"reference_number"`
	ProofImagePath    string        `json:"proof_image_path"`
	Status            PaymentStatus `json:"status"`
	SubmittedBy       int32         `json:"submitted_by"`
	VerifiedBy        *int32        `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time    `json:"verified_at,omitempty"`
	RejectionFeedback string        `json:"rejection_feedback,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// OverduePayment freezes the overdue fee at verification time.
type OverduePayment struct {
	ID               int32     `json:"id"`
	RentalID         int32     `json:"rental_id"`
	PaymentRequestID int32     `json:"payment_request_id"`
	OverdueDays      int32     `json:"overdue_days"`
	DailyRate        int64     `json:"daily_rate"`
	Quantity         int32     `json:"quantity"`
	Amount           int64     `json:"amount"`
	CreatedAt        time.Time `json:"created_at"`
}

type CompletionType string

const (
	CompletionTypeLenderPayment CompletionType = "LENDER_PAYMENT"
	CompletionTypeDepositRefund CompletionType = "DEPOSIT_REFUND"
)

// CompletionPayment is one payout leg. At most one of each type exists per rental.
type CompletionPayment struct {
	ID              int32          `json:"id"`
	RentalID        int32          `json:"rental_id"`
	Type            CompletionType `json:"type"`
	Amount          int64          `json:"amount"`
	ReferenceNumber string         `json:"reference_number"`
	ProofImagePath  string         `json:"proof_image_path"`
	ProcessedBy     int32          `json:"processed_by"`
	CreatedAt       time.Time      `json:"created_at"`
}
