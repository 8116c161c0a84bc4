package domain

import "time"

type DisputeStatus string

const (
	DisputeStatusPending  DisputeStatus = "PENDING"
	DisputeStatusReviewed DisputeStatus = "REVIEWED"
	DisputeStatusResolved DisputeStatus = "RESOLVED"
)

type DisputeResolution string

const (
	DisputeResolutionDepositDeducted DisputeResolution = "DEPOSIT_DEDUCTED"
	DisputeResolutionRejected        DisputeResolution = "REJECTED"
)

// RentalDispute is a lender claim against the deposit after the item came back.
type RentalDispute struct {
	ID              int32             `json:"id"`
	RentalID        int32             `json:"rental_id"`
	RaisedBy        int32             `json:"raised_by"`
	Description     string            `json:"description"`
	ProofImagePath  string            `json:"proof_image_path"`
	Status          DisputeStatus     `json:"status"`
	ResolutionType  DisputeResolution `json:"resolution_type,omitempty"`
	DeductionAmount int64             `json:"deduction_amount"`
	DeductionReason string            `json:"deduction_reason,omitempty"`
	Verdict         string            `json:"verdict,omitempty"`
	VerdictNotes    string            `json:"verdict_notes,omitempty"`
	ReviewedBy      *int32            `json:"reviewed_by,omitempty"`
	ResolvedBy      *int32            `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// IsOpen reports whether the dispute still blocks payout.
func (d *RentalDispute) IsOpen() bool {
	return d.Status != DisputeStatusResolved
}

// DepositDeduction is the system of record for what was removed from the deposit.
type DepositDeduction struct {
	ID        int32     `json:"id"`
	RentalID  int32     `json:"rental_id"`
	DisputeID int32     `json:"dispute_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedBy int32     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// LenderEarningsAdjustment credits the lender with a deducted deposit amount.
type LenderEarningsAdjustment struct {
	ID        int32     `json:"id"`
	RentalID  int32     `json:"rental_id"`
	DisputeID int32     `json:"dispute_id"`
	LenderID  int32     `json:"lender_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
