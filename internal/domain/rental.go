package domain

import "time"

// DateLayout is the calendar-day format used for rental periods.
const DateLayout = "2006-01-02"

type RentalStatus string

const (
	RentalStatusPending                   RentalStatus = "PENDING"
	RentalStatusApproved                  RentalStatus = "APPROVED"
	RentalStatusToHandover                RentalStatus = "TO_HANDOVER"
	RentalStatusPendingProof              RentalStatus = "PENDING_PROOF"
	RentalStatusActive                    RentalStatus = "ACTIVE"
	RentalStatusPendingReturn             RentalStatus = "PENDING_RETURN"
	RentalStatusReturnScheduled           RentalStatus = "RETURN_SCHEDULED"
	RentalStatusPendingReturnConfirmation RentalStatus = "PENDING_RETURN_CONFIRMATION"
	RentalStatusPendingFinalConfirmation  RentalStatus = "PENDING_FINAL_CONFIRMATION"
	RentalStatusDisputed                  RentalStatus = "DISPUTED"
	RentalStatusCompletedPendingPayments  RentalStatus = "COMPLETED_PENDING_PAYMENTS"
	RentalStatusCompletedWithPayments     RentalStatus = "COMPLETED_WITH_PAYMENTS"
	RentalStatusRejected                  RentalStatus = "REJECTED"
	RentalStatusCancelled                 RentalStatus = "CANCELLED"
)

// AllRentalStatuses lists every status in lifecycle order.
var AllRentalStatuses = []RentalStatus{
	RentalStatusPending,
	RentalStatusApproved,
	RentalStatusToHandover,
	RentalStatusPendingProof,
	RentalStatusActive,
	RentalStatusPendingReturn,
	RentalStatusReturnScheduled,
	RentalStatusPendingReturnConfirmation,
	RentalStatusPendingFinalConfirmation,
	RentalStatusDisputed,
	RentalStatusCompletedPendingPayments,
	RentalStatusCompletedWithPayments,
	RentalStatusRejected,
	RentalStatusCancelled,
}

// ParseRentalStatus validates a status string coming from the API or the database.
func ParseRentalStatus(s string) (RentalStatus, bool) {
	for _, st := range AllRentalStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition can leave the status.
func (s RentalStatus) IsTerminal() bool {
	switch s {
	case RentalStatusCompletedWithPayments, RentalStatusRejected, RentalStatusCancelled:
		return true
	}
	return false
}

// HoldsUnit reports whether a rental in this status still claims the listing's unit.
func (s RentalStatus) HoldsUnit() bool {
	switch s {
	case RentalStatusApproved, RentalStatusToHandover, RentalStatusPendingProof, RentalStatusActive,
		RentalStatusPendingReturn, RentalStatusReturnScheduled, RentalStatusPendingReturnConfirmation:
		return true
	}
	return false
}

// PriceTerms are snapshotted from the listing when the request is created.
// All later money calculations use the snapshot, not live listing prices.
type PriceTerms struct {
	DailyRate             int64 `json:"daily_rate"`
	DepositPerUnit        int64 `json:"deposit_per_unit"`
	WeeklyDiscountPercent int64 `json:"weekly_discount_percent"`
	ServiceFeePercent     int64 `json:"service_fee_percent"`
}

type Rental struct {
	ID                int32        `json:"id"`
	ListingID         int32        `json:"listing_id"`
	RenterID          int32        `json:"renter_id"`
	LenderID          int32        `json:"lender_id"`
	StartDate         string       `json:"start_date"`
	EndDate           string       `json:"end_date"`
	Terms             PriceTerms   `json:"terms"`
	BasePrice         int64        `json:"base_price"`
	Discount          int64        `json:"discount"`
	ServiceFee        int64        `json:"service_fee"`
	DepositFee        int64        `json:"deposit_fee"`
	TotalPrice        int64        `json:"total_price"`
	RequestedQuantity int32        `json:"requested_quantity"`
	ApprovedQuantity  *int32       `json:"approved_quantity,omitempty"`
	Status            RentalStatus `json:"status"`
	HandoverAt        *time.Time   `json:"handover_at,omitempty"`
	ReturnAt          *time.Time   `json:"return_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Quantity is the number of units the rental is billed for.
func (r *Rental) Quantity() int32 {
	if r.ApprovedQuantity != nil {
		return *r.ApprovedQuantity
	}
	return r.RequestedQuantity
}

// PriceConsistent checks total_price = base_price - discount + service_fee + deposit_fee.
func (r *Rental) PriceConsistent() bool {
	return r.TotalPrice == r.BasePrice-r.Discount+r.ServiceFee+r.DepositFee
}

// IsOverdue is derived on every read and never stored.
func (r *Rental) IsOverdue(today time.Time) bool {
	if r.Status != RentalStatusActive {
		return false
	}
	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return false
	}
	return truncateDay(today).After(end)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
