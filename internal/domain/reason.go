package domain

import "time"

type ReasonCategory string

const (
	ReasonCategoryRejection        ReasonCategory = "REJECTION"
	ReasonCategoryCancellation     ReasonCategory = "CANCELLATION"
	ReasonCategoryPaymentRejection ReasonCategory = "PAYMENT_REJECTION"
)

// Rejection reason codes a lender may pick, plus the codes the system uses.
const (
	ReasonItemUnavailable     = "ITEM_UNAVAILABLE"
	ReasonDatesUnavailable    = "DATES_UNAVAILABLE"
	ReasonRenterRequirements  = "RENTER_REQUIREMENTS"
	ReasonOther               = "OTHER"
	ReasonListingUnavailable  = "LISTING_UNAVAILABLE"
	ReasonRequestExpired      = "REQUEST_EXPIRED"
	ReasonChangeOfPlans       = "CHANGE_OF_PLANS"
	ReasonFoundAlternative    = "FOUND_ALTERNATIVE"
	ReasonNoShow              = "NO_SHOW"
	ReasonPaymentInsufficient = "PAYMENT_INSUFFICIENT"
	ReasonInvalidProof        = "INVALID_PROOF"
	ReasonRentalCancelled     = "RENTAL_CANCELLED"
)

var lenderRejectionCodes = map[string]bool{
	ReasonItemUnavailable:    true,
	ReasonDatesUnavailable:   true,
	ReasonRenterRequirements: true,
	ReasonOther:              true,
}

var cancellationCodes = map[string]bool{
	ReasonChangeOfPlans:    true,
	ReasonFoundAlternative: true,
	ReasonDatesUnavailable: true,
	ReasonOther:            true,
}

var paymentRejectionCodes = map[string]bool{
	ReasonPaymentInsufficient: true,
	ReasonInvalidProof:        true,
	ReasonOther:               true,
}

// ValidReasonCode checks a user-supplied code against the closed set of its category.
func ValidReasonCode(category ReasonCategory, code string) bool {
	switch category {
	case ReasonCategoryRejection:
		return lenderRejectionCodes[code]
	case ReasonCategoryCancellation:
		return cancellationCodes[code]
	case ReasonCategoryPaymentRejection:
		return paymentRejectionCodes[code]
	}
	return false
}

// ReasonAttachment is the one reason capability shared by every category.
type ReasonAttachment struct {
	ID        int32          `json:"id"`
	RentalID  int32          `json:"rental_id"`
	Category  ReasonCategory `json:"category"`
	Code      string         `json:"code"`
	Feedback  string         `json:"feedback"`
	AuthorID  *int32         `json:"author_id"` // NULL for system-authored reasons
	CreatedAt time.Time      `json:"created_at"`
}
