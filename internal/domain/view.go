package domain

type DepositStatus string

const (
	DepositStatusHeld              DepositStatus = "HELD"
	DepositStatusUnderDispute      DepositStatus = "UNDER_DISPUTE"
	DepositStatusRefundable        DepositStatus = "REFUNDABLE"
	DepositStatusPartiallyDeducted DepositStatus = "PARTIALLY_DEDUCTED"
	DepositStatusFullyDeducted     DepositStatus = "FULLY_DEDUCTED"
	DepositStatusRefunded          DepositStatus = "REFUNDED"
)

// OverdueRental is an active rental past its end date and the fee it owes.
type OverdueRental struct {
	Rental
	OverdueDays int32 `json:"overdue_days"`
	OverdueFee  int64 `json:"overdue_fee"`
}

// RentalView is a rental plus everything derived for the asking actor.
type RentalView struct {
	Rental              *Rental             `json:"rental"`
	ViewerRole          Role                `json:"viewer_role"`
	AvailableActions    []Command           `json:"available_actions"`
	IsOverdue           bool                `json:"is_overdue"`
	RemainingDays       int32               `json:"remaining_days"`
	OverdueDays         int32               `json:"overdue_days"`
	OverdueFee          int64               `json:"overdue_fee"`
	DepositStatus       DepositStatus       `json:"deposit_status"`
	DepositDeduction    int64               `json:"deposit_deduction"`
	RemainingDeposit    int64               `json:"remaining_deposit"`
	LenderBaseEarnings  int64               `json:"lender_base_earnings"`
	TotalLenderEarnings int64               `json:"total_lender_earnings"`
	Payments            []PaymentRequest    `json:"payments"`
	Completions         []CompletionPayment `json:"completions"`
	Schedules           []Schedule          `json:"schedules"`
	Proofs              []Proof             `json:"proofs"`
	Disputes            []RentalDispute     `json:"disputes"`
	NoShows             []HandoverDispute   `json:"no_shows"`
	Reasons             []ReasonAttachment  `json:"reasons"`
}
