package domain

// Listing is the core's projection of a catalog item. The catalog owns
// everything else; the lifecycle engine only reads prices and toggles the
// two availability flags inside its own transactions.
type Listing struct {
	ID                    int32  `json:"id"`
	LenderID              int32  `json:"lender_id"`
	Title                 string `json:"title"`
	DailyRate             int64  `json:"daily_rate"`
	DepositPerUnit        int64  `json:"deposit_per_unit"`
	WeeklyDiscountPercent int64  `json:"weekly_discount_percent"`
	IsAvailable           bool   `json:"is_available"`
	ExclusivelyRented     bool   `json:"exclusively_rented"`
}
