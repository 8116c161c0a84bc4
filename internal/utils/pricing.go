package utils

import (
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
)

// WeeklyDiscountMinDays is the rental length from which the weekly discount applies.
const WeeklyDiscountMinDays = 7

// Quote is the money breakdown of a rental request.
type Quote struct {
	Days       int32
	BasePrice  int64
	Discount   int64
	ServiceFee int64
	DepositFee int64
	TotalPrice int64
}

// ParseDate parses a yyyy-mm-dd calendar date in UTC.
func ParseDate(dateStr string) (time.Time, error) {
	d, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd")
	}
	return d, nil
}

// Today truncates a timestamp to its UTC calendar day.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns end - start in whole calendar days.
func DaysBetween(start, end time.Time) int32 {
	return int32(Today(end).Sub(Today(start)).Hours() / 24)
}

// RentalDays counts the rental period with both the start and the end date included.
func RentalDays(startDate, endDate string) (int32, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return 0, err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return 0, err
	}
	if end.Before(start) {
		return 0, fmt.Errorf("end date must be >= start date")
	}
	return DaysBetween(start, end) + 1, nil
}

// QuoteRental prices a rental period for a quantity under the snapshotted terms.
func QuoteRental(terms domain.PriceTerms, startDate, endDate string, quantity int32) (*Quote, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}
	days, err := RentalDays(startDate, endDate)
	if err != nil {
		return nil, err
	}

	q := &Quote{Days: days}
	q.BasePrice = terms.DailyRate * int64(days) * int64(quantity)
	if days >= WeeklyDiscountMinDays {
		q.Discount = percentOf(q.BasePrice, terms.WeeklyDiscountPercent)
	}
	q.ServiceFee = percentOf(q.BasePrice, terms.ServiceFeePercent)
	q.DepositFee = terms.DepositPerUnit * int64(quantity)
	q.TotalPrice = q.BasePrice - q.Discount + q.ServiceFee + q.DepositFee
	return q, nil
}

// ApplyQuote copies a quote onto the rental's money fields.
func ApplyQuote(r *domain.Rental, q *Quote) {
	r.BasePrice = q.BasePrice
	r.Discount = q.Discount
	r.ServiceFee = q.ServiceFee
	r.DepositFee = q.DepositFee
	r.TotalPrice = q.TotalPrice
}

func percentOf(amount, percent int64) int64 {
	if percent <= 0 {
		return 0
	}
	return amount * percent / 100
}

// OverdueDays is max(0, today - end_date) in whole days.
func OverdueDays(endDate string, now time.Time) int32 {
	end, err := ParseDate(endDate)
	if err != nil {
		return 0
	}
	days := DaysBetween(end, now)
	if days < 0 {
		return 0
	}
	return days
}

// RemainingDays counts the days left in the rental period, today included.
func RemainingDays(endDate string, now time.Time) int32 {
	end, err := ParseDate(endDate)
	if err != nil {
		return 0
	}
	days := DaysBetween(now, end) + 1
	if days < 0 {
		return 0
	}
	return days
}

// OverdueFee is dailyRate × overdueDays × quantity.
func OverdueFee(dailyRate int64, overdueDays int32, quantity int32) int64 {
	if overdueDays <= 0 {
		return 0
	}
	return dailyRate * int64(overdueDays) * int64(quantity)
}

// CurrentOverdueFee returns the frozen verified amount when one exists and
// otherwise accrues the fee at the listing's daily rate.
func CurrentOverdueFee(r *domain.Rental, dailyRate int64, verified *domain.OverduePayment, now time.Time) int64 {
	if verified != nil {
		return verified.Amount
	}
	if r.Status != domain.RentalStatusActive {
		return 0
	}
	return OverdueFee(dailyRate, OverdueDays(r.EndDate, now), r.Quantity())
}

// LenderBaseEarnings is base_price - discount - service_fee, floored at zero.
func LenderBaseEarnings(r *domain.Rental) int64 {
	earnings := r.BasePrice - r.Discount - r.ServiceFee
	if earnings < 0 {
		return 0
	}
	return earnings
}

// LenderTotalEarnings adds the verified overdue fee and any deposit deduction credit.
func LenderTotalEarnings(r *domain.Rental, verifiedOverdueFee, deductionCredit int64) int64 {
	return LenderBaseEarnings(r) + verifiedOverdueFee + deductionCredit
}

// RemainingDeposit is deposit_fee - deduction, floored at zero.
func RemainingDeposit(depositFee, deduction int64) int64 {
	remaining := depositFee - deduction
	if remaining < 0 {
		return 0
	}
	return remaining
}
