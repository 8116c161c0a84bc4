package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/notify"
)

// EventOverdueReminder is the notification type of the daily reminder.
const EventOverdueReminder = "OVERDUE_REMINDER"

// SendOverdueReminders tells renter and lender of every overdue rental how
// late it is and what the overdue fee currently amounts to.
func (jr *JobRunner) SendOverdueReminders() error {
	return jr.runWithRecovery(JobSendOverdueReminders, func(ctx context.Context) error {
		rentals, err := jr.rentals.ListOverdueRentals(ctx)
		if err != nil {
			return fmt.Errorf("failed to list overdue rentals: %w", err)
		}

		var errs []error
		sent := 0
		for _, r := range rentals {
			days, fee := r.OverdueDays, r.OverdueFee
			if days <= 0 {
				continue
			}
			attrs := map[string]string{
				"overdue_days": strconv.Itoa(int(days)),
				"overdue_fee":  strconv.FormatInt(fee, 10),
			}

			renterMsg := notify.Message{
				UserID:     r.RenterID,
				RentalID:   r.ID,
				Event:      EventOverdueReminder,
				Title:      "Rental overdue",
				Body:       fmt.Sprintf("Rental #%d was due on %s and is %d day(s) overdue. The overdue fee is currently %d. Please return the item and pay the overdue fee.", r.ID, r.EndDate, days, fee),
				Attributes: attrs,
			}
			lenderMsg := notify.Message{
				UserID:     r.LenderID,
				RentalID:   r.ID,
				Event:      EventOverdueReminder,
				Title:      "Rental overdue",
				Body:       fmt.Sprintf("Rental #%d was due back on %s and is %d day(s) overdue. The renter has been reminded.", r.ID, r.EndDate, days),
				Attributes: attrs,
			}

			for _, msg := range []notify.Message{renterMsg, lenderMsg} {
				if err := jr.notifier.Notify(ctx, msg); err != nil {
					logger.Warn("Failed to send overdue reminder", "rentalID", r.ID, "userID", msg.UserID, "error", err)
					errs = append(errs, fmt.Errorf("rental %d user %d: %w", r.ID, msg.UserID, err))
					continue
				}
				sent++
			}
		}

		logger.Info("Sent overdue reminders", "rentals", len(rentals), "sent", sent)
		return errors.Join(errs...)
	})
}
