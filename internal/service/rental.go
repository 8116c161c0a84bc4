package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/utils"
)

type rentalService struct {
	*core
}

func NewRentalService(deps Dependencies) RentalService {
	return &rentalService{core: newCore(deps)}
}

func (s *rentalService) CreateRentalRequest(ctx context.Context, actor domain.Actor, in CreateRentalInput) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.CreateRentalRequest", "renterID", actor.UserID, "listingID", in.ListingID)

	if actor.IsSystem() {
		return nil, &domain.AuthorizationError{Reason: "system cannot request rentals"}
	}
	if err := s.validateRequestDates(in); err != nil {
		logger.ExitMethodWithError("rentalService.CreateRentalRequest", err)
		return nil, err
	}

	var rental *domain.Rental
	err := s.run(ctx, "create_rental", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		verified, err := repos.Users.IsVerified(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if !verified {
			return &domain.AuthorizationError{ActorID: actor.UserID, Reason: "has not completed identity verification"}
		}

		listing, err := repos.Listings.GetByID(ctx, in.ListingID)
		if err != nil {
			return err
		}
		if listing.LenderID == actor.UserID {
			return domain.NewValidationError("listing_id", "cannot rent your own listing")
		}
		if !listing.IsAvailable {
			return domain.NewValidationError("listing_id", "listing is not available")
		}

		terms := domain.PriceTerms{
			DailyRate:             listing.DailyRate,
			DepositPerUnit:        listing.DepositPerUnit,
			WeeklyDiscountPercent: listing.WeeklyDiscountPercent,
			ServiceFeePercent:     s.policy.ServiceFeePercent,
		}
		quote, err := utils.QuoteRental(terms, in.StartDate, in.EndDate, in.Quantity)
		if err != nil {
			return domain.NewValidationError("dates", err.Error())
		}

		rental = &domain.Rental{
			ListingID:         listing.ID,
			RenterID:          actor.UserID,
			LenderID:          listing.LenderID,
			StartDate:         in.StartDate,
			EndDate:           in.EndDate,
			Terms:             terms,
			RequestedQuantity: in.Quantity,
			Status:            domain.RentalStatusPending,
		}
		utils.ApplyQuote(rental, quote)
		if err := repos.Rentals.Create(ctx, rental); err != nil {
			return err
		}

		if err := s.record(ctx, repos, out, rental, actor, domain.EventRentalRequested, map[string]any{
			"quantity": in.Quantity, "total_price": rental.TotalPrice, "days": quote.Days,
		}); err != nil {
			return err
		}
		out.notify(rental.LenderID, rental, domain.EventRentalRequested, "New Rental Request",
			fmt.Sprintf("You received a rental request for %s from %s to %s", listing.Title, in.StartDate, in.EndDate))
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.CreateRentalRequest", err)
		return nil, err
	}

	logger.ExitMethod("rentalService.CreateRentalRequest", "rentalID", rental.ID)
	return rental, nil
}

func (s *rentalService) validateRequestDates(in CreateRentalInput) error {
	verr := &domain.ValidationError{}
	start, err := utils.ParseDate(in.StartDate)
	if err != nil {
		verr.Add("start_date", err.Error())
	}
	end, err := utils.ParseDate(in.EndDate)
	if err != nil {
		verr.Add("end_date", err.Error())
	}
	if len(verr.Fields) == 0 {
		if start.Before(s.today()) {
			verr.Add("start_date", "must not be in the past")
		}
		if end.Before(start) {
			verr.Add("end_date", "must be on or after the start date")
		}
	}
	if in.Quantity < 1 {
		verr.Add("quantity", "must be at least 1")
	}
	if in.ListingID <= 0 {
		verr.Add("listing_id", "is required")
	}
	return verr.OrNil()
}

func (s *rentalService) ApproveRentalRequest(ctx context.Context, actor domain.Actor, rentalID int32, approvedQuantity *int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.ApproveRentalRequest", "lenderID", actor.UserID, "rentalID", rentalID)

	var rental *domain.Rental
	err := s.run(ctx, "approve_rental", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, listing, err := lockRentalWithListing(ctx, repos, rentalID)
		if err != nil {
			return err
		}
		if err := domain.RequireLender(actor, r); err != nil {
			return err
		}
		if _, err := domain.Transition(r.Status, domain.CmdApprove); err != nil {
			return err
		}
		if listing.ExclusivelyRented {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdApprove, Reason: "listing is already rented"}
		}
		if !listing.IsAvailable {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdApprove, Reason: "listing is not available"}
		}

		if approvedQuantity != nil {
			qty := *approvedQuantity
			if qty < 1 || qty > r.RequestedQuantity {
				return domain.NewValidationError("approved_quantity", fmt.Sprintf("must be between 1 and %d", r.RequestedQuantity))
			}
			if qty != r.RequestedQuantity {
				quote, err := utils.QuoteRental(r.Terms, r.StartDate, r.EndDate, qty)
				if err != nil {
					return err
				}
				utils.ApplyQuote(r, quote)
			}
			r.ApprovedQuantity = &qty
		} else {
			qty := r.RequestedQuantity
			r.ApprovedQuantity = &qty
		}

		if err := repos.Listings.SetExclusivelyRented(ctx, listing.ID, true); err != nil {
			return err
		}
		if err := s.transition(ctx, repos, out, r, actor, domain.CmdApprove, domain.EventRentalApproved, map[string]any{
			"approved_quantity": r.Quantity(), "total_price": r.TotalPrice,
		}); err != nil {
			return err
		}
		out.notify(r.RenterID, r, domain.EventRentalApproved, "Rental Approved",
			fmt.Sprintf("Your rental request for %s was approved. Please submit the payment of %d.", listing.Title, r.TotalPrice))

		siblings, err := repos.Rentals.ListPendingByListingForUpdate(ctx, listing.ID, r.ID)
		if err != nil {
			return err
		}
		for i := range siblings {
			if err := s.autoReject(ctx, repos, out, &siblings[i], domain.ReasonListingUnavailable,
				fmt.Sprintf("%s was rented to another request", listing.Title)); err != nil {
				return err
			}
		}

		rental = r
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.ApproveRentalRequest", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.ApproveRentalRequest", "rentalID", rentalID)
	return rental, nil
}

// autoReject closes a pending request on behalf of the system.
func (s *rentalService) autoReject(ctx context.Context, repos repository.Repos, out *outcome, r *domain.Rental, code, feedback string) error {
	if err := repos.Reasons.Attach(ctx, &domain.ReasonAttachment{
		RentalID: r.ID,
		Category: domain.ReasonCategoryRejection,
		Code:     code,
		Feedback: feedback,
	}); err != nil {
		return err
	}
	if err := s.transition(ctx, repos, out, r, domain.SystemActor, domain.CmdAutoReject, domain.EventRentalAutoRejected, map[string]any{
		"reason_code": code,
	}); err != nil {
		return err
	}
	out.notify(r.RenterID, r, domain.EventRentalAutoRejected, "Rental Request Closed", feedback)
	return nil
}

func (s *rentalService) RejectRentalRequest(ctx context.Context, actor domain.Actor, rentalID int32, reasonCode, feedback string) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.RejectRentalRequest", "lenderID", actor.UserID, "rentalID", rentalID, "reason", reasonCode)

	var rental *domain.Rental
	err := s.run(ctx, "reject_rental", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
		if err != nil {
			return err
		}
		if err := domain.RequireLender(actor, r); err != nil {
			return err
		}
		if _, err := domain.Transition(r.Status, domain.CmdReject); err != nil {
			return err
		}

		verr := &domain.ValidationError{}
		if !domain.ValidReasonCode(domain.ReasonCategoryRejection, reasonCode) {
			verr.Add("reason_code", "is not a valid rejection reason")
		}
		if !s.validFeedback(feedback) {
			verr.Add("feedback", s.feedbackMessage())
		}
		if err := verr.OrNil(); err != nil {
			return err
		}

		if err := repos.Reasons.Attach(ctx, &domain.ReasonAttachment{
			RentalID: r.ID,
			Category: domain.ReasonCategoryRejection,
			Code:     reasonCode,
			Feedback: strings.TrimSpace(feedback),
			AuthorID: actor.UserIDPtr(),
		}); err != nil {
			return err
		}
		if err := s.transition(ctx, repos, out, r, actor, domain.CmdReject, domain.EventRentalRejected, map[string]any{
			"reason_code": reasonCode,
		}); err != nil {
			return err
		}
		out.notify(r.RenterID, r, domain.EventRentalRejected, "Rental Rejected", strings.TrimSpace(feedback))
		rental = r
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.RejectRentalRequest", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.RejectRentalRequest", "rentalID", rentalID)
	return rental, nil
}

func (s *rentalService) CancelRental(ctx context.Context, actor domain.Actor, rentalID int32, reasonCode, feedback string) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.CancelRental", "userID", actor.UserID, "rentalID", rentalID)

	var rental *domain.Rental
	err := s.run(ctx, "cancel_rental", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, listing, err := lockRentalWithListing(ctx, repos, rentalID)
		if err != nil {
			return err
		}
		if err := domain.RequireParticipant(actor, r); err != nil {
			return err
		}
		if _, err := domain.Transition(r.Status, domain.CmdCancel); err != nil {
			return err
		}
		if r.Status == domain.RentalStatusPending && actor.RoleIn(r) != domain.RoleRenter {
			return &domain.AuthorizationError{ActorID: actor.UserID, Reason: "only the renter can withdraw a pending request"}
		}
		if reasonCode != "" && !domain.ValidReasonCode(domain.ReasonCategoryCancellation, reasonCode) {
			return domain.NewValidationError("reason_code", "is not a valid cancellation reason")
		}

		wasApproved := r.Status == domain.RentalStatusApproved
		if wasApproved {
			verified, err := repos.Payments.HasRequestWithStatus(ctx, r.ID, domain.PaymentTypeInitial, domain.PaymentStatusVerified)
			if err != nil {
				return err
			}
			if verified {
				return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdCancel, Reason: "payment was already verified"}
			}
			if err := s.rejectPendingPayments(ctx, repos, r); err != nil {
				return err
			}
			if err := repos.Listings.SetExclusivelyRented(ctx, listing.ID, false); err != nil {
				return err
			}
		}

		if reasonCode != "" {
			if err := repos.Reasons.Attach(ctx, &domain.ReasonAttachment{
				RentalID: r.ID,
				Category: domain.ReasonCategoryCancellation,
				Code:     reasonCode,
				Feedback: strings.TrimSpace(feedback),
				AuthorID: actor.UserIDPtr(),
			}); err != nil {
				return err
			}
		}
		if err := s.transition(ctx, repos, out, r, actor, domain.CmdCancel, domain.EventRentalCancelled, map[string]any{
			"reason_code": reasonCode, "cancelled_by": string(actor.RoleIn(r)),
		}); err != nil {
			return err
		}
		out.notify(counterparty(actor, r), r, domain.EventRentalCancelled, "Rental Cancelled",
			fmt.Sprintf("Rental #%d for %s was cancelled", r.ID, listing.Title))
		rental = r
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.CancelRental", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.CancelRental", "rentalID", rentalID)
	return rental, nil
}

func (s *rentalService) rejectPendingPayments(ctx context.Context, repos repository.Repos, r *domain.Rental) error {
	payments, err := repos.Payments.ListRequests(ctx, r.ID)
	if err != nil {
		return err
	}
	for i := range payments {
		p := &payments[i]
		if p.Status != domain.PaymentStatusPending {
			continue
		}
		p.Status = domain.PaymentStatusRejected
		p.RejectionFeedback = "rental cancelled"
		if err := repos.Payments.UpdateRequest(ctx, p); err != nil {
			return err
		}
		if err := repos.Reasons.Attach(ctx, &domain.ReasonAttachment{
			RentalID: r.ID,
			Category: domain.ReasonCategoryPaymentRejection,
			Code:     domain.ReasonRentalCancelled,
			Feedback: p.RejectionFeedback,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *rentalService) InitiateReturn(ctx context.Context, actor domain.Actor, rentalID int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.InitiateReturn", "userID", actor.UserID, "rentalID", rentalID)

	var rental *domain.Rental
	err := s.run(ctx, "initiate_return", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
		if err != nil {
			return err
		}
		if err := domain.RequireParticipant(actor, r); err != nil {
			return err
		}
		if _, err := domain.Transition(r.Status, domain.CmdInitiateReturn); err != nil {
			return err
		}
		if r.IsOverdue(s.today()) {
			paid, err := optional(repos.Payments.GetOverduePayment(ctx, r.ID))
			if err != nil {
				return err
			}
			if paid == nil {
				return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdInitiateReturn, Reason: "overdue fee must be paid first"}
			}
		}

		if err := s.transition(ctx, repos, out, r, actor, domain.CmdInitiateReturn, domain.EventReturnInitiated, nil); err != nil {
			return err
		}
		out.notify(counterparty(actor, r), r, domain.EventReturnInitiated, "Return Started",
			fmt.Sprintf("The return of rental #%d was started. Please agree on a return time.", r.ID))
		rental = r
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.InitiateReturn", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.InitiateReturn", "rentalID", rentalID)
	return rental, nil
}

// ExpireStaleRequests auto-rejects pending requests whose start date passed.
// Each rental is closed in its own transaction so one failure does not block the rest.
func (s *rentalService) ExpireStaleRequests(ctx context.Context) (int, error) {
	logger.EnterMethod("rentalService.ExpireStaleRequests")

	today := s.today().Format(domain.DateLayout)
	stale, err := s.tx.Repos().Rentals.ListExpiredPending(ctx, today)
	if err != nil {
		logger.ExitMethodWithError("rentalService.ExpireStaleRequests", err)
		return 0, err
	}

	expired := 0
	var errs []error
	for _, candidate := range stale {
		rentalID := candidate.ID
		closed := false
		err := s.run(ctx, "expire_rental", func(ctx context.Context, repos repository.Repos, out *outcome) error {
			r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
			if err != nil {
				return err
			}
			if r.Status != domain.RentalStatusPending {
				return nil
			}
			closed = true
			return s.autoReject(ctx, repos, out, r, domain.ReasonRequestExpired,
				fmt.Sprintf("The request expired because its start date %s passed without approval", r.StartDate))
		})
		if err != nil {
			logger.Error("Failed to expire rental request", "rentalID", rentalID, "error", err)
			errs = append(errs, fmt.Errorf("rental %d: %w", rentalID, err))
			continue
		}
		if closed {
			expired++
		}
	}

	logger.ExitMethod("rentalService.ExpireStaleRequests", "expired", expired, "failed", len(errs))
	return expired, errors.Join(errs...)
}

func (s *rentalService) ListOverdueRentals(ctx context.Context) ([]domain.OverdueRental, error) {
	repos := s.tx.Repos()
	rentals, err := repos.Rentals.ListOverdue(ctx, s.today().Format(domain.DateLayout))
	if err != nil {
		return nil, err
	}

	now := s.now()
	overdue := make([]domain.OverdueRental, 0, len(rentals))
	for i := range rentals {
		r := &rentals[i]
		verified, err := optional(repos.Payments.GetOverduePayment(ctx, r.ID))
		if err != nil {
			return nil, err
		}
		var rate int64
		if verified == nil {
			if rate, err = overdueRate(ctx, repos, r); err != nil {
				return nil, err
			}
		}
		overdue = append(overdue, domain.OverdueRental{
			Rental:      *r,
			OverdueDays: utils.OverdueDays(r.EndDate, now),
			OverdueFee:  utils.CurrentOverdueFee(r, rate, verified, now),
		})
	}
	return overdue, nil
}
