package service

import (
	"context"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/utils"
)

func (s *rentalService) GetRental(ctx context.Context, actor domain.Actor, rentalID int32) (*domain.RentalView, error) {
	logger.EnterMethod("rentalService.GetRental", "userID", actor.UserID, "rentalID", rentalID)

	repos := s.tx.Repos()
	r, err := repos.Rentals.GetByID(ctx, rentalID)
	if err != nil {
		logger.ExitMethodWithError("rentalService.GetRental", err, "rentalID", rentalID)
		return nil, err
	}
	if err := domain.RequireViewer(actor, r); err != nil {
		logger.ExitMethodWithError("rentalService.GetRental", err, "rentalID", rentalID)
		return nil, err
	}

	view, err := s.buildView(ctx, repos, actor, r)
	if err != nil {
		logger.ExitMethodWithError("rentalService.GetRental", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.GetRental", "rentalID", rentalID, "status", r.Status)
	return view, nil
}

func (s *rentalService) buildView(ctx context.Context, repos repository.Repos, actor domain.Actor, r *domain.Rental) (*domain.RentalView, error) {
	payments, err := repos.Payments.ListRequests(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	completions, err := repos.Payments.ListCompletions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	overdue, err := optional(repos.Payments.GetOverduePayment(ctx, r.ID))
	if err != nil {
		return nil, err
	}
	var rate int64
	if overdue == nil && r.Status == domain.RentalStatusActive {
		if rate, err = overdueRate(ctx, repos, r); err != nil {
			return nil, err
		}
	}
	schedules, err := repos.Schedules.ListByRental(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	noShows, err := repos.Schedules.ListNoShows(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	proofs, err := repos.Proofs.ListByRental(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	disputes, err := repos.Disputes.ListByRental(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	reasons, err := repos.Reasons.ListByRental(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	deducted, err := repos.Disputes.SumDeductions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	credit, err := repos.Disputes.SumEarningsAdjustments(ctx, r.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &domain.RentalView{
		Rental:           r,
		ViewerRole:       actor.RoleIn(r),
		IsOverdue:        r.IsOverdue(s.today()),
		OverdueFee:       utils.CurrentOverdueFee(r, rate, overdue, now),
		DepositDeduction: deducted,
		RemainingDeposit: utils.RemainingDeposit(r.DepositFee, deducted),
		Payments:         latestPerType(payments),
		Completions:      completions,
		Schedules:        schedules,
		Proofs:           proofs,
		Disputes:         disputes,
		NoShows:          noShows,
		Reasons:          reasons,
	}
	switch {
	case overdue != nil:
		view.OverdueDays = overdue.OverdueDays
	case r.Status == domain.RentalStatusActive:
		view.OverdueDays = utils.OverdueDays(r.EndDate, now)
	}
	if r.Status == domain.RentalStatusActive {
		view.RemainingDays = utils.RemainingDays(r.EndDate, now)
	}

	var overdueFee int64
	if overdue != nil {
		overdueFee = overdue.Amount
	}
	view.LenderBaseEarnings = utils.LenderBaseEarnings(r)
	view.TotalLenderEarnings = utils.LenderTotalEarnings(r, overdueFee, credit)

	facts := domain.ActionFacts{
		Overdue:     view.IsOverdue,
		OverduePaid: overdue != nil,
		PayoutLegs:  len(completions),
	}
	for _, p := range payments {
		switch {
		case p.Type == domain.PaymentTypeInitial && p.Status == domain.PaymentStatusPending:
			facts.PendingInitialPayment = true
		case p.Type == domain.PaymentTypeInitial && p.Status == domain.PaymentStatusVerified:
			facts.InitialPaymentVerified = true
		case p.Type == domain.PaymentTypeOverdue && p.Status == domain.PaymentStatusPending:
			facts.PendingOverduePayment = true
		}
	}
	for _, sc := range schedules {
		if sc.Kind == domain.ScheduleKindPickup && sc.IsConfirmed {
			facts.ConfirmedPickup = true
		}
	}
	for _, d := range disputes {
		if d.IsOpen() {
			facts.HasPendingDispute = true
		}
	}
	facts.CanRaiseDispute, _ = canRaiseDispute(r, disputes)

	view.DepositStatus = depositStatus(r, facts.HasPendingDispute, deducted, completions)
	view.AvailableActions = domain.AvailableActions(r, view.ViewerRole, facts)
	return view, nil
}

func depositStatus(r *domain.Rental, disputed bool, deducted int64, completions []domain.CompletionPayment) domain.DepositStatus {
	refunded := false
	for _, c := range completions {
		if c.Type == domain.CompletionTypeDepositRefund {
			refunded = true
		}
	}
	switch {
	case disputed:
		return domain.DepositStatusUnderDispute
	case deducted > 0 && deducted >= r.DepositFee:
		return domain.DepositStatusFullyDeducted
	case refunded:
		return domain.DepositStatusRefunded
	case deducted > 0:
		return domain.DepositStatusPartiallyDeducted
	case r.Status == domain.RentalStatusPendingFinalConfirmation, r.Status == domain.RentalStatusCompletedPendingPayments:
		return domain.DepositStatusRefundable
	}
	return domain.DepositStatusHeld
}

// latestPerType keeps the most recent request of each payment type.
func latestPerType(payments []domain.PaymentRequest) []domain.PaymentRequest {
	latest := map[domain.PaymentType]int{}
	var out []domain.PaymentRequest
	for _, p := range payments {
		if i, ok := latest[p.Type]; ok {
			out[i] = p
			continue
		}
		latest[p.Type] = len(out)
		out = append(out, p)
	}
	return out
}

func (s *rentalService) ListRentals(ctx context.Context, actor domain.Actor, role domain.Role, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	logger.EnterMethod("rentalService.ListRentals", "userID", actor.UserID, "role", role, "status", status)

	switch role {
	case domain.RoleAdmin:
		if err := domain.RequireAdmin(actor); err != nil {
			return nil, 0, err
		}
	case domain.RoleRenter, domain.RoleLender, domain.RoleNone:
		if actor.IsSystem() {
			return nil, 0, &domain.AuthorizationError{Reason: "system has no rentals"}
		}
	default:
		return nil, 0, domain.NewValidationError("role", "must be RENTER, LENDER or ADMIN")
	}
	if status != "" {
		if _, ok := domain.ParseRentalStatus(status); !ok {
			return nil, 0, domain.NewValidationError("status", "unknown rental status")
		}
	}

	page, pageSize = s.paging(page, pageSize)
	rentals, count, err := s.tx.Repos().Rentals.List(ctx, actor.UserID, role, status, page, pageSize)
	if err != nil {
		logger.ExitMethodWithError("rentalService.ListRentals", err)
		return nil, 0, err
	}

	logger.ExitMethod("rentalService.ListRentals", "count", count)
	return rentals, count, nil
}

func (s *rentalService) GetTimeline(ctx context.Context, actor domain.Actor, rentalID int32) ([]domain.TimelineEvent, error) {
	logger.EnterMethod("rentalService.GetTimeline", "userID", actor.UserID, "rentalID", rentalID)

	repos := s.tx.Repos()
	r, err := repos.Rentals.GetByID(ctx, rentalID)
	if err != nil {
		logger.ExitMethodWithError("rentalService.GetTimeline", err, "rentalID", rentalID)
		return nil, err
	}
	if err := domain.RequireViewer(actor, r); err != nil {
		logger.ExitMethodWithError("rentalService.GetTimeline", err, "rentalID", rentalID)
		return nil, err
	}

	events, cached, err := s.timeline.Load(ctx, rentalID, func(ctx context.Context) ([]domain.TimelineEvent, error) {
		return repos.Timeline.ListByRental(ctx, rentalID)
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.GetTimeline", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("rentalService.GetTimeline", "rentalID", rentalID, "events", len(events), "cached", cached)
	return events, nil
}
