package service

import (
	"context"
	"fmt"
	"strings"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/storage"
)

type disputeService struct {
	*core
}

func NewDisputeService(deps Dependencies) DisputeService {
	return &disputeService{core: newCore(deps)}
}

// canRaiseDispute allows the first dispute from pending_final_confirmation and a
// new one only after the previous dispute was rejected.
func canRaiseDispute(r *domain.Rental, disputes []domain.RentalDispute) (bool, string) {
	if len(disputes) == 0 {
		if r.Status != domain.RentalStatusPendingFinalConfirmation {
			return false, "rental is not awaiting final confirmation"
		}
		return true, ""
	}
	latest := disputes[len(disputes)-1]
	if latest.IsOpen() {
		return false, "a dispute is already open"
	}
	if latest.ResolutionType != domain.DisputeResolutionRejected {
		return false, "the deposit was already deducted"
	}
	return true, ""
}

func (s *disputeService) RaiseDispute(ctx context.Context, actor domain.Actor, rentalID int32, in RaiseDisputeInput) (*domain.RentalDispute, error) {
	logger.EnterMethod("disputeService.RaiseDispute", "lenderID", actor.UserID, "rentalID", rentalID)

	if strings.TrimSpace(in.Description) == "" {
		err := domain.NewValidationError("description", "is required")
		logger.ExitMethodWithError("disputeService.RaiseDispute", err)
		return nil, err
	}

	var dispute *domain.RentalDispute
	err := s.withBlob(ctx, "raise_dispute", storage.DirDisputes, in.Proof, func(path string) txFunc {
		return func(ctx context.Context, repos repository.Repos, out *outcome) error {
			r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
			if err != nil {
				return err
			}
			if err := domain.RequireLender(actor, r); err != nil {
				return err
			}
			if _, err := domain.Transition(r.Status, domain.CmdRaiseDispute); err != nil {
				return err
			}
			existing, err := repos.Disputes.ListByRental(ctx, r.ID)
			if err != nil {
				return err
			}
			if ok, reason := canRaiseDispute(r, existing); !ok {
				return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdRaiseDispute, Reason: reason}
			}

			d := &domain.RentalDispute{
				RentalID:       r.ID,
				RaisedBy:       actor.UserID,
				Description:    strings.TrimSpace(in.Description),
				ProofImagePath: path,
				Status:         domain.DisputeStatusPending,
			}
			if err := repos.Disputes.Create(ctx, d); err != nil {
				return err
			}
			if err := s.transition(ctx, repos, out, r, actor, domain.CmdRaiseDispute, domain.EventDisputeRaised, map[string]any{
				"dispute_id": d.ID,
			}); err != nil {
				return err
			}
			out.notify(r.RenterID, r, domain.EventDisputeRaised, "Dispute Raised",
				fmt.Sprintf("The lender raised a dispute about the return of rental #%d", r.ID))
			dispute = d
			return nil
		}
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.RaiseDispute", err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod("disputeService.RaiseDispute", "disputeID", dispute.ID)
	return dispute, nil
}

// lockDispute locks the owning rental before the dispute row.
func lockDispute(ctx context.Context, repos repository.Repos, disputeID int32) (*domain.Rental, *domain.RentalDispute, error) {
	snapshot, err := repos.Disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}
	r, err := repos.Rentals.GetForUpdate(ctx, snapshot.RentalID)
	if err != nil {
		return nil, nil, err
	}
	d, err := repos.Disputes.GetForUpdate(ctx, disputeID)
	if err != nil {
		return nil, nil, err
	}
	return r, d, nil
}

func (s *disputeService) ReviewDispute(ctx context.Context, actor domain.Actor, disputeID int32) (*domain.RentalDispute, error) {
	logger.EnterMethod("disputeService.ReviewDispute", "adminID", actor.UserID, "disputeID", disputeID)

	if err := domain.RequireAdmin(actor); err != nil {
		logger.ExitMethodWithError("disputeService.ReviewDispute", err)
		return nil, err
	}

	var dispute *domain.RentalDispute
	err := s.run(ctx, "review_dispute", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, d, err := lockDispute(ctx, repos, disputeID)
		if err != nil {
			return err
		}
		if d.Status != domain.DisputeStatusPending {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdReviewDispute,
				Reason: fmt.Sprintf("dispute is %s", strings.ToLower(string(d.Status)))}
		}
		d.Status = domain.DisputeStatusReviewed
		d.ReviewedBy = actor.UserIDPtr()
		if err := repos.Disputes.Update(ctx, d); err != nil {
			return err
		}
		if err := s.record(ctx, repos, out, r, actor, domain.EventDisputeReviewed, map[string]any{"dispute_id": d.ID}); err != nil {
			return err
		}
		out.notify(r.LenderID, r, domain.EventDisputeReviewed, "Dispute Under Review",
			fmt.Sprintf("An administrator is reviewing the dispute for rental #%d", r.ID))
		dispute = d
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.ReviewDispute", err, "disputeID", disputeID)
		return nil, err
	}

	logger.ExitMethod("disputeService.ReviewDispute", "disputeID", disputeID)
	return dispute, nil
}

func validateResolution(in ResolveDisputeInput) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.Verdict) == "" {
		verr.Add("verdict", "is required")
	}
	switch in.Resolution {
	case domain.DisputeResolutionDepositDeducted:
		if in.DeductionAmount <= 0 {
			verr.Add("deduction_amount", "must be positive")
		}
		if strings.TrimSpace(in.DeductionReason) == "" {
			verr.Add("deduction_reason", "is required")
		}
	case domain.DisputeResolutionRejected:
		if in.DeductionAmount != 0 {
			verr.Add("deduction_amount", "must be empty when the dispute is rejected")
		}
	default:
		verr.Add("resolution", "must be DEPOSIT_DEDUCTED or REJECTED")
	}
	return verr.OrNil()
}

func (s *disputeService) ResolveDispute(ctx context.Context, actor domain.Actor, disputeID int32, in ResolveDisputeInput) (*domain.RentalDispute, error) {
	logger.EnterMethod("disputeService.ResolveDispute", "adminID", actor.UserID, "disputeID", disputeID, "resolution", in.Resolution)

	if err := domain.RequireAdmin(actor); err != nil {
		logger.ExitMethodWithError("disputeService.ResolveDispute", err)
		return nil, err
	}
	if err := validateResolution(in); err != nil {
		logger.ExitMethodWithError("disputeService.ResolveDispute", err)
		return nil, err
	}

	var dispute *domain.RentalDispute
	err := s.run(ctx, "resolve_dispute", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		r, d, err := lockDispute(ctx, repos, disputeID)
		if err != nil {
			return err
		}
		if !d.IsOpen() {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdResolveDispute, Reason: "dispute is already resolved"}
		}
		if _, err := domain.Transition(r.Status, domain.CmdResolveDispute); err != nil {
			return err
		}

		if in.Resolution == domain.DisputeResolutionDepositDeducted {
			deducted, err := repos.Disputes.SumDeductions(ctx, r.ID)
			if err != nil {
				return err
			}
			if deducted+in.DeductionAmount > r.DepositFee {
				return &domain.ConsistencyViolation{Invariant: fmt.Sprintf("deductions of %d exceed the deposit of %d", deducted+in.DeductionAmount, r.DepositFee)}
			}
			if err := repos.Disputes.CreateDeduction(ctx, &domain.DepositDeduction{
				RentalID:  r.ID,
				DisputeID: d.ID,
				Amount:    in.DeductionAmount,
				Reason:    strings.TrimSpace(in.DeductionReason),
				CreatedBy: actor.UserID,
			}); err != nil {
				return err
			}
			if err := repos.Disputes.CreateEarningsAdjustment(ctx, &domain.LenderEarningsAdjustment{
				RentalID:  r.ID,
				DisputeID: d.ID,
				LenderID:  r.LenderID,
				Amount:    in.DeductionAmount,
			}); err != nil {
				return err
			}
			d.DeductionAmount = in.DeductionAmount
			d.DeductionReason = strings.TrimSpace(in.DeductionReason)
		}

		now := s.now().UTC()
		d.Status = domain.DisputeStatusResolved
		d.ResolutionType = in.Resolution
		d.Verdict = strings.TrimSpace(in.Verdict)
		d.VerdictNotes = strings.TrimSpace(in.VerdictNotes)
		d.ResolvedBy = actor.UserIDPtr()
		d.ResolvedAt = &now
		if err := repos.Disputes.Update(ctx, d); err != nil {
			return err
		}
		if err := s.transition(ctx, repos, out, r, actor, domain.CmdResolveDispute, domain.EventDisputeResolved, map[string]any{
			"dispute_id": d.ID, "resolution": string(in.Resolution), "deduction_amount": d.DeductionAmount,
		}); err != nil {
			return err
		}

		body := fmt.Sprintf("The dispute for rental #%d was rejected", r.ID)
		if in.Resolution == domain.DisputeResolutionDepositDeducted {
			body = fmt.Sprintf("The dispute for rental #%d was resolved with a deposit deduction of %d", r.ID, d.DeductionAmount)
		}
		out.notify(r.RenterID, r, domain.EventDisputeResolved, "Dispute Resolved", body)
		out.notify(r.LenderID, r, domain.EventDisputeResolved, "Dispute Resolved", body)
		dispute = d
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("disputeService.ResolveDispute", err, "disputeID", disputeID)
		return nil, err
	}

	logger.ExitMethod("disputeService.ResolveDispute", "disputeID", disputeID)
	return dispute, nil
}
