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

type handoverService struct {
	*core
}

func NewHandoverService(deps Dependencies) HandoverService {
	return &handoverService{core: newCore(deps)}
}

// proofStep describes one of the four proof submissions.
type proofStep struct {
	operation string
	directory string
	command   domain.Command
	event     domain.TimelineEventType
	stage     domain.ProofStage
	kind      domain.ProofType
	role      domain.Role
	// needsPickup requires a confirmed pickup slot before the step is legal.
	needsPickup bool
	// locksListing steps change listing flags and take the listing lock first.
	locksListing bool
}

var (
	handoverStep = proofStep{
		operation: "submit_handover_proof", directory: storage.DirHandover,
		command: domain.CmdSubmitHandoverProof, event: domain.EventHandoverProofSubmitted,
		stage: domain.ProofStageHandover, kind: domain.ProofTypeHandover, role: domain.RoleLender,
		needsPickup: true,
	}
	receiptStep = proofStep{
		operation: "confirm_receipt", directory: storage.DirHandover,
		command: domain.CmdConfirmReceipt, event: domain.EventHandoverReceived,
		stage: domain.ProofStageHandover, kind: domain.ProofTypeReceive, role: domain.RoleRenter,
		needsPickup: true, locksListing: true,
	}
	returnStep = proofStep{
		operation: "submit_return_proof", directory: storage.DirReturns,
		command: domain.CmdSubmitReturnProof, event: domain.EventReturnProofSubmitted,
		stage: domain.ProofStageReturn, kind: domain.ProofTypeReturn, role: domain.RoleRenter,
	}
	returnReceiptStep = proofStep{
		operation: "confirm_return", directory: storage.DirReturns,
		command: domain.CmdConfirmReturn, event: domain.EventReturnConfirmed,
		stage: domain.ProofStageReturn, kind: domain.ProofTypeReceive, role: domain.RoleLender,
		locksListing: true,
	}
)

func (s *handoverService) SubmitHandoverProof(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error) {
	return s.submit(ctx, actor, rentalID, handoverStep, in)
}

func (s *handoverService) ConfirmReceipt(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error) {
	return s.submit(ctx, actor, rentalID, receiptStep, in)
}

func (s *handoverService) SubmitReturnProof(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error) {
	return s.submit(ctx, actor, rentalID, returnStep, in)
}

func (s *handoverService) ConfirmReturn(ctx context.Context, actor domain.Actor, rentalID int32, in ProofInput) (*domain.Proof, error) {
	return s.submit(ctx, actor, rentalID, returnReceiptStep, in)
}

func (s *handoverService) submit(ctx context.Context, actor domain.Actor, rentalID int32, step proofStep, in ProofInput) (*domain.Proof, error) {
	method := "handoverService." + step.operation
	logger.EnterMethod(method, "userID", actor.UserID, "rentalID", rentalID)

	if in.Image.empty() {
		err := domain.NewValidationError("image", "is required")
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	var proof *domain.Proof
	err := s.withBlob(ctx, step.operation, step.directory, in.Image, func(path string) txFunc {
		return func(ctx context.Context, repos repository.Repos, out *outcome) error {
			var (
				r       *domain.Rental
				listing *domain.Listing
				err     error
			)
			if step.locksListing {
				r, listing, err = lockRentalWithListing(ctx, repos, rentalID)
			} else {
				r, err = repos.Rentals.GetForUpdate(ctx, rentalID)
			}
			if err != nil {
				return err
			}

			if step.role == domain.RoleLender {
				err = domain.RequireLender(actor, r)
			} else {
				err = domain.RequireRenter(actor, r)
			}
			if err != nil {
				return err
			}
			if _, err := domain.Transition(r.Status, step.command); err != nil {
				return err
			}
			if step.needsPickup {
				confirmed, err := hasConfirmedSchedule(ctx, repos, r.ID, domain.ScheduleKindPickup)
				if err != nil {
					return err
				}
				if !confirmed {
					return &domain.InvalidTransitionError{Current: r.Status, Command: step.command, Reason: "pickup schedule is not confirmed"}
				}
			}

			p := &domain.Proof{
				RentalID:    r.ID,
				Stage:       step.stage,
				Type:        step.kind,
				SubmittedBy: actor.UserID,
				ImagePath:   path,
				Notes:       strings.TrimSpace(in.Notes),
			}
			if err := repos.Proofs.Create(ctx, p); err != nil {
				return err
			}

			now := s.now().UTC()
			switch step.command {
			case domain.CmdConfirmReceipt:
				r.HandoverAt = &now
				if err := repos.Listings.SetAvailability(ctx, listing.ID, false); err != nil {
					return err
				}
			case domain.CmdConfirmReturn:
				r.ReturnAt = &now
				if err := s.releaseListing(ctx, repos, listing, r.ID); err != nil {
					return err
				}
			}

			if err := s.transition(ctx, repos, out, r, actor, step.command, step.event, map[string]any{
				"proof_id": p.ID, "proof_type": string(p.Type),
			}); err != nil {
				return err
			}
			title, body := proofMessage(step, r)
			out.notify(counterparty(actor, r), r, step.event, title, body)
			proof = p
			return nil
		}
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod(method, "rentalID", rentalID, "proofID", proof.ID)
	return proof, nil
}

// releaseListing makes the listing rentable again once no other rental holds a unit.
func (s *handoverService) releaseListing(ctx context.Context, repos repository.Repos, listing *domain.Listing, rentalID int32) error {
	holding, err := repos.Rentals.CountHoldingUnit(ctx, listing.ID, rentalID)
	if err != nil {
		return err
	}
	if holding > 0 {
		logger.Info("Listing still held by another rental", "listingID", listing.ID, "holding", holding)
		return nil
	}
	if err := repos.Listings.SetAvailability(ctx, listing.ID, true); err != nil {
		return err
	}
	return repos.Listings.SetExclusivelyRented(ctx, listing.ID, false)
}

func hasConfirmedSchedule(ctx context.Context, repos repository.Repos, rentalID int32, kind domain.ScheduleKind) (bool, error) {
	schedules, err := repos.Schedules.ListByRental(ctx, rentalID)
	if err != nil {
		return false, err
	}
	for _, sc := range schedules {
		if sc.Kind == kind && sc.IsConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func proofMessage(step proofStep, r *domain.Rental) (string, string) {
	switch step.command {
	case domain.CmdSubmitHandoverProof:
		return "Item Handed Over", fmt.Sprintf("The lender handed over the item for rental #%d. Please confirm receipt.", r.ID)
	case domain.CmdConfirmReceipt:
		return "Receipt Confirmed", fmt.Sprintf("The renter confirmed receiving the item for rental #%d.", r.ID)
	case domain.CmdSubmitReturnProof:
		return "Item Returned", fmt.Sprintf("The renter returned the item for rental #%d. Please confirm the return.", r.ID)
	}
	return "Return Confirmed", fmt.Sprintf("The lender confirmed the return for rental #%d.", r.ID)
}
