package service

import (
	"context"
	"fmt"
	"strings"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/storage"
	"rental-escrow-backend/internal/utils"
)

type paymentService struct {
	*core
}

func NewPaymentService(deps Dependencies) PaymentService {
	return &paymentService{core: newCore(deps)}
}

func (s *paymentService) SubmitPayment(ctx context.Context, actor domain.Actor, rentalID int32, in PaymentInput) (*domain.PaymentRequest, error) {
	return s.submit(ctx, actor, rentalID, domain.PaymentTypeInitial, in)
}

func (s *paymentService) SubmitOverduePayment(ctx context.Context, actor domain.Actor, rentalID int32, in PaymentInput) (*domain.PaymentRequest, error) {
	return s.submit(ctx, actor, rentalID, domain.PaymentTypeOverdue, in)
}

func (s *paymentService) submit(ctx context.Context, actor domain.Actor, rentalID int32, paymentType domain.PaymentType, in PaymentInput) (*domain.PaymentRequest, error) {
	method := "paymentService.SubmitPayment"
	if paymentType == domain.PaymentTypeOverdue {
		method = "paymentService.SubmitOverduePayment"
	}
	logger.EnterMethod(method, "renterID", actor.UserID, "rentalID", rentalID, "amount", in.Amount)

	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.ReferenceNumber) == "" {
		verr.Add("reference_number", "is required")
	}
	if in.Proof.empty() {
		verr.Add("proof_image", "is required")
	}
	if in.Amount <= 0 {
		verr.Add("amount", "must be positive")
	}
	if err := verr.OrNil(); err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	var payment *domain.PaymentRequest
	err := s.withBlob(ctx, "submit_payment", storage.DirPayments, in.Proof, func(path string) txFunc {
		return func(ctx context.Context, repos repository.Repos, out *outcome) error {
			r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
			if err != nil {
				return err
			}
			if err := domain.RequireRenter(actor, r); err != nil {
				return err
			}

			cmd := domain.CmdSubmitPayment
			expected := r.TotalPrice
			if paymentType == domain.PaymentTypeInitial {
				if err := domain.RequireStatus(r, cmd, domain.RentalStatusApproved); err != nil {
					return err
				}
			} else {
				cmd = domain.CmdSubmitOverduePayment
				if !r.IsOverdue(s.today()) {
					return &domain.InvalidTransitionError{Current: r.Status, Command: cmd, Reason: "rental is not overdue"}
				}
				paid, err := optional(repos.Payments.GetOverduePayment(ctx, r.ID))
				if err != nil {
					return err
				}
				if paid != nil {
					return &domain.InvalidTransitionError{Current: r.Status, Command: cmd, Reason: "overdue fee was already paid"}
				}
				rate, err := overdueRate(ctx, repos, r)
				if err != nil {
					return err
				}
				expected = utils.CurrentOverdueFee(r, rate, nil, s.now())
			}
			if in.Amount != expected {
				return domain.NewValidationError("amount", fmt.Sprintf("must equal %d", expected))
			}

			pending, err := repos.Payments.HasRequestWithStatus(ctx, r.ID, paymentType, domain.PaymentStatusPending)
			if err != nil {
				return err
			}
			if pending {
				return &domain.InvalidTransitionError{Current: r.Status, Command: cmd, Reason: "a payment request is already pending"}
			}

			p := &domain.PaymentRequest{
				RentalID:        r.ID,
				Type:            paymentType,
				Amount:          in.Amount,
				ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
				ProofImagePath:  path,
				Status:          domain.PaymentStatusPending,
				SubmittedBy:     actor.UserID,
			}
			if err := repos.Payments.CreateRequest(ctx, p); err != nil {
				return err
			}
			if err := s.record(ctx, repos, out, r, actor, domain.EventPaymentSubmitted, map[string]any{
				"payment_id": p.ID, "type": string(paymentType), "amount": p.Amount,
			}); err != nil {
				return err
			}
			out.notify(r.LenderID, r, domain.EventPaymentSubmitted, "Payment Submitted",
				fmt.Sprintf("The renter submitted a payment of %d for rental #%d. It is waiting for verification.", p.Amount, r.ID))
			payment = p
			return nil
		}
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod(method, "paymentID", payment.ID)
	return payment, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, actor domain.Actor, paymentID int32) (*domain.PaymentRequest, error) {
	logger.EnterMethod("paymentService.VerifyPayment", "adminID", actor.UserID, "paymentID", paymentID)

	if err := domain.RequireAdmin(actor); err != nil {
		logger.ExitMethodWithError("paymentService.VerifyPayment", err)
		return nil, err
	}

	var payment *domain.PaymentRequest
	err := s.run(ctx, "verify_payment", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		snapshot, err := repos.Payments.GetRequest(ctx, paymentID)
		if err != nil {
			return err
		}
		r, err := repos.Rentals.GetForUpdate(ctx, snapshot.RentalID)
		if err != nil {
			return err
		}
		p, err := repos.Payments.GetRequestForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		switch p.Status {
		case domain.PaymentStatusVerified:
			payment = p
			return nil
		case domain.PaymentStatusRejected:
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdReviewPayment, Reason: "payment was rejected"}
		}

		now := s.now().UTC()
		var rate int64
		if p.Type == domain.PaymentTypeInitial {
			if _, err := domain.Transition(r.Status, domain.CmdVerifyInitialPayment); err != nil {
				return err
			}
		} else if r.Status != domain.RentalStatusActive {
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdReviewPayment, Reason: "overdue fees are only settled while the rental is active"}
		} else {
			if rate, err = overdueRate(ctx, repos, r); err != nil {
				return err
			}
			// The frozen fee is paid out to the lender, so it must match what
			// the renter actually transferred.
			if fee := utils.OverdueFee(rate, utils.OverdueDays(r.EndDate, now), r.Quantity()); fee != p.Amount {
				return &domain.InvalidTransitionError{
					Current: r.Status,
					Command: domain.CmdReviewPayment,
					Reason:  fmt.Sprintf("overdue fee is now %d but the payment covers %d; reject it so the renter can resubmit", fee, p.Amount),
				}
			}
		}

		p.Status = domain.PaymentStatusVerified
		p.VerifiedBy = actor.UserIDPtr()
		p.VerifiedAt = &now
		if err := repos.Payments.UpdateRequest(ctx, p); err != nil {
			return err
		}

		metadata := map[string]any{"payment_id": p.ID, "type": string(p.Type), "amount": p.Amount}
		if p.Type == domain.PaymentTypeInitial {
			if err := s.transition(ctx, repos, out, r, actor, domain.CmdVerifyInitialPayment, domain.EventPaymentVerified, metadata); err != nil {
				return err
			}
			out.notify(r.RenterID, r, domain.EventPaymentVerified, "Payment Verified",
				fmt.Sprintf("Your payment for rental #%d was verified. Please arrange the pickup.", r.ID))
			out.notify(r.LenderID, r, domain.EventPaymentVerified, "Payment Verified",
				fmt.Sprintf("The payment for rental #%d was verified. Please arrange the handover.", r.ID))
		} else {
			days := utils.OverdueDays(r.EndDate, now)
			op := &domain.OverduePayment{
				RentalID:         r.ID,
				PaymentRequestID: p.ID,
				OverdueDays:      days,
				DailyRate:        rate,
				Quantity:         r.Quantity(),
				Amount:           utils.OverdueFee(rate, days, r.Quantity()),
			}
			if err := repos.Payments.CreateOverduePayment(ctx, op); err != nil {
				return err
			}
			metadata["overdue_days"] = days
			metadata["frozen_fee"] = op.Amount
			if err := s.record(ctx, repos, out, r, actor, domain.EventPaymentVerified, metadata); err != nil {
				return err
			}
			out.notify(r.RenterID, r, domain.EventPaymentVerified, "Overdue Payment Verified",
				fmt.Sprintf("Your overdue payment for rental #%d was verified. You can now return the item.", r.ID))
		}
		payment = p
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.VerifyPayment", err, "paymentID", paymentID)
		return nil, err
	}

	logger.ExitMethod("paymentService.VerifyPayment", "paymentID", paymentID, "status", payment.Status)
	return payment, nil
}

func (s *paymentService) RejectPayment(ctx context.Context, actor domain.Actor, paymentID int32, reasonCode, feedback string) (*domain.PaymentRequest, error) {
	logger.EnterMethod("paymentService.RejectPayment", "adminID", actor.UserID, "paymentID", paymentID)

	if err := domain.RequireAdmin(actor); err != nil {
		logger.ExitMethodWithError("paymentService.RejectPayment", err)
		return nil, err
	}
	if reasonCode == "" {
		reasonCode = domain.ReasonOther
	}
	verr := &domain.ValidationError{}
	if !domain.ValidReasonCode(domain.ReasonCategoryPaymentRejection, reasonCode) {
		verr.Add("reason_code", "is not a valid payment rejection reason")
	}
	if !s.validFeedback(feedback) {
		verr.Add("feedback", s.feedbackMessage())
	}
	if err := verr.OrNil(); err != nil {
		logger.ExitMethodWithError("paymentService.RejectPayment", err)
		return nil, err
	}

	var payment *domain.PaymentRequest
	err := s.run(ctx, "reject_payment", func(ctx context.Context, repos repository.Repos, out *outcome) error {
		snapshot, err := repos.Payments.GetRequest(ctx, paymentID)
		if err != nil {
			return err
		}
		r, err := repos.Rentals.GetForUpdate(ctx, snapshot.RentalID)
		if err != nil {
			return err
		}
		p, err := repos.Payments.GetRequestForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		switch p.Status {
		case domain.PaymentStatusRejected:
			payment = p
			return nil
		case domain.PaymentStatusVerified:
			return &domain.InvalidTransitionError{Current: r.Status, Command: domain.CmdReviewPayment, Reason: "payment was already verified"}
		}

		p.Status = domain.PaymentStatusRejected
		p.RejectionFeedback = strings.TrimSpace(feedback)
		if err := repos.Payments.UpdateRequest(ctx, p); err != nil {
			return err
		}
		if err := repos.Reasons.Attach(ctx, &domain.ReasonAttachment{
			RentalID: r.ID,
			Category: domain.ReasonCategoryPaymentRejection,
			Code:     reasonCode,
			Feedback: p.RejectionFeedback,
			AuthorID: actor.UserIDPtr(),
		}); err != nil {
			return err
		}
		if err := s.record(ctx, repos, out, r, actor, domain.EventPaymentRejected, map[string]any{
			"payment_id": p.ID, "type": string(p.Type), "reason_code": reasonCode,
		}); err != nil {
			return err
		}
		out.notify(r.RenterID, r, domain.EventPaymentRejected, "Payment Rejected",
			fmt.Sprintf("Your payment for rental #%d was rejected: %s. Please submit it again.", r.ID, p.RejectionFeedback))
		payment = p
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("paymentService.RejectPayment", err, "paymentID", paymentID)
		return nil, err
	}

	logger.ExitMethod("paymentService.RejectPayment", "paymentID", paymentID)
	return payment, nil
}

func (s *paymentService) ProcessLenderPayment(ctx context.Context, actor domain.Actor, rentalID int32, in PayoutInput) (*domain.CompletionPayment, error) {
	return s.payout(ctx, actor, rentalID, domain.CompletionTypeLenderPayment, in)
}

func (s *paymentService) ProcessDepositRefund(ctx context.Context, actor domain.Actor, rentalID int32, in PayoutInput) (*domain.CompletionPayment, error) {
	return s.payout(ctx, actor, rentalID, domain.CompletionTypeDepositRefund, in)
}

// payout records one completion leg. The first leg moves the rental to
// completed_pending_payments and the second one completes it.
func (s *paymentService) payout(ctx context.Context, actor domain.Actor, rentalID int32, kind domain.CompletionType, in PayoutInput) (*domain.CompletionPayment, error) {
	method := "paymentService.Payout"
	logger.EnterMethod(method, "adminID", actor.UserID, "rentalID", rentalID, "type", kind, "amount", in.Amount)

	if err := domain.RequireAdmin(actor); err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}
	verr := &domain.ValidationError{}
	if in.Amount < 0 {
		verr.Add("amount", "must not be negative")
	}
	if in.Amount > 0 {
		if strings.TrimSpace(in.ReferenceNumber) == "" {
			verr.Add("reference_number", "is required")
		}
		if in.Proof.empty() {
			verr.Add("proof_image", "is required")
		}
	}
	if err := verr.OrNil(); err != nil {
		logger.ExitMethodWithError(method, err)
		return nil, err
	}

	var completion *domain.CompletionPayment
	err := s.withBlob(ctx, "record_payout", storage.DirPayouts, in.Proof, func(path string) txFunc {
		return func(ctx context.Context, repos repository.Repos, out *outcome) error {
			r, err := repos.Rentals.GetForUpdate(ctx, rentalID)
			if err != nil {
				return err
			}

			legs, err := repos.Payments.ListCompletions(ctx, r.ID)
			if err != nil {
				return err
			}
			for _, leg := range legs {
				if leg.Type == kind {
					return &domain.ConsistencyViolation{Invariant: fmt.Sprintf("%s already recorded for rental %d", strings.ToLower(string(kind)), r.ID)}
				}
			}
			cmd := domain.CmdRecordFirstPayout
			if len(legs) > 0 {
				cmd = domain.CmdRecordFinalPayout
			}
			if _, err := domain.Transition(r.Status, cmd); err != nil {
				return err
			}

			disputes, err := repos.Disputes.ListByRental(ctx, r.ID)
			if err != nil {
				return err
			}
			for _, d := range disputes {
				if d.IsOpen() {
					return &domain.InvalidTransitionError{Current: r.Status, Command: cmd, Reason: "a dispute is still open"}
				}
			}

			expected, err := s.expectedPayout(ctx, repos, r, kind)
			if err != nil {
				return err
			}
			if in.Amount != expected {
				return domain.NewValidationError("amount", fmt.Sprintf("must equal %d", expected))
			}

			c := &domain.CompletionPayment{
				RentalID:        r.ID,
				Type:            kind,
				Amount:          in.Amount,
				ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
				ProofImagePath:  path,
				ProcessedBy:     actor.UserID,
			}
			if err := repos.Payments.CreateCompletion(ctx, c); err != nil {
				return err
			}

			event, recipient, title := domain.EventLenderPaid, r.LenderID, "Earnings Paid"
			if kind == domain.CompletionTypeDepositRefund {
				event, recipient, title = domain.EventDepositRefunded, r.RenterID, "Deposit Refunded"
			}
			if err := s.transition(ctx, repos, out, r, actor, cmd, event, map[string]any{
				"completion_id": c.ID, "amount": c.Amount, "reference_number": c.ReferenceNumber,
			}); err != nil {
				return err
			}
			out.notify(recipient, r, event, title, fmt.Sprintf("%d was transferred for rental #%d", c.Amount, r.ID))
			completion = c
			return nil
		}
	})
	if err != nil {
		logger.ExitMethodWithError(method, err, "rentalID", rentalID)
		return nil, err
	}

	logger.ExitMethod(method, "rentalID", rentalID, "completionID", completion.ID)
	return completion, nil
}

func (s *paymentService) expectedPayout(ctx context.Context, repos repository.Repos, r *domain.Rental, kind domain.CompletionType) (int64, error) {
	if kind == domain.CompletionTypeDepositRefund {
		deducted, err := repos.Disputes.SumDeductions(ctx, r.ID)
		if err != nil {
			return 0, err
		}
		return utils.RemainingDeposit(r.DepositFee, deducted), nil
	}

	var overdueFee int64
	op, err := optional(repos.Payments.GetOverduePayment(ctx, r.ID))
	if err != nil {
		return 0, err
	}
	if op != nil {
		overdueFee = op.Amount
	}
	credit, err := repos.Disputes.SumEarningsAdjustments(ctx, r.ID)
	if err != nil {
		return 0, err
	}
	return utils.LenderTotalEarnings(r, overdueFee, credit), nil
}
