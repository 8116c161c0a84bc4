package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"rental-escrow-backend/internal/service"
)

func paymentInput(a *args) service.PaymentInput {
	return service.PaymentInput{
		Amount:          a.int64("amount"),
		ReferenceNumber: a.str("reference_number"),
		Proof:           a.upload("proof"),
	}
}

func payoutInput(a *args) service.PayoutInput {
	return service.PayoutInput{
		Amount:          a.int64("amount"),
		ReferenceNumber: a.str("reference_number"),
		Proof:           a.upload("proof"),
	}
}

func (h *RentalHandler) SubmitPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	in := paymentInput(a)
	if err := a.err(); err != nil {
		return nil, toStatus("SubmitPayment", err)
	}
	p, err := h.payments.SubmitPayment(ctx, actor, rentalID, in)
	return respond("SubmitPayment", "payment", p, err)
}

func (h *RentalHandler) SubmitOverduePayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	in := paymentInput(a)
	if err := a.err(); err != nil {
		return nil, toStatus("SubmitOverduePayment", err)
	}
	p, err := h.payments.SubmitOverduePayment(ctx, actor, rentalID, in)
	return respond("SubmitOverduePayment", "payment", p, err)
}

func (h *RentalHandler) VerifyPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	paymentID := a.id("payment_id")
	if err := a.err(); err != nil {
		return nil, toStatus("VerifyPayment", err)
	}
	p, err := h.payments.VerifyPayment(ctx, actor, paymentID)
	return respond("VerifyPayment", "payment", p, err)
}

func (h *RentalHandler) RejectPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	paymentID := a.id("payment_id")
	code, feedback := a.str("reason_code"), a.str("feedback")
	if err := a.err(); err != nil {
		return nil, toStatus("RejectPayment", err)
	}
	p, err := h.payments.RejectPayment(ctx, actor, paymentID, code, feedback)
	return respond("RejectPayment", "payment", p, err)
}

func (h *RentalHandler) ProcessLenderPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	in := payoutInput(a)
	if err := a.err(); err != nil {
		return nil, toStatus("ProcessLenderPayment", err)
	}
	c, err := h.payments.ProcessLenderPayment(ctx, actor, rentalID, in)
	return respond("ProcessLenderPayment", "completion", c, err)
}

func (h *RentalHandler) ProcessDepositRefund(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	in := payoutInput(a)
	if err := a.err(); err != nil {
		return nil, toStatus("ProcessDepositRefund", err)
	}
	c, err := h.payments.ProcessDepositRefund(ctx, actor, rentalID, in)
	return respond("ProcessDepositRefund", "completion", c, err)
}
