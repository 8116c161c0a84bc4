package grpc

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/service"
)

func (h *RentalHandler) RaiseDispute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	in := service.RaiseDisputeInput{
		Description: a.str("description"),
		Proof:       a.upload("proof"),
	}
	if err := a.err(); err != nil {
		return nil, toStatus("RaiseDispute", err)
	}
	d, err := h.disputes.RaiseDispute(ctx, actor, rentalID, in)
	return respond("RaiseDispute", "dispute", d, err)
}

func (h *RentalHandler) ReviewDispute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	disputeID := a.id("dispute_id")
	if err := a.err(); err != nil {
		return nil, toStatus("ReviewDispute", err)
	}
	d, err := h.disputes.ReviewDispute(ctx, actor, disputeID)
	return respond("ReviewDispute", "dispute", d, err)
}

func (h *RentalHandler) ResolveDispute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	disputeID := a.id("dispute_id")
	in := service.ResolveDisputeInput{
		Verdict:         a.str("verdict"),
		VerdictNotes:    a.str("verdict_notes"),
		Resolution:      domain.DisputeResolution(strings.ToUpper(a.str("resolution"))),
		DeductionAmount: a.int64("deduction_amount"),
		DeductionReason: a.str("deduction_reason"),
	}
	if err := a.err(); err != nil {
		return nil, toStatus("ResolveDispute", err)
	}
	d, err := h.disputes.ResolveDispute(ctx, actor, disputeID, in)
	return respond("ResolveDispute", "dispute", d, err)
}
