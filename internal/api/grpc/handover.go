package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/service"
)

type proofCall func(ctx context.Context, actor domain.Actor, rentalID int32, in service.ProofInput) (*domain.Proof, error)

func (h *RentalHandler) proof(ctx context.Context, method string, req *structpb.Struct, call proofCall) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	in := service.ProofInput{Image: a.upload("image"), Notes: a.str("notes")}
	if err := a.err(); err != nil {
		return nil, toStatus(method, err)
	}
	p, err := call(ctx, actor, rentalID, in)
	return respond(method, "proof", p, err)
}

func (h *RentalHandler) SubmitHandoverProof(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.proof(ctx, "SubmitHandoverProof", req, h.handovers.SubmitHandoverProof)
}

func (h *RentalHandler) ConfirmReceipt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.proof(ctx, "ConfirmReceipt", req, h.handovers.ConfirmReceipt)
}

func (h *RentalHandler) SubmitReturnProof(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.proof(ctx, "SubmitReturnProof", req, h.handovers.SubmitReturnProof)
}

func (h *RentalHandler) ConfirmReturn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.proof(ctx, "ConfirmReturn", req, h.handovers.ConfirmReturn)
}
