package grpc

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/service"
)

// Services are the lifecycle services exposed over gRPC.
type Services struct {
	Rentals       service.RentalService
	Payments      service.PaymentService
	Handovers     service.HandoverService
	Schedules     service.ScheduleService
	Disputes      service.DisputeService
	Notifications service.NotificationService
}

type RentalHandler struct {
	rentals       service.RentalService
	payments      service.PaymentService
	handovers     service.HandoverService
	schedules     service.ScheduleService
	disputes      service.DisputeService
	notifications service.NotificationService
}

var _ RentalServiceServer = (*RentalHandler)(nil)

func NewRentalHandler(svcs Services) *RentalHandler {
	return &RentalHandler{
		rentals:       svcs.Rentals,
		payments:      svcs.Payments,
		handovers:     svcs.Handovers,
		schedules:     svcs.Schedules,
		disputes:      svcs.Disputes,
		notifications: svcs.Notifications,
	}
}

// request resolves the actor and parses arguments before a service call.
func request(ctx context.Context, req *structpb.Struct) (domain.Actor, *args, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return domain.Actor{}, nil, err
	}
	return actor, newArgs(req), nil
}

// respond wraps a service result under key, or maps its error.
func respond(method, key string, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(method, err)
	}
	return toStruct(map[string]any{key: v})
}

func (h *RentalHandler) HealthCheck(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "SERVING"})
}

func (h *RentalHandler) CreateRentalRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	in := service.CreateRentalInput{
		ListingID: a.id("listing_id"),
		StartDate: a.str("start_date"),
		EndDate:   a.str("end_date"),
		Quantity:  a.int32("quantity"),
	}
	if err := a.err(); err != nil {
		return nil, toStatus("CreateRentalRequest", err)
	}
	logger.Info("CreateRentalRequest", "userID", actor.UserID, "listingID", in.ListingID)
	r, err := h.rentals.CreateRentalRequest(ctx, actor, in)
	return respond("CreateRentalRequest", "rental", r, err)
}

func (h *RentalHandler) ApproveRentalRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	qty := a.optionalInt32("approved_quantity")
	if err := a.err(); err != nil {
		return nil, toStatus("ApproveRentalRequest", err)
	}
	r, err := h.rentals.ApproveRentalRequest(ctx, actor, rentalID, qty)
	return respond("ApproveRentalRequest", "rental", r, err)
}

func (h *RentalHandler) RejectRentalRequest(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	code, feedback := a.str("reason_code"), a.str("feedback")
	if err := a.err(); err != nil {
		return nil, toStatus("RejectRentalRequest", err)
	}
	r, err := h.rentals.RejectRentalRequest(ctx, actor, rentalID, code, feedback)
	return respond("RejectRentalRequest", "rental", r, err)
}

func (h *RentalHandler) CancelRental(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	code, feedback := a.str("reason_code"), a.str("feedback")
	if err := a.err(); err != nil {
		return nil, toStatus("CancelRental", err)
	}
	r, err := h.rentals.CancelRental(ctx, actor, rentalID, code, feedback)
	return respond("CancelRental", "rental", r, err)
}

func (h *RentalHandler) InitiateReturn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	if err := a.err(); err != nil {
		return nil, toStatus("InitiateReturn", err)
	}
	r, err := h.rentals.InitiateReturn(ctx, actor, rentalID)
	return respond("InitiateReturn", "rental", r, err)
}

func (h *RentalHandler) GetRental(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	if err := a.err(); err != nil {
		return nil, toStatus("GetRental", err)
	}
	view, err := h.rentals.GetRental(ctx, actor, rentalID)
	if err != nil {
		return nil, toStatus("GetRental", err)
	}
	return MapRentalViewToStruct(view)
}

func (h *RentalHandler) ListRentals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	role := domain.Role(strings.ToUpper(a.str("role")))
	status := strings.ToUpper(a.str("status"))
	page, pageSize := a.int32("page"), a.int32("page_size")
	if err := a.err(); err != nil {
		return nil, toStatus("ListRentals", err)
	}
	rentals, total, err := h.rentals.ListRentals(ctx, actor, role, status, page, pageSize)
	if err != nil {
		return nil, toStatus("ListRentals", err)
	}
	return MapRentalListToStruct(rentals, total)
}

func (h *RentalHandler) GetTimeline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	if err := a.err(); err != nil {
		return nil, toStatus("GetTimeline", err)
	}
	events, err := h.rentals.GetTimeline(ctx, actor, rentalID)
	if err != nil {
		return nil, toStatus("GetTimeline", err)
	}
	return MapTimelineToStruct(events)
}
