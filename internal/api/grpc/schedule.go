package grpc

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/service"
)

func (h *RentalHandler) ProposeSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	rentalID := a.id("rental_id")
	in := service.ProposeScheduleInput{
		Kind:        domain.ScheduleKind(strings.ToUpper(a.str("kind"))),
		ScheduledAt: a.optionalTime("scheduled_at"),
		DayOfWeek:   a.optionalInt32("day_of_week"),
		StartTime:   a.str("start_time"),
		EndTime:     a.str("end_time"),
	}
	if err := a.err(); err != nil {
		return nil, toStatus("ProposeSchedule", err)
	}
	sc, err := h.schedules.ProposeSchedule(ctx, actor, rentalID, in)
	return respond("ProposeSchedule", "schedule", sc, err)
}

func (h *RentalHandler) SelectSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	scheduleID := a.id("schedule_id")
	if err := a.err(); err != nil {
		return nil, toStatus("SelectSchedule", err)
	}
	sc, err := h.schedules.SelectSchedule(ctx, actor, scheduleID)
	return respond("SelectSchedule", "schedule", sc, err)
}

func (h *RentalHandler) ConfirmSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	scheduleID := a.id("schedule_id")
	if err := a.err(); err != nil {
		return nil, toStatus("ConfirmSchedule", err)
	}
	sc, err := h.schedules.ConfirmSchedule(ctx, actor, scheduleID)
	return respond("ConfirmSchedule", "schedule", sc, err)
}

func (h *RentalHandler) DeleteSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	scheduleID := a.id("schedule_id")
	if err := a.err(); err != nil {
		return nil, toStatus("DeleteSchedule", err)
	}
	if err := h.schedules.DeleteSchedule(ctx, actor, scheduleID); err != nil {
		return nil, toStatus("DeleteSchedule", err)
	}
	return structpb.NewStruct(map[string]any{"success": true})
}

func (h *RentalHandler) ReportNoShow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	scheduleID := a.id("schedule_id")
	description := a.str("description")
	if err := a.err(); err != nil {
		return nil, toStatus("ReportNoShow", err)
	}
	ns, err := h.schedules.ReportNoShow(ctx, actor, scheduleID, description)
	return respond("ReportNoShow", "no_show", ns, err)
}

func (h *RentalHandler) ResolveNoShow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	noShowID := a.id("no_show_id")
	resolution := domain.NoShowResolution(strings.ToUpper(a.str("resolution")))
	refund := a.int64("refund_amount")
	if err := a.err(); err != nil {
		return nil, toStatus("ResolveNoShow", err)
	}
	ns, err := h.schedules.ResolveNoShow(ctx, actor, noShowID, resolution, refund)
	return respond("ResolveNoShow", "no_show", ns, err)
}
