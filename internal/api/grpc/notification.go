package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
)

func (h *RentalHandler) GetNotifications(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	page, pageSize := a.int32("page"), a.int32("page_size")
	if err := a.err(); err != nil {
		return nil, toStatus("GetNotifications", err)
	}
	notes, total, err := h.notifications.GetNotifications(ctx, actor.UserID, page, pageSize)
	if err != nil {
		return nil, toStatus("GetNotifications", err)
	}
	return MapNotificationsToStruct(notes, total)
}

func (h *RentalHandler) MarkNotificationRead(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, a, err := request(ctx, req)
	if err != nil {
		return nil, err
	}
	notificationID := a.id("notification_id")
	if err := a.err(); err != nil {
		return nil, toStatus("MarkNotificationRead", err)
	}
	if err := h.notifications.MarkAsRead(ctx, actor.UserID, notificationID); err != nil {
		return nil, toStatus("MarkNotificationRead", err)
	}
	return structpb.NewStruct(map[string]any{"success": true})
}
