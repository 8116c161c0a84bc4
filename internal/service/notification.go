package service

import (
	"context"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
	policy   Policy
}

func NewNotificationService(noteRepo repository.NotificationRepository, policy Policy) NotificationService {
	return &notificationService{noteRepo: noteRepo, policy: policy}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	page, pageSize = pageBounds(s.policy, page, pageSize)
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID int32) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}
