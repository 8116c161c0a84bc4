package notify

import (
	"context"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

// InApp stores notifications in the notifications table read by the app inbox.
type InApp struct {
	repo repository.NotificationRepository
}

func NewInApp(repo repository.NotificationRepository) *InApp {
	return &InApp{repo: repo}
}

func (c *InApp) Notify(ctx context.Context, msg Message) error {
	return c.repo.Create(ctx, &domain.Notification{
		UserID:     msg.UserID,
		Title:      msg.Title,
		Message:    msg.Body,
		Attributes: msg.Attrs(),
	})
}
