package notify

import (
	"context"
	"fmt"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Push delivers notifications to the user's device through Firebase Cloud Messaging.
type Push struct {
	client messenger
	users  repository.UserRepository
}

// NewPush initializes a Firebase app from a service account file.
func NewPush(ctx context.Context, credentialsFile string, users repository.UserRepository) (*Push, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase messaging: %w", err)
	}
	return newPush(client, users), nil
}

func newPush(client messenger, users repository.UserRepository) *Push {
	return &Push{client: client, users: users}
}

func (c *Push) Notify(ctx context.Context, msg Message) error {
	user, err := c.users.GetByID(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if user.PushToken == "" {
		return nil
	}

	message := &messaging.Message{
		Token: user.PushToken,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Attrs(),
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: msg.Title, Body: msg.Body},
					Sound: "default",
				},
			},
		},
	}

	logger.ExternalServiceCall("fcm", "Send", "userID", msg.UserID, "event", msg.Event)
	_, err = c.client.Send(ctx, message)
	logger.ExternalServiceResult("fcm", "Send", err, "userID", msg.UserID)
	return err
}
