package notify

import (
	"context"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

// Options selects the optional channels. In-app delivery is always on.
type Options struct {
	SendGridAPIKey          string
	FromEmail               string
	FromName                string
	FirebaseCredentialsFile string
	RabbitMQURL             string
	Exchange                string
}

// Setup builds the fanout used after commit. Optional channels that fail to
// start are logged and left out. The returned func releases connections.
func Setup(ctx context.Context, opts Options, users repository.UserRepository, notes repository.NotificationRepository) (*Fanout, func()) {
	fanout := NewFanout().With("in_app", NewInApp(notes))
	closers := []func(){}

	if opts.SendGridAPIKey != "" {
		fanout.With("email", NewEmail(opts.SendGridAPIKey, opts.FromEmail, opts.FromName, users))
	}

	if opts.FirebaseCredentialsFile != "" {
		push, err := NewPush(ctx, opts.FirebaseCredentialsFile, users)
		if err != nil {
			logger.Warn("Push notifications disabled", "error", err)
		} else {
			fanout.With("push", push)
		}
	}

	if opts.RabbitMQURL != "" {
		pub, err := NewPublisher(opts.RabbitMQURL, opts.Exchange)
		if err != nil {
			logger.Warn("Domain events disabled", "error", err)
		} else {
			fanout.With("events", NewEvents(pub))
			closers = append(closers, func() {
				if err := pub.Close(); err != nil {
					logger.Warn("Failed to close rabbitmq publisher", "error", err)
				}
			})
		}
	}

	logger.Info("Notification channels ready", "channels", fanout.Names())
	return fanout, func() {
		for _, c := range closers {
			c()
		}
	}
}
