package notify

import (
	"context"
	"fmt"
	"html"

	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type emailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Email sends notifications through SendGrid to the user's address.
type Email struct {
	client    emailSender
	users     repository.UserRepository
	fromEmail string
	fromName  string
}

func NewEmail(apiKey, fromEmail, fromName string, users repository.UserRepository) *Email {
	return newEmail(sendgrid.NewSendClient(apiKey), users, fromEmail, fromName)
}

func newEmail(client emailSender, users repository.UserRepository, fromEmail, fromName string) *Email {
	return &Email{client: client, users: users, fromEmail: fromEmail, fromName: fromName}
}

func (c *Email) Notify(ctx context.Context, msg Message) error {
	user, err := c.users.GetByID(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	if user.Email == "" {
		return nil
	}

	message := c.buildEmail(user.Name, user.Email, msg)

	logger.ExternalServiceCall("sendgrid", "Send", "to", user.Email, "event", msg.Event)
	response, err := c.client.SendWithContext(ctx, message)
	logger.ExternalServiceResult("sendgrid", "Send", err, "event", msg.Event)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (c *Email) buildEmail(toName, toEmail string, msg Message) *mail.SGMailV3 {
	from := mail.NewEmail(c.fromName, c.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	htmlContent := fmt.Sprintf(`<html><body><h2>%s</h2><p>%s</p></body></html>`,
		html.EscapeString(msg.Title), html.EscapeString(msg.Body))
	return mail.NewSingleEmail(from, msg.Title, to, msg.Body, htmlContent)
}
