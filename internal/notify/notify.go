package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"rental-escrow-backend/internal/logger"
)

// Message is one user-facing notification about a rental.
type Message struct {
	UserID     int32             `json:"user_id"`
	RentalID   int32             `json:"rental_id"`
	Event      string            `json:"event"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attrs returns the attributes with the event type and rental id filled in.
func (m Message) Attrs() map[string]string {
	attrs := make(map[string]string, len(m.Attributes)+2)
	for k, v := range m.Attributes {
		attrs[k] = v
	}
	attrs["type"] = m.Event
	if m.RentalID != 0 {
		attrs["rental_id"] = strconv.Itoa(int(m.RentalID))
	}
	return attrs
}

// Dispatcher delivers notifications. Callers dispatch after commit and only
// log failures.
type Dispatcher interface {
	Notify(ctx context.Context, msg Message) error
}

// Fanout sends every message through all channels and joins their errors.
type Fanout struct {
	channels []namedChannel
}

type namedChannel struct {
	name string
	d    Dispatcher
}

func NewFanout() *Fanout {
	return &Fanout{}
}

// With registers a channel. Nil channels are skipped so optional channels can
// be passed straight from configuration.
func (f *Fanout) With(name string, d Dispatcher) *Fanout {
	if d != nil {
		f.channels = append(f.channels, namedChannel{name: name, d: d})
	}
	return f
}

// Names lists the registered channels.
func (f *Fanout) Names() []string {
	names := make([]string, 0, len(f.channels))
	for _, ch := range f.channels {
		names = append(names, ch.name)
	}
	return names
}

func (f *Fanout) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.d.Notify(ctx, msg); err != nil {
			logger.Warn("Notification channel failed", "channel", ch.name, "event", msg.Event, "userID", msg.UserID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
