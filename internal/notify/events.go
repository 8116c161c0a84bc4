package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Events publishes every notification as a domain event on a topic exchange
// so other services can react to rental lifecycle changes.
type Events struct {
	pub publisher
}

func NewEvents(pub publisher) *Events {
	return &Events{pub: pub}
}

func (c *Events) Notify(ctx context.Context, msg Message) error {
	return c.pub.PublishJSON(ctx, RoutingKey(msg.Event), msg)
}

// RoutingKey maps RENTAL_APPROVED to rental.rental_approved.
func RoutingKey(event string) string {
	return "rental." + strings.ToLower(event)
}

// Publisher is a RabbitMQ topic exchange publisher.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
