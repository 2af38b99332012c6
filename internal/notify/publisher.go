package notify

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 3 * time.Second

type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type AMQPPublisher struct {
	ch *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", EventsExchange, err)
	}

	return &AMQPPublisher{ch: ch}, nil
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// LoopbackPublisher hands events straight to an in-process handler. It stands
// in for the broker when RABBITMQ_URL is unset.
type LoopbackPublisher struct {
	Handle func(ctx context.Context, body []byte) error
}

func (p LoopbackPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if p.Handle == nil {
		return nil
	}
	return p.Handle(ctx, body)
}
