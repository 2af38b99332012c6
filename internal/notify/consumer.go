package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "storefront-notify"

// Consumer turns OrderPlaced events into confirmation mails.
type Consumer struct {
	mailer Mailer
	logger *log.Logger
}

func NewConsumer(mailer Mailer, logger *log.Logger) *Consumer {
	return &Consumer{mailer: mailer, logger: logger}
}

// Handle processes one message body. Malformed events are returned as
// errors; mail delivery failures are logged and swallowed.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var env OrderPlacedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal OrderPlaced: %w", err)
	}
	if err := env.Validate(orderPlacedEventName, orderPlacedVersion); err != nil {
		return fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Payload.OrderID == 0 {
		return fmt.Errorf("invalid payload: missing orderId")
	}

	msg, err := RenderOrderConfirmation(env.Payload.Order())
	if err != nil {
		return err
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		c.logger.Printf("send confirmation for order %d: %v", env.Payload.OrderID, err)
		return nil
	}

	c.logger.Printf("sent confirmation for order %d (correlation %s)", env.Payload.OrderID, env.CorrelationID)
	return nil
}

// Run binds the notify queue to the events exchange and consumes until ctx
// is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareEventsExchange(ch); err != nil {
		return fmt.Errorf("declare exchange %s: %w", EventsExchange, err)
	}

	_, err = ch.QueueDeclare(
		NotifyQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	if err := ch.QueueBind(NotifyQueue, OrderPlacedRoutingKey, EventsExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(
		NotifyQueue,
		consumerTag,
		false, // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Printf("stopping %s consumer", NotifyQueue)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Println("messages channel closed")
				return nil
			}

			if err := c.Handle(ctx, msg.Body); err != nil {
				c.logger.Printf("handle message error: %v", err)
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}
