package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type fakePublisher struct {
	mu          sync.Mutex
	publishFunc func(ctx context.Context, routingKey string, body []byte) error
	bodies      [][]byte
	keys        []string
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	f.mu.Lock()
	f.keys = append(f.keys, routingKey)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	if f.publishFunc != nil {
		return f.publishFunc(ctx, routingKey, body)
	}
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies)
}

type fakeMailer struct {
	sendFunc func(ctx context.Context, msg Message) error
	sent     []Message
}

func (f *fakeMailer) Send(ctx context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	if f.sendFunc != nil {
		return f.sendFunc(ctx, msg)
	}
	return nil
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func sampleOrder() order.Order {
	return order.Order{
		ID:                 42,
		UserID:             "u1",
		Status:             order.StatusProcessing,
		TotalPrice:         decimal.RequireFromString("64.47"),
		DiscountPercentage: decimal.Zero,
		Shipping:           order.Shipping{Name: "Ada Lovelace", Address: "1 Main St", City: "Izmir", Phone: "555-0100"},
		CreatedAt:          time.Date(2025, 3, 1, 14, 5, 0, 0, time.UTC),
		Items: []order.Item{
			{ProductID: 1, Name: "Desk Lamp", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
			{ProductID: 2, Name: "Notebook", Quantity: 1, UnitPrice: decimal.RequireFromString("24.49")},
		},
	}
}

func TestRenderOrderConfirmation(t *testing.T) {
	msg, err := RenderOrderConfirmation(sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "u1", msg.To)
	assert.Equal(t, "Order Confirmation - Order #42", msg.Subject)
	assert.Contains(t, msg.Body, "Hello Ada Lovelace,")
	assert.Contains(t, msg.Body, "Order Date: March 01, 2025 at 02:05 PM")
	assert.Contains(t, msg.Body, "Status: Processing")
	assert.Contains(t, msg.Body, "  - Desk Lamp x 2 = $39.98\n")
	assert.Contains(t, msg.Body, "  - Notebook x 1 = $24.49\n")
	assert.Contains(t, msg.Body, "Subtotal: $64.47\nTotal: $64.47")
	assert.NotContains(t, msg.Body, "Discount")
	assert.Contains(t, msg.Body, "Phone: 555-0100")
}

func TestRenderOrderConfirmation_DiscountAndMissingShipping(t *testing.T) {
	o := sampleOrder()
	o.TotalPrice = decimal.RequireFromString("100.00")
	o.DiscountPercentage = decimal.NewFromInt(20)
	o.Shipping = order.Shipping{}
	o.Status = order.StatusReturnRequested

	msg, err := RenderOrderConfirmation(o)
	require.NoError(t, err)

	assert.Contains(t, msg.Body, "Hello u1,")
	assert.Contains(t, msg.Body, "Status: Return Requested")
	assert.Contains(t, msg.Body, "Subtotal: $100.00\nDiscount (20%): -$20.00\nTotal: $80.00")
	assert.Contains(t, msg.Body, "Phone: N/A")
}

func TestEnvelopeValidate(t *testing.T) {
	valid := BuildOrderPlacedEnvelope(sampleOrder(), "cid", time.Now())
	require.NoError(t, valid.Validate(orderPlacedEventName, orderPlacedVersion))

	tests := map[string]struct {
		mutate func(e *OrderPlacedEnvelope)
		want   string
	}{
		"wrong name":        {mutate: func(e *OrderPlacedEnvelope) { e.EventName = "OrderShipped" }, want: "unexpected eventName"},
		"wrong version":     {mutate: func(e *OrderPlacedEnvelope) { e.EventVersion = 2 }, want: "unexpected eventVersion"},
		"missing event id":  {mutate: func(e *OrderPlacedEnvelope) { e.EventID = "" }, want: "missing eventId"},
		"missing partition": {mutate: func(e *OrderPlacedEnvelope) { e.PartitionKey = "" }, want: "missing partitionKey"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			env := valid
			tc.mutate(&env)
			err := env.Validate(orderPlacedEventName, orderPlacedVersion)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBuildOrderPlacedEnvelope(t *testing.T) {
	env := BuildOrderPlacedEnvelope(sampleOrder(), "", time.Now())

	assert.NotEmpty(t, env.EventID)
	assert.NotEmpty(t, env.CorrelationID)
	assert.Equal(t, "42", env.PartitionKey)
	assert.Equal(t, "storefront", env.Producer)
	assert.Equal(t, "processing", env.Payload.Status)
	require.Len(t, env.Payload.Items, 2)

	back := env.Payload.Order()
	assert.Equal(t, "64.47", back.DiscountedTotal().StringFixed(2))
}

func TestConsumerHandle(t *testing.T) {
	body, err := json.Marshal(BuildOrderPlacedEnvelope(sampleOrder(), "cid", time.Now()))
	require.NoError(t, err)

	t.Run("sends confirmation", func(t *testing.T) {
		mailer := &fakeMailer{}
		c := NewConsumer(mailer, discardLogger())

		require.NoError(t, c.Handle(context.Background(), body))
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "Order Confirmation - Order #42", mailer.sent[0].Subject)
	})

	t.Run("mailer failure is swallowed", func(t *testing.T) {
		mailer := &fakeMailer{sendFunc: func(ctx context.Context, msg Message) error {
			return errors.New("smtp down")
		}}
		c := NewConsumer(mailer, discardLogger())

		require.NoError(t, c.Handle(context.Background(), body))
		assert.Len(t, mailer.sent, 1)
	})

	t.Run("malformed body", func(t *testing.T) {
		mailer := &fakeMailer{}
		c := NewConsumer(mailer, discardLogger())

		require.Error(t, c.Handle(context.Background(), []byte(`{not json`)))
		assert.Empty(t, mailer.sent)
	})

	t.Run("wrong event", func(t *testing.T) {
		mailer := &fakeMailer{}
		c := NewConsumer(mailer, discardLogger())

		err := c.Handle(context.Background(), []byte(`{"eventName":"OrderShipped","eventVersion":1,"eventId":"e","partitionKey":"1","payload":{"orderId":1}}`))
		require.Error(t, err)
		assert.Empty(t, mailer.sent)
	})
}

func TestDispatcher_PublishesQueuedOrders(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	d.OrderPlaced(middleware.WithCorrelationID(context.Background(), "cid-7"), sampleOrder())

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, OrderPlacedRoutingKey, pub.keys[0])
	var env OrderPlacedEnvelope
	require.NoError(t, json.Unmarshal(pub.bodies[0], &env))
	assert.Equal(t, "cid-7", env.CorrelationID)
	assert.Equal(t, int64(42), env.Payload.OrderID)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, 1, discardLogger())

	// nothing drains the queue, so the second event must be dropped without blocking
	d.OrderPlaced(context.Background(), sampleOrder())
	d.OrderPlaced(context.Background(), sampleOrder())
	assert.Len(t, d.queue, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 1, pub.count())
}

func TestDispatcher_PublishErrorIsSwallowed(t *testing.T) {
	pub := &fakePublisher{publishFunc: func(ctx context.Context, routingKey string, body []byte) error {
		return errors.New("broker down")
	}}
	d := NewDispatcher(pub, 2, discardLogger())

	d.OrderPlaced(context.Background(), sampleOrder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Equal(t, 1, pub.count())
}

func TestDispatcher_LogsEventsAfterStop(t *testing.T) {
	pub := &fakePublisher{}
	var logs bytes.Buffer
	d := NewDispatcher(pub, 2, log.New(&logs, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	d.OrderPlaced(context.Background(), sampleOrder())
	assert.Empty(t, d.queue)
	assert.Equal(t, 0, pub.count())
	assert.Contains(t, logs.String(), "notify dispatcher stopped, dropping OrderPlaced for order 42")
}

func TestLoopbackPublisher_DeliversToConsumer(t *testing.T) {
	mailer := &fakeMailer{}
	c := NewConsumer(mailer, discardLogger())
	d := NewDispatcher(LoopbackPublisher{Handle: c.Handle}, 2, discardLogger())

	d.OrderPlaced(context.Background(), sampleOrder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Body, "Desk Lamp")
}
