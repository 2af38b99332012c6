package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const DefaultQueueSize = 128

type placed struct {
	order         order.Order
	correlationID string
}

// Dispatcher decouples checkout from event publishing. OrderPlaced never
// blocks; Run drains the queue in the background.
type Dispatcher struct {
	pub     Publisher
	queue   chan placed
	mu      sync.RWMutex
	stopped bool
	logger  *log.Logger
	now     func() time.Time
}

func NewDispatcher(pub Publisher, size int, logger *log.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		pub:    pub,
		queue:  make(chan placed, size),
		logger: logger,
		now:    time.Now,
	}
}

// OrderPlaced implements order.Notifier. Events arriving once Run has begun
// its final drain are dropped and logged.
func (d *Dispatcher) OrderPlaced(ctx context.Context, o order.Order) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.logger.Printf("notify dispatcher stopped, dropping OrderPlaced for order %d", o.ID)
		return
	}

	select {
	case d.queue <- placed{order: o, correlationID: middleware.GetCorrelationID(ctx)}:
	default:
		d.logger.Printf("notify queue full, dropping OrderPlaced for order %d", o.ID)
	}
}

// Run publishes queued events until ctx is cancelled, then flushes whatever
// is still buffered. Cancel ctx only once no more checkouts can run.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.stopped = true
			d.mu.Unlock()
			d.drain(context.WithoutCancel(ctx))
			d.logger.Println("notify dispatcher stopped")
			return nil
		case p := <-d.queue:
			d.publish(ctx, p)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case p := <-d.queue:
			d.publish(ctx, p)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, p placed) {
	env := BuildOrderPlacedEnvelope(p.order, p.correlationID, d.now())
	body, err := json.Marshal(env)
	if err != nil {
		d.logger.Printf("marshal OrderPlaced for order %d: %v", p.order.ID, err)
		return
	}
	if err := d.pub.Publish(ctx, OrderPlacedRoutingKey, body); err != nil {
		d.logger.Printf("publish OrderPlaced for order %d: %v", p.order.ID, err)
		return
	}
	d.logger.Printf("published OrderPlaced for order %d (correlation %s)", p.order.ID, env.CorrelationID)
}
