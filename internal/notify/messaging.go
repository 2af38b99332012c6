package notify

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const (
	EventsExchange         = "storefront.events"
	OrderPlacedRoutingKey  = "order.placed.v1"
	orderPlacedEventName   = "OrderPlaced"
	orderPlacedVersion     = 1
	orderPlacedSchema      = "storefront/events/OrderPlaced.v1.payload.schema.json"
	storefrontServiceName  = "storefront"
	notifyServiceComponent = "storefront.notify"
)

// NotifyQueue is the durable queue the confirmation mailer consumes from.
var NotifyQueue = serviceQueue(notifyServiceComponent, OrderPlacedRoutingKey)

func serviceQueue(serviceName, routingKey string) string {
	return serviceName + "." + routingKey
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

type ShippingPayload struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
}

type ItemPayload struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderPlaced is the v1 payload for a committed checkout.
type OrderPlaced struct {
	OrderID            int64           `json:"orderId"`
	UserID             string          `json:"userId"`
	Status             string          `json:"status"`
	Items              []ItemPayload   `json:"items"`
	TotalPrice         decimal.Decimal `json:"totalPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Shipping           ShippingPayload `json:"shipping"`
	CreatedAt          time.Time       `json:"createdAt"`
}

type OrderPlacedEnvelope = Envelope[OrderPlaced]

// BuildOrderPlacedEnvelope wraps o in a fresh envelope. An empty correlation
// id is replaced with a new one.
func BuildOrderPlacedEnvelope(o order.Order, correlationID string, now time.Time) OrderPlacedEnvelope {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	items := make([]ItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPayload{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	return OrderPlacedEnvelope{
		EventName:     orderPlacedEventName,
		EventVersion:  orderPlacedVersion,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      storefrontServiceName,
		PartitionKey:  strconv.FormatInt(o.ID, 10),
		OccurredAt:    now.UTC(),
		Schema:        orderPlacedSchema,
		Payload: OrderPlaced{
			OrderID:            o.ID,
			UserID:             o.UserID,
			Status:             o.Status.String(),
			Items:              items,
			TotalPrice:         o.TotalPrice,
			DiscountPercentage: o.DiscountPercentage,
			Shipping: ShippingPayload{
				Name:    o.Shipping.Name,
				Address: o.Shipping.Address,
				City:    o.Shipping.City,
				Phone:   o.Shipping.Phone,
			},
			CreatedAt: o.CreatedAt,
		},
	}
}

// Order rebuilds the domain order carried by the payload so the mail can be
// rendered with the same money rules the API uses.
func (p OrderPlaced) Order() order.Order {
	o := order.Order{
		ID:                 p.OrderID,
		UserID:             p.UserID,
		Status:             order.Status(p.Status),
		TotalPrice:         p.TotalPrice,
		DiscountPercentage: p.DiscountPercentage,
		Shipping: order.Shipping{
			Name:    p.Shipping.Name,
			Address: p.Shipping.Address,
			City:    p.Shipping.City,
			Phone:   p.Shipping.Phone,
		},
		CreatedAt: p.CreatedAt,
	}
	for _, it := range p.Items {
		o.Items = append(o.Items, order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return o
}
