package order

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Shipping struct {
	Name    string
	Address string
	City    string
	Phone   string
}

// Item is an order line. UnitPrice is frozen at checkout; Name is the
// product's current name.
type Item struct {
	ID        int64
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                 int64
	UserID             string
	Status             Status
	TotalPrice         decimal.Decimal
	DiscountPercentage decimal.Decimal
	Shipping           Shipping
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeliveredAt        *time.Time
	Items              []Item
}

// DiscountedTotal is derived from TotalPrice and DiscountPercentage on every
// call and never stored.
func (o Order) DiscountedTotal() decimal.Decimal {
	return o.TotalPrice.Sub(o.DiscountAmount())
}

func (o Order) DiscountAmount() decimal.Decimal {
	return o.TotalPrice.Mul(o.DiscountPercentage).Div(hundred)
}

func (o Order) HasDiscount() bool {
	return o.DiscountPercentage.IsPositive()
}

// ItemsTotal sums unit price times quantity over the order's lines.
func ItemsTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
