package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

// lineRequest accepts both the snake_case and camelCase spellings clients
// send for cart and checkout lines.
type lineRequest struct {
	ProductID      int64 `json:"product_id"`
	ProductIDCamel int64 `json:"productId"`
	Quantity       int   `json:"quantity"`
	Qty            int   `json:"qty"`
}

func (l lineRequest) productID() int64 {
	if l.ProductID != 0 {
		return l.ProductID
	}
	return l.ProductIDCamel
}

// quantity defaults to one when neither field is sent.
func (l lineRequest) quantity() int {
	switch {
	case l.Quantity != 0:
		return l.Quantity
	case l.Qty != 0:
		return l.Qty
	default:
		return 1
	}
}

type updateCartRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type mergeCartRequest struct {
	Items []lineRequest `json:"items" validate:"max=200"`
}

type shippingRequest struct {
	FullName string `json:"full_name" validate:"max=255"`
	Name     string `json:"name" validate:"max=255"`
	Address  string `json:"address" validate:"max=500"`
	City     string `json:"city" validate:"max=100"`
	Phone    string `json:"phone" validate:"max=30"`
}

func (s *shippingRequest) toShipping() order.Shipping {
	if s == nil {
		return order.Shipping{}
	}
	name := s.FullName
	if name == "" {
		name = s.Name
	}
	return order.Shipping{Name: name, Address: s.Address, City: s.City, Phone: s.Phone}
}

type checkoutRequest struct {
	Items    []lineRequest    `json:"items" validate:"max=200"`
	Shipping *shippingRequest `json:"shipping"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type discountRequest struct {
	DiscountPercentage *decimal.Decimal `json:"discount_percentage" validate:"required"`
}

type productResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Stock    int    `json:"stock"`
	Category string `json:"category"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.StringFixed(2),
		Stock:    p.Stock,
		Category: p.Category,
	}
}

type cartItemResponse struct {
	ID        *int64  `json:"id,omitempty"`
	ProductID int64   `json:"product_id"`
	Name      *string `json:"name"`
	Price     *string `json:"price,omitempty"`
	Qty       int     `json:"qty"`
	Quantity  int     `json:"quantity"`
}

func toCartItemResponse(it cart.Item) cartItemResponse {
	out := cartItemResponse{
		ProductID: it.ProductID,
		Qty:       it.Quantity,
		Quantity:  it.Quantity,
	}
	if it.ID != 0 {
		id := it.ID
		out.ID = &id
	}
	if !it.ProductMissing {
		name, price := it.Name, it.Price.StringFixed(2)
		out.Name, out.Price = &name, &price
	}
	return out
}

type cartResponse struct {
	Cart []cartItemResponse `json:"cart"`
}

func toCartResponse(items []cart.Item) cartResponse {
	out := cartResponse{Cart: make([]cartItemResponse, 0, len(items))}
	for _, it := range items {
		out.Cart = append(out.Cart, toCartItemResponse(it))
	}
	return out
}

type cartLineResponse struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type shippingResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
}

type orderItemResponse struct {
	Product   int64  `json:"product"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Price     string `json:"price"`
}

type orderResponse struct {
	ID                   int64               `json:"id"`
	User                 *string             `json:"user"`
	Status               string              `json:"status"`
	TotalPrice           string              `json:"total_price"`
	DiscountPercentage   string              `json:"discount_percentage"`
	DiscountedTotalPrice string              `json:"discounted_total_price"`
	Shipping             shippingResponse    `json:"shipping"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	DeliveredAt          *time.Time          `json:"delivered_at"`
	Items                []orderItemResponse `json:"items"`
}

func toOrderResponse(o order.Order) orderResponse {
	out := orderResponse{
		ID:                   o.ID,
		Status:               o.Status.String(),
		TotalPrice:           o.TotalPrice.StringFixed(2),
		DiscountPercentage:   o.DiscountPercentage.StringFixed(2),
		DiscountedTotalPrice: o.DiscountedTotal().StringFixed(2),
		Shipping: shippingResponse{
			Name:    o.Shipping.Name,
			Address: o.Shipping.Address,
			City:    o.Shipping.City,
			Phone:   o.Shipping.Phone,
		},
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		DeliveredAt: o.DeliveredAt,
		Items:       make([]orderItemResponse, 0, len(o.Items)),
	}
	if o.UserID != "" {
		user := o.UserID
		out.User = &user
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			Product:   it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Price:     it.LineTotal().StringFixed(2),
		})
	}
	return out
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}
