package cart

import "github.com/shopspring/decimal"

// Item is a cart line with the product columns joined live from the catalog.
// Anonymous lines carry no ID.
type Item struct {
	ID             int64
	ProductID      int64
	Quantity       int
	Name           string
	Price          decimal.Decimal
	Stock          int
	ProductMissing bool
}

// Line is a bare (product, quantity) pair, as held by an anonymous session or
// sent by a client when merging.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"qty"`
}

// Owner identifies whose cart is addressed: an authenticated user, or an
// anonymous session when UserID is empty.
type Owner struct {
	UserID    string
	SessionID string
}

func (o Owner) Anonymous() bool {
	return o.UserID == ""
}
