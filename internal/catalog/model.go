package catalog

import "github.com/shopspring/decimal"

type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
}

func (p Product) InStock() bool {
	return p.Stock > 0
}
