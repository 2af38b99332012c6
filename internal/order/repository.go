package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error
	GetByID(ctx context.Context, orderID int64) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	// TransitionStatus moves the order from one status to another and reports
	// false when the order was no longer in the from status.
	TransitionStatus(ctx context.Context, orderID int64, from, to Status) (bool, error)
	SetStatus(ctx context.Context, orderID int64, status Status, deliveredAt *time.Time) error
	// SetDiscount reports false when the order is delivered.
	SetDiscount(ctx context.Context, orderID int64, pct decimal.Decimal) (bool, error)
}

type repo struct {
	pool DBPool
}

func NewRepository(pool DBPool) Repository {
	return &repo{pool: pool}
}

func (r *repo) CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	if o.Status == "" {
		o.Status = StatusProcessing
	}

	err := tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, status, total_price, discount_percentage,
                     shipping_name, shipping_address, shipping_city, shipping_phone)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, created_at, updated_at`,
		nullable(o.UserID), string(o.Status), o.TotalPrice, o.DiscountPercentage,
		o.Shipping.Name, o.Shipping.Address, o.Shipping.City, o.Shipping.Phone,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		err := tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
             VALUES ($1, $2, $3, $4)
             RETURNING id`,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

const selectOrders = `
	SELECT id, user_id, status, total_price::text, discount_percentage::text,
	       shipping_name, shipping_address, shipping_city, shipping_phone,
	       created_at, updated_at, delivered_at
	FROM orders`

func (r *repo) GetByID(ctx context.Context, orderID int64) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrders+`
	WHERE id=$1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.ErrNotFound, "Order not found")
		}
		return nil, err
	}

	orders := []Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, selectOrders+`
	WHERE user_id=$1
	ORDER BY created_at DESC, id DESC`, userID)
}

func (r *repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, selectOrders+`
	ORDER BY created_at DESC, id DESC`)
}

func (r *repo) list(ctx context.Context, sql string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the lines of all given orders in one query.
func (r *repo) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT oi.order_id, oi.id, oi.product_id, p.name, oi.quantity, oi.unit_price::text
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`, ids)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      Item
			price   string
		)
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.Name, &it.Quantity, &price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("parse unit price: %w", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}
	return nil
}

func (r *repo) TransitionStatus(ctx context.Context, orderID int64, from, to Status) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
	`, orderID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repo) SetStatus(ctx context.Context, orderID int64, status Status, deliveredAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status=$2, delivered_at=COALESCE(delivered_at, $3), updated_at=now()
		WHERE id=$1
	`, orderID, string(status), deliveredAt)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.ErrNotFound, "Order not found")
	}
	return nil
}

func (r *repo) SetDiscount(ctx context.Context, orderID int64, pct decimal.Decimal) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET discount_percentage=$2, updated_at=now()
		WHERE id=$1 AND status <> 'delivered'
	`, orderID, pct)
	if err != nil {
		return false, fmt.Errorf("set order discount: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o           Order
		userID      *string
		status      string
		total, disc string
	)
	err := row.Scan(&o.ID, &userID, &status, &total, &disc,
		&o.Shipping.Name, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.Phone,
		&o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	if userID != nil {
		o.UserID = *userID
	}
	o.Status = Status(status)
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return Order{}, fmt.Errorf("parse total price: %w", err)
	}
	if o.DiscountPercentage, err = decimal.NewFromString(disc); err != nil {
		return Order{}, fmt.Errorf("parse discount: %w", err)
	}
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
