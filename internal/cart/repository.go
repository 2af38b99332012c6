package cart

import (
	"context"
	"errors"
	"fmt"

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

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository interface {
	List(ctx context.Context, userID string) ([]Item, error)
	ListWithTx(ctx context.Context, tx pgx.Tx, userID string) ([]Item, error)
	Get(ctx context.Context, userID string, itemID int64) (Item, error)
	LineQuantityWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64) (int, error)
	IncrementWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64, qty, limit int) (int, bool, error)
	IncrementCappedWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64, qty, limit int) (int, error)
	UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) error
	Delete(ctx context.Context, userID string, itemID int64) error
	DeleteByProduct(ctx context.Context, userID string, productID int64) error
	DeleteItemsWithTx(ctx context.Context, tx pgx.Tx, userID string, itemIDs []int64) error
	Clear(ctx context.Context, userID string) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectItems = `
	SELECT ci.id, ci.product_id, ci.quantity, p.name, p.price::text, p.stock
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id`

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]Item, error) {
	return listItems(ctx, r.pool, userID)
}

// ListWithTx reads the user's lines inside tx, locking them so a concurrent
// update cannot slip in between checkout reading and clearing the cart.
func (r *PostgresRepository) ListWithTx(ctx context.Context, tx pgx.Tx, userID string) ([]Item, error) {
	return listItems(ctx, tx, userID, " FOR UPDATE OF ci")
}

func listItems(ctx context.Context, q querier, userID string, suffix ...string) ([]Item, error) {
	sql := selectItems + `
	WHERE ci.user_id=$1
	ORDER BY ci.id`
	for _, s := range suffix {
		sql += s
	}

	rows, err := q.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string, itemID int64) (Item, error) {
	row := r.pool.QueryRow(ctx, selectItems+`
	WHERE ci.user_id=$1 AND ci.id=$2`, userID, itemID)
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, apperr.New(apperr.ErrNotFound, "cart item not found")
		}
		return Item{}, err
	}
	return it, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it    Item
		price string
	)
	if err := row.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.Name, &price, &it.Stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("scan cart item: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Item{}, fmt.Errorf("parse price: %w", err)
	}
	it.Price = d
	return it, nil
}

// LineQuantityWithTx returns the current quantity of the user's line for
// productID, or 0 when there is none. An existing line is locked.
func (r *PostgresRepository) LineQuantityWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64) (int, error) {
	var qty int
	err := tx.QueryRow(ctx, `
		SELECT quantity
		FROM cart_items
		WHERE user_id=$1 AND product_id=$2
		FOR UPDATE
	`, userID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("load cart line: %w", err)
	}
	return qty, nil
}

// IncrementWithTx adds qty to the user's line for productID, creating it when
// absent. The upsert takes the row lock, so concurrent first adds serialize
// instead of overwriting each other. When the existing line plus qty would
// exceed limit nothing is written and ok is false. qty must not exceed limit.
func (r *PostgresRepository) IncrementWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64, qty, limit int) (int, bool, error) {
	var total int
	err := tx.QueryRow(ctx, `
		INSERT INTO cart_items(user_id, product_id, quantity)
		VALUES($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity=cart_items.quantity + EXCLUDED.quantity, updated_at=now()
		WHERE cart_items.quantity + EXCLUDED.quantity <= $4
		RETURNING quantity
	`, userID, productID, qty, limit).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("increment cart line: %w", err)
	}
	return total, true, nil
}

// IncrementCappedWithTx adds qty to the user's line for productID and caps
// the result at limit. It returns the stored quantity.
func (r *PostgresRepository) IncrementCappedWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64, qty, limit int) (int, error) {
	var total int
	err := tx.QueryRow(ctx, `
		INSERT INTO cart_items(user_id, product_id, quantity)
		VALUES($1, $2, LEAST($3::int, $4::int))
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity=LEAST(cart_items.quantity::bigint + EXCLUDED.quantity, $4::int), updated_at=now()
		RETURNING quantity
	`, userID, productID, qty, limit).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("merge cart line: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items
		SET quantity=$3, updated_at=now()
		WHERE user_id=$1 AND id=$2
	`, userID, itemID, qty)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.ErrNotFound, "cart item not found")
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, itemID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND id=$2`, userID, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.ErrNotFound, "cart item not found")
	}
	return nil
}

func (r *PostgresRepository) DeleteByProduct(ctx context.Context, userID string, productID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item by product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.ErrNotFound, "cart item not found")
	}
	return nil
}

func (r *PostgresRepository) DeleteItemsWithTx(ctx context.Context, tx pgx.Tx, userID string, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND id = ANY($2)`, userID, itemIDs)
	if err != nil {
		return fmt.Errorf("delete consumed cart items: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
