package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	Get(ctx context.Context, id int64) (Product, error)
	GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (Product, error)
	LockForUpdate(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]Product, error)
	DecrementStock(ctx context.Context, tx pgx.Tx, id int64, qty int) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectProduct = `
	SELECT id, name, price::text, stock, category
	FROM products
	WHERE id=$1`

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, selectProduct, id), id)
}

func (r *PostgresRepository) GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (Product, error) {
	return scanProduct(tx.QueryRow(ctx, selectProduct, id), id)
}

// LockForUpdate row-locks every product in ids, in ascending id order, for the
// lifetime of tx. Missing products fail the whole call with ErrNotFound.
func (r *PostgresRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make(map[int64]Product, len(sorted))
	for _, id := range sorted {
		p, err := scanProduct(tx.QueryRow(ctx, selectProduct+`
			FOR UPDATE`, id), id)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

func (r *PostgresRepository) DecrementStock(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at=now()
		WHERE id=$1 AND stock >= $2
	`, id, qty)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.ErrInsufficientStock, "Not enough stock for product %d", id)
	}
	return nil
}

func scanProduct(row pgx.Row, id int64) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock, &p.Category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.New(apperr.ErrNotFound, "product %d not found", id)
		}
		return Product{}, fmt.Errorf("load product %d: %w", id, err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price of product %d: %w", id, err)
	}
	p.Price = d
	return p, nil
}
