//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func truncateTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`TRUNCATE order_items, orders, cart_items, products RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO products (name, price, stock, category) VALUES ($1, $2, $3, 'test') RETURNING id`,
		name, decimal.RequireFromString(price), stock,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func stockOf(t *testing.T, pool *pgxpool.Pool, id int64) int {
	t.Helper()
	var stock int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT stock FROM products WHERE id=$1`, id).Scan(&stock))
	return stock
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT count(*) FROM `+table).Scan(&n))
	return n
}
