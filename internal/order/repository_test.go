package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
)

var orderColumns = []string{
	"id", "user_id", "status", "total_price", "discount_percentage",
	"shipping_name", "shipping_address", "shipping_city", "shipping_phone",
	"created_at", "updated_at", "delivered_at",
}

var itemColumns = []string{"order_id", "id", "product_id", "name", "quantity", "unit_price"}

func strPtr(s string) *string { return &s }

func TestRepositoryCreateWithTx_Success(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	o := &Order{
		UserID:             "u1",
		TotalPrice:         decimal.RequireFromString("25.50"),
		DiscountPercentage: decimal.Zero,
		Shipping:           Shipping{Name: "Ada", Address: "1 Main St", City: "Izmir", Phone: "555"},
		Items: []Item{
			{ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: 2, Quantity: 2, UnitPrice: decimal.RequireFromString("7.75")},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(strPtr("u1"), "processing", pgxmock.AnyArg(), pgxmock.AnyArg(), "Ada", "1 Main St", "Izmir", "555").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(41), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(int64(41), int64(1), 1, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(500)))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WithArgs(int64(41), int64(2), 2, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(501)))

	tx, err := mock.BeginTx(ctx, pgx.TxOptions{})
	require.NoError(t, err)

	require.NoError(t, NewRepository(mock).CreateWithTx(ctx, tx, o))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(41), o.ID)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Equal(t, int64(500), o.Items[0].ID)
	assert.Equal(t, int64(501), o.Items[1].ID)
}

func TestRepositoryCreateWithTx_ItemInsertError(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	o := &Order{
		UserID: "u1",
		Items:  []Item{{ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")}},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO orders`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(1), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WillReturnError(errors.New("fk violation"))

	tx, err := mock.BeginTx(ctx, pgx.TxOptions{})
	require.NoError(t, err)

	err = NewRepository(mock).CreateWithTx(ctx, tx, o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert order item")
}

func TestRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	delivered := created.Add(48 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders`)).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(orderColumns).AddRow(
			int64(7), strPtr("u1"), "delivered", "100.00", "20.00",
			"Ada", "1 Main St", "Izmir", "555",
			created, created, &delivered,
		))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items oi`)).
		WithArgs([]int64{7}).
		WillReturnRows(pgxmock.NewRows(itemColumns).
			AddRow(int64(7), int64(70), int64(1), "Desk Lamp", 2, "50.00"))

	o, err := NewRepository(mock).GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, StatusDelivered, o.Status)
	assert.Equal(t, "80.00", o.DiscountedTotal().StringFixed(2))
	require.NotNil(t, o.DeliveredAt)
	assert.True(t, o.DeliveredAt.Equal(delivered))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Desk Lamp", o.Items[0].Name)
	assert.Equal(t, "100.00", o.Items[0].LineTotal().StringFixed(2))
}

func TestRepositoryGetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders`)).
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewRepository(mock).GetByID(context.Background(), 8)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepositoryListByUser_AnonymousOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id=$1`)).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(orderColumns).
			AddRow(int64(2), strPtr("u1"), "processing", "5.00", "0.00", "", "", "", "", created, created, (*time.Time)(nil)).
			AddRow(int64(1), (*string)(nil), "cancelled", "3.00", "0.00", "", "", "", "", created, created, (*time.Time)(nil)))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_items oi`)).
		WithArgs([]int64{2, 1}).
		WillReturnRows(pgxmock.NewRows(itemColumns))

	orders, err := NewRepository(mock).ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "", orders[1].UserID)
	assert.Nil(t, orders[0].DeliveredAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryTransitionStatus(t *testing.T) {
	tests := map[string]struct {
		affected int64
		want     bool
	}{
		"moved":        {affected: 1, want: true},
		"status raced": {affected: 0, want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectExec(regexp.QuoteMeta(`WHERE id=$1 AND status=$2`)).
				WithArgs(int64(3), "processing", "cancelled").
				WillReturnResult(pgxmock.NewResult("UPDATE", tc.affected))

			ok, err := NewRepository(mock).TransitionStatus(context.Background(), 3, StatusProcessing, StatusCancelled)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestRepositorySetStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`delivered_at=COALESCE(delivered_at, $3)`)).
		WithArgs(int64(9), "returned", (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewRepository(mock).SetStatus(context.Background(), 9, StatusReturned, nil)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepositorySetDiscount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`status <> 'delivered'`)).
		WithArgs(int64(4), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := NewRepository(mock).SetDiscount(context.Background(), 4, decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
