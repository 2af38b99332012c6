package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

type fakeRepo struct {
	orders    map[int64]*Order
	nextID    int64
	createErr error
	created   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[int64]*Order{}}
}

func (f *fakeRepo) put(o Order) *Order {
	if o.ID == 0 {
		f.nextID++
		o.ID = f.nextID
	}
	cp := o
	f.orders[o.ID] = &cp
	return &cp
}

func (f *fakeRepo) CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created++
	f.nextID++
	o.ID = f.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, orderID int64) (*Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "Order not found")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]Order, error) {
	var out []Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) TransitionStatus(ctx context.Context, orderID int64, from, to Status) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (f *fakeRepo) SetStatus(ctx context.Context, orderID int64, status Status, deliveredAt *time.Time) error {
	o, ok := f.orders[orderID]
	if !ok {
		return apperr.New(apperr.ErrNotFound, "Order not found")
	}
	o.Status = status
	if o.DeliveredAt == nil && deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	return nil
}

func (f *fakeRepo) SetDiscount(ctx context.Context, orderID int64, pct decimal.Decimal) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok || o.Status == StatusDelivered {
		return false, nil
	}
	o.DiscountPercentage = pct
	return true, nil
}

type fakeProducts struct {
	items       map[int64]catalog.Product
	locked      []int64
	decremented map[int64]int
}

func newFakeProducts(ps ...catalog.Product) *fakeProducts {
	f := &fakeProducts{items: map[int64]catalog.Product{}, decremented: map[int64]int{}}
	for _, p := range ps {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) LockForUpdate(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]catalog.Product, error) {
	out := map[int64]catalog.Product{}
	for _, id := range ids {
		p, ok := f.items[id]
		if !ok {
			return nil, apperr.New(apperr.ErrNotFound, "product %d not found", id)
		}
		f.locked = append(f.locked, id)
		out[id] = p
	}
	return out, nil
}

func (f *fakeProducts) DecrementStock(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	p := f.items[id]
	if p.Stock < qty {
		return apperr.New(apperr.ErrInsufficientStock, "Not enough stock for product %d", id)
	}
	p.Stock -= qty
	f.items[id] = p
	f.decremented[id] += qty
	return nil
}

type fakeCarts struct {
	items   map[string][]cart.Item
	deleted []int64
}

func (f *fakeCarts) ListWithTx(ctx context.Context, tx pgx.Tx, userID string) ([]cart.Item, error) {
	return f.items[userID], nil
}

func (f *fakeCarts) DeleteItemsWithTx(ctx context.Context, tx pgx.Tx, userID string, itemIDs []int64) error {
	f.deleted = append(f.deleted, itemIDs...)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	placed []Order
}

func (n *recordingNotifier) OrderPlaced(ctx context.Context, o Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.placed)
}
