package cart

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

type fakeProducts struct {
	items map[int64]catalog.Product
}

func (f *fakeProducts) Get(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return catalog.Product{}, apperr.New(apperr.ErrNotFound, "product %d not found", id)
	}
	return p, nil
}

func (f *fakeProducts) GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (catalog.Product, error) {
	return f.Get(ctx, id)
}

// fakeRepo keeps persisted cart lines in memory. It ignores transactions.
type fakeRepo struct {
	products *fakeProducts
	lines    map[string]map[int64]*Item // user -> product -> line
	nextID   int64
	setErr   error
}

func newFakeRepo(products *fakeProducts) *fakeRepo {
	return &fakeRepo{products: products, lines: map[string]map[int64]*Item{}}
}

func (f *fakeRepo) seed(userID string, productID int64, qty int) int64 {
	if f.lines[userID] == nil {
		f.lines[userID] = map[int64]*Item{}
	}
	f.nextID++
	f.lines[userID][productID] = &Item{ID: f.nextID, ProductID: productID, Quantity: qty}
	return f.nextID
}

func (f *fakeRepo) quantity(userID string, productID int64) int {
	if it, ok := f.lines[userID][productID]; ok {
		return it.Quantity
	}
	return 0
}

func (f *fakeRepo) joined(it Item) Item {
	p := f.products.items[it.ProductID]
	it.Name, it.Price, it.Stock = p.Name, p.Price, p.Stock
	return it
}

func (f *fakeRepo) List(ctx context.Context, userID string) ([]Item, error) {
	var out []Item
	for _, it := range f.lines[userID] {
		out = append(out, f.joined(*it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) ListWithTx(ctx context.Context, tx pgx.Tx, userID string) ([]Item, error) {
	return f.List(ctx, userID)
}

func (f *fakeRepo) find(userID string, itemID int64) (*Item, bool) {
	for _, it := range f.lines[userID] {
		if it.ID == itemID {
			return it, true
		}
	}
	return nil, false
}

func (f *fakeRepo) Get(ctx context.Context, userID string, itemID int64) (Item, error) {
	it, ok := f.find(userID, itemID)
	if !ok {
		return Item{}, apperr.New(apperr.ErrNotFound, "cart item not found")
	}
	return f.joined(*it), nil
}

func (f *fakeRepo) LineQuantityWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64) (int, error) {
	return f.quantity(userID, productID), nil
}

func (f *fakeRepo) IncrementWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64, qty, limit int) (int, bool, error) {
	if f.setErr != nil {
		return 0, false, f.setErr
	}
	total := f.quantity(userID, productID) + qty
	if total > limit {
		return 0, false, nil
	}
	f.store(userID, productID, total)
	return total, true, nil
}

func (f *fakeRepo) IncrementCappedWithTx(ctx context.Context, tx pgx.Tx, userID string, productID int64, qty, limit int) (int, error) {
	if f.setErr != nil {
		return 0, f.setErr
	}
	total := min(f.quantity(userID, productID)+qty, limit)
	f.store(userID, productID, total)
	return total, nil
}

func (f *fakeRepo) store(userID string, productID int64, qty int) {
	if it, ok := f.lines[userID][productID]; ok {
		it.Quantity = qty
		return
	}
	f.seed(userID, productID, qty)
}

func (f *fakeRepo) UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) error {
	it, ok := f.find(userID, itemID)
	if !ok {
		return apperr.New(apperr.ErrNotFound, "cart item not found")
	}
	it.Quantity = qty
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, userID string, itemID int64) error {
	it, ok := f.find(userID, itemID)
	if !ok {
		return apperr.New(apperr.ErrNotFound, "cart item not found")
	}
	delete(f.lines[userID], it.ProductID)
	return nil
}

func (f *fakeRepo) DeleteByProduct(ctx context.Context, userID string, productID int64) error {
	if _, ok := f.lines[userID][productID]; !ok {
		return apperr.New(apperr.ErrNotFound, "cart item not found")
	}
	delete(f.lines[userID], productID)
	return nil
}

func (f *fakeRepo) DeleteItemsWithTx(ctx context.Context, tx pgx.Tx, userID string, itemIDs []int64) error {
	for _, id := range itemIDs {
		if it, ok := f.find(userID, id); ok {
			delete(f.lines[userID], it.ProductID)
		}
	}
	return nil
}

func (f *fakeRepo) Clear(ctx context.Context, userID string) error {
	delete(f.lines, userID)
	return nil
}

type fakeSessions struct {
	carts map[string]map[int64]int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{carts: map[string]map[int64]int{}}
}

func (f *fakeSessions) Quantity(ctx context.Context, sessionID string, productID int64) (int, error) {
	return f.carts[sessionID][productID], nil
}

func (f *fakeSessions) Add(ctx context.Context, sessionID string, productID int64, qty int) (int, error) {
	if f.carts[sessionID] == nil {
		f.carts[sessionID] = map[int64]int{}
	}
	f.carts[sessionID][productID] += qty
	return f.carts[sessionID][productID], nil
}

func (f *fakeSessions) Lines(ctx context.Context, sessionID string) ([]Line, error) {
	var out []Line
	for pid, qty := range f.carts[sessionID] {
		out = append(out, Line{ProductID: pid, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (f *fakeSessions) Take(ctx context.Context, sessionID string) ([]Line, error) {
	out, _ := f.Lines(ctx, sessionID)
	delete(f.carts, sessionID)
	return out, nil
}

func (f *fakeSessions) Restore(ctx context.Context, sessionID string, lines []Line) error {
	for _, l := range lines {
		if _, err := f.Add(ctx, sessionID, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSessions) Clear(ctx context.Context, sessionID string) error {
	delete(f.carts, sessionID)
	return nil
}
