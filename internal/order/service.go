package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

const DefaultReturnWindowDays = 30

var maxDiscount = decimal.NewFromInt(90)

type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type ProductStore interface {
	LockForUpdate(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]catalog.Product, error)
	DecrementStock(ctx context.Context, tx pgx.Tx, id int64, qty int) error
}

type CartStore interface {
	ListWithTx(ctx context.Context, tx pgx.Tx, userID string) ([]cart.Item, error)
	DeleteItemsWithTx(ctx context.Context, tx pgx.Tx, userID string, itemIDs []int64) error
}

// Notifier is told about every committed checkout. Implementations must not
// block and must not report failure back to the workflow.
type Notifier interface {
	OrderPlaced(ctx context.Context, o Order)
}

type LineInput struct {
	ProductID int64
	Quantity  int
}

// CheckoutInput describes a checkout. With no Items the caller's persisted
// cart is used.
type CheckoutInput struct {
	Items    []LineInput
	Shipping Shipping
}

type Service struct {
	db           TxBeginner
	orders       Repository
	products     ProductStore
	carts        CartStore
	notifier     Notifier
	returnWindow int
	now          func() time.Time
}

type Option func(*Service)

func WithReturnWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.returnWindow = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db TxBeginner, orders Repository, products ProductStore, carts CartStore, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		db:           db,
		orders:       orders,
		products:     products,
		carts:        carts,
		notifier:     notifier,
		returnWindow: DefaultReturnWindowDays,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout turns the caller's cart, or the explicit lines in in, into an
// order. Every line is validated against locked product rows before anything
// is written; stock is decremented and consumed cart lines are deleted in the
// same transaction.
func (s *Service) Checkout(ctx context.Context, id auth.Identity, in CheckoutInput) (*Order, error) {
	if !id.Authenticated() {
		return nil, apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}

	var (
		lines       []LineInput
		cartItemIDs []int64
		fromCart    = len(in.Items) == 0
	)
	if !fromCart {
		var err error
		if lines, err = normalizeLines(in.Items); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if fromCart {
		items, err := s.carts.ListWithTx(ctx, tx, id.UserID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			lines = append(lines, LineInput{ProductID: it.ProductID, Quantity: it.Quantity})
			cartItemIDs = append(cartItemIDs, it.ID)
		}
	}
	if len(lines) == 0 {
		return nil, apperr.New(apperr.ErrEmptyCart, "Your cart is empty.")
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := s.products.LockForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	o := &Order{
		UserID:             id.UserID,
		Status:             StatusProcessing,
		DiscountPercentage: decimal.Zero,
		Shipping:           in.Shipping,
	}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, apperr.New(apperr.ErrNotFound, "product %d not found", l.ProductID)
		}
		if p.Stock < l.Quantity {
			return nil, apperr.New(apperr.ErrInsufficientStock, "Not enough stock for: %s", p.Name)
		}
		o.Items = append(o.Items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
		})
	}
	o.TotalPrice = ItemsTotal(o.Items)

	if err := s.orders.CreateWithTx(ctx, tx, o); err != nil {
		return nil, err
	}
	for _, l := range lines {
		if err := s.products.DecrementStock(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
	}
	if fromCart {
		if err := s.carts.DeleteItemsWithTx(ctx, tx, id.UserID, cartItemIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, *o)
	}
	return o, nil
}

// normalizeLines clamps quantities to at least one and folds repeated
// products into a single line, keeping first-seen order.
func normalizeLines(in []LineInput) ([]LineInput, error) {
	out := make([]LineInput, 0, len(in))
	pos := make(map[int64]int, len(in))
	for _, l := range in {
		if l.ProductID <= 0 {
			return nil, apperr.New(apperr.ErrInvalidInput, "product_id is required")
		}
		qty := max(1, l.Quantity)
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity += qty
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, LineInput{ProductID: l.ProductID, Quantity: qty})
	}
	return out, nil
}

// Get returns one of the caller's orders. Orders owned by someone else are
// reported as not found.
func (s *Service) Get(ctx context.Context, id auth.Identity, orderID int64) (*Order, error) {
	if !id.Authenticated() {
		return nil, apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != id.UserID {
		return nil, apperr.New(apperr.ErrNotFound, "Order not found")
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, id auth.Identity) ([]Order, error) {
	if !id.Authenticated() {
		return nil, apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	return s.orders.ListByUser(ctx, id.UserID)
}

func (s *Service) ListAll(ctx context.Context, id auth.Identity) ([]Order, error) {
	if err := auth.Require(id, auth.PermListAllOrders); err != nil {
		return nil, err
	}
	return s.orders.ListAll(ctx)
}

// Cancel moves a processing order to cancelled. Stock is not restored.
func (s *Service) Cancel(ctx context.Context, id auth.Identity, orderID int64) (*Order, error) {
	o, err := s.Get(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanCancel() {
		return nil, errCannotCancel()
	}

	ok, err := s.orders.TransitionStatus(ctx, orderID, StatusProcessing, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errCannotCancel()
	}
	o.Status = StatusCancelled
	return o, nil
}

func errCannotCancel() error {
	return apperr.New(apperr.ErrInvalidTransition, "Cannot cancel order. It is already in transit or delivered.")
}

// RequestReturn moves a delivered order to return_requested while the return
// window is open.
func (s *Service) RequestReturn(ctx context.Context, id auth.Identity, orderID int64) (*Order, error) {
	o, err := s.Get(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanRequestReturn() {
		return nil, errNotDelivered()
	}
	if o.DeliveredAt == nil {
		return nil, apperr.New(apperr.ErrMissingData, "Delivery date not found.")
	}

	days := int(s.now().Sub(*o.DeliveredAt).Hours() / 24)
	if days > s.returnWindow {
		return nil, apperr.New(apperr.ErrWindowExpired,
			"Return period expired. (%d days passed, limit is %d).", days, s.returnWindow)
	}

	ok, err := s.orders.TransitionStatus(ctx, orderID, StatusDelivered, StatusReturnRequested)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotDelivered()
	}
	o.Status = StatusReturnRequested
	return o, nil
}

func errNotDelivered() error {
	return apperr.New(apperr.ErrInvalidTransition, "Cannot return an order that has not been delivered.")
}

// SetStatus is the administrative override: it writes any known status
// without consulting the transition rules. Moving to delivered stamps the
// delivery time if none is recorded.
func (s *Service) SetStatus(ctx context.Context, id auth.Identity, orderID int64, raw string) (*Order, error) {
	if err := auth.Require(id, auth.PermSetOrderStatus); err != nil {
		return nil, err
	}
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	var deliveredAt *time.Time
	if status == StatusDelivered {
		now := s.now().UTC()
		deliveredAt = &now
	}
	if err := s.orders.SetStatus(ctx, orderID, status, deliveredAt); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, orderID)
}

// ApplyDiscount sets the order's discount percentage. The discounted total is
// derived on read.
func (s *Service) ApplyDiscount(ctx context.Context, id auth.Identity, orderID int64, pct decimal.Decimal) (*Order, error) {
	if err := auth.Require(id, auth.PermApplyDiscount); err != nil {
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.AcceptsDiscount() {
		return nil, errDiscountDelivered()
	}
	// stored as NUMERIC(5,2)
	pct = pct.Round(2)
	if pct.IsNegative() || pct.GreaterThan(maxDiscount) {
		return nil, apperr.New(apperr.ErrInvalidRange, "Discount must be between 0 and 90.")
	}

	ok, err := s.orders.SetDiscount(ctx, orderID, pct)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errDiscountDelivered()
	}
	o.DiscountPercentage = pct
	return o, nil
}

func errDiscountDelivered() error {
	return apperr.New(apperr.ErrForbidden, "Cannot apply discount to delivered orders.")
}
