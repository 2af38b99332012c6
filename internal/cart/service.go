package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ProductLookup is the slice of the catalog the cart needs.
type ProductLookup interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	GetWithTx(ctx context.Context, tx pgx.Tx, id int64) (catalog.Product, error)
}

type Service struct {
	db       TxBeginner
	repo     Repository
	sessions SessionStore
	products ProductLookup
}

func NewService(db TxBeginner, repo Repository, sessions SessionStore, products ProductLookup) *Service {
	return &Service{db: db, repo: repo, sessions: sessions, products: products}
}

// Add puts qty more units of productID into the owner's cart. Quantities
// below one count as one.
func (s *Service) Add(ctx context.Context, owner Owner, productID int64, qty int) error {
	qty = max(1, qty)

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if !p.InStock() {
		return apperr.New(apperr.ErrOutOfStock, "This product is out of stock")
	}

	if owner.Anonymous() {
		return s.addToSession(ctx, owner.SessionID, p, qty)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if qty <= p.Stock {
		_, ok, err := s.repo.IncrementWithTx(ctx, tx, owner.UserID, productID, qty, p.Stock)
		if err != nil {
			return err
		}
		if ok {
			if err := tx.Commit(ctx); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			return nil
		}
	}

	current, err := s.repo.LineQuantityWithTx(ctx, tx, owner.UserID, productID)
	if err != nil {
		return err
	}
	return errInsufficientStock(p.Stock, current)
}

func (s *Service) addToSession(ctx context.Context, sessionID string, p catalog.Product, qty int) error {
	if sessionID == "" {
		return apperr.New(apperr.ErrInvalidInput, "missing session id")
	}
	current, err := s.sessions.Quantity(ctx, sessionID, p.ID)
	if err != nil {
		return err
	}
	if qty > p.Stock-current {
		return errInsufficientStock(p.Stock, current)
	}
	_, err = s.sessions.Add(ctx, sessionID, p.ID, qty)
	return err
}

func errInsufficientStock(stock, current int) error {
	return apperr.New(apperr.ErrInsufficientStock,
		"Only %d items available in stock. You already have %d in your cart.", stock, current)
}

// List returns the owner's lines with product name and price as they are now.
func (s *Service) List(ctx context.Context, owner Owner) ([]Item, error) {
	if !owner.Anonymous() {
		return s.repo.List(ctx, owner.UserID)
	}
	if owner.SessionID == "" {
		return nil, nil
	}

	lines, err := s.sessions.Lines(ctx, owner.SessionID)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		it := Item{ProductID: l.ProductID, Quantity: l.Quantity}
		p, err := s.products.Get(ctx, l.ProductID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			it.ProductMissing = true
		case err != nil:
			return nil, err
		default:
			it.Name, it.Price, it.Stock = p.Name, p.Price, p.Stock
		}
		items = append(items, it)
	}
	return items, nil
}

// Update sets a line's quantity. A quantity of zero or less removes the line;
// removed reports whether that happened.
func (s *Service) Update(ctx context.Context, userID string, itemID int64, qty int) (item Item, removed bool, err error) {
	item, err = s.repo.Get(ctx, userID, itemID)
	if err != nil {
		return Item{}, false, err
	}
	if qty <= 0 {
		if err := s.repo.Delete(ctx, userID, itemID); err != nil {
			return Item{}, false, err
		}
		return item, true, nil
	}
	if qty > item.Stock {
		return Item{}, false, apperr.New(apperr.ErrInsufficientStock, "Only %d items available in stock", item.Stock)
	}
	if err := s.repo.UpdateQuantity(ctx, userID, itemID, qty); err != nil {
		return Item{}, false, err
	}
	item.Quantity = qty
	return item, false, nil
}

func (s *Service) Remove(ctx context.Context, userID string, itemID int64) error {
	return s.repo.Delete(ctx, userID, itemID)
}

func (s *Service) RemoveProduct(ctx context.Context, userID string, productID int64) error {
	return s.repo.DeleteByProduct(ctx, userID, productID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}

// Merge folds anonymous lines into the user's persisted cart. The session's
// lines are taken from the store before anything is written, so they merge at
// most once; if the merge does not commit they are put back. Each resulting
// quantity is capped at current stock; lines whose product is gone or sold out
// are skipped. It returns the number of lines merged.
func (s *Service) Merge(ctx context.Context, userID, sessionID string, lines []Line) (merged int, err error) {
	all := make([]Line, 0, len(lines))
	all = append(all, lines...)

	if sessionID != "" {
		taken, terr := s.sessions.Take(ctx, sessionID)
		if terr != nil {
			return 0, terr
		}
		defer func() {
			if err == nil {
				return
			}
			if rerr := s.sessions.Restore(context.WithoutCancel(ctx), sessionID, taken); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}()
		all = append(all, taken...)
	}
	if len(all) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, l := range all {
		if l.ProductID <= 0 {
			continue
		}
		p, err := s.products.GetWithTx(ctx, tx, l.ProductID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !p.InStock() {
			continue
		}

		qty := min(max(1, l.Quantity), p.Stock)
		if _, err := s.repo.IncrementCappedWithTx(ctx, tx, userID, l.ProductID, qty, p.Stock); err != nil {
			return 0, err
		}
		merged++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return merged, nil
}
