package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

type ProductReader interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

type CartService interface {
	Add(ctx context.Context, owner cart.Owner, productID int64, qty int) error
	List(ctx context.Context, owner cart.Owner) ([]cart.Item, error)
	Update(ctx context.Context, userID string, itemID int64, qty int) (cart.Item, bool, error)
	Remove(ctx context.Context, userID string, itemID int64) error
	RemoveProduct(ctx context.Context, userID string, productID int64) error
	Clear(ctx context.Context, userID string) error
	Merge(ctx context.Context, userID, sessionID string, lines []cart.Line) (int, error)
}

type OrderService interface {
	Checkout(ctx context.Context, id auth.Identity, in order.CheckoutInput) (*order.Order, error)
	Get(ctx context.Context, id auth.Identity, orderID int64) (*order.Order, error)
	List(ctx context.Context, id auth.Identity) ([]order.Order, error)
	ListAll(ctx context.Context, id auth.Identity) ([]order.Order, error)
	Cancel(ctx context.Context, id auth.Identity, orderID int64) (*order.Order, error)
	RequestReturn(ctx context.Context, id auth.Identity, orderID int64) (*order.Order, error)
	SetStatus(ctx context.Context, id auth.Identity, orderID int64, status string) (*order.Order, error)
	ApplyDiscount(ctx context.Context, id auth.Identity, orderID int64, pct decimal.Decimal) (*order.Order, error)
}

type Handler struct {
	products ProductReader
	carts    CartService
	orders   OrderService
	logger   *log.Logger
	validate *validator.Validate
	timeout  time.Duration
}

func NewHandler(products ProductReader, carts CartService, orders OrderService, logger *log.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		logger:   logger,
		validate: newValidator(),
		timeout:  timeout,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront",
	})
}

// decode reads a JSON body into dst and validates it. An empty body leaves
// dst at its zero value before validation.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

// requireUser writes 401 and returns false for anonymous callers.
func requireUser(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id := auth.FromContext(r.Context())
	if !id.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return id, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
