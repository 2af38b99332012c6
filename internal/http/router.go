package httpapi

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

func NewRouter(h *Handler, allowOrigins []string, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(logger))
	r.Use(chimw.Logger)
	r.Use(middleware.CORS(allowOrigins))
	r.Use(middleware.Identity)

	r.Get("/health", h.Health)
	r.Get("/products/{id}", h.GetProduct)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/add", h.AddToCart)
		r.Post("/merge", h.MergeCart)
		r.Delete("/clear", h.ClearCart)
		r.Delete("/product/{product_id}", h.RemoveCartProduct)
		r.Patch("/{item_id}", h.UpdateCartItem)
		r.Delete("/{item_id}", h.RemoveCartItem)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/admin", h.ListAllOrders)
		r.Put("/admin/update-status/{id}", h.AdminUpdateStatus)
		r.Post("/checkout", h.Checkout)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/cancel", h.CancelOrder)
		r.Post("/{id}/return", h.ReturnOrder)
		r.Patch("/{id}/status", h.SetOrderStatus)
		r.Post("/{id}/apply-discount", h.ApplyDiscount)
	})

	return r
}
