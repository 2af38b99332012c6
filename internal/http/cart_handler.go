package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
)

// AddToCart works for both users and anonymous sessions. An anonymous caller
// without a session gets a fresh one back in the X-Session-Id header.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req lineRequest
	if !h.decode(w, r, &req) {
		return
	}
	productID := req.productID()
	if productID <= 0 {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	owner := cartOwner(r)
	if owner.Anonymous() && owner.SessionID == "" {
		owner.SessionID = uuid.NewString()
	}
	if owner.Anonymous() {
		w.Header().Set(middleware.HeaderSessionID, owner.SessionID)
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.carts.Add(ctx, owner, productID, req.quantity()); err != nil {
		writeAppError(w, h.logger, err)
		return
	}

	if owner.Anonymous() {
		writeMessage(w, "added to session cart")
		return
	}
	writeMessage(w, "added to user cart")
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	items, err := h.carts.List(ctx, cartOwner(r))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	var req updateCartRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	item, removed, err := h.carts.Update(ctx, id.UserID, itemID, *req.Quantity)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if removed {
		writeMessage(w, "Item removed")
		return
	}
	writeJSON(w, http.StatusOK, cartLineResponse{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity})
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.carts.Remove(ctx, id.UserID, itemID); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeMessage(w, "Item removed")
}

func (h *Handler) RemoveCartProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "product_id")
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.carts.RemoveProduct(ctx, id.UserID, productID); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeMessage(w, "Item removed")
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if err := h.carts.Clear(ctx, id.UserID); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeMessage(w, "Cart cleared")
}

// MergeCart folds the lines sent by the client and the anonymous cart named by
// the X-Session-Id header into the user's persisted cart.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req mergeCartRequest
	if !h.decode(w, r, &req) {
		return
	}

	lines := make([]cart.Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, cart.Line{ProductID: it.productID(), Quantity: it.quantity()})
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	merged, err := h.carts.Merge(ctx, id.UserID, middleware.GetSessionID(r.Context()), lines)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"merged_items": merged})
}

func cartOwner(r *http.Request) cart.Owner {
	return cart.Owner{
		UserID:    auth.FromContext(r.Context()).UserID,
		SessionID: middleware.GetSessionID(r.Context()),
	}
}
