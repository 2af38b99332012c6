package httpapi

import (
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := order.CheckoutInput{Shipping: req.Shipping.toShipping()}
	for _, it := range req.Items {
		in.Items = append(in.Items, order.LineInput{ProductID: it.productID(), Quantity: it.quantity()})
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.Checkout(ctx, id, in)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(*o))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orders, err := h.orders.List(ctx, id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	orders, err := h.orders.ListAll(ctx, id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.Get(ctx, id, orderID)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if _, err := h.orders.Cancel(ctx, id, orderID); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeMessage(w, "Order cancelled successfully.")
}

func (h *Handler) ReturnOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if _, err := h.orders.RequestReturn(ctx, id, orderID); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeMessage(w, "Return request submitted. Waiting for approval.")
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	o, ok := h.setStatus(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

// AdminUpdateStatus is the older admin endpoint; it reports the change as a
// message rather than the full order.
func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	o, ok := h.setStatus(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Status updated",
		"order_id":   o.ID,
		"new_status": o.Status.String(),
	})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	id, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return nil, false
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.SetStatus(ctx, id, orderID, req.Status)
	if err != nil {
		writeAppError(w, h.logger, err)
		return nil, false
	}
	return o, true
}

func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	o, err := h.orders.ApplyDiscount(ctx, id, orderID, *req.DiscountPercentage)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}
