package httpapi

import "net/http"

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	p, err := h.products.Get(ctx, id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}
