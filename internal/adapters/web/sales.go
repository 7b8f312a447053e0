package web

import (
	"net/http"

	"inventory-admin/internal/core"
)

// listSales handles GET /api/sales.
func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSales(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getSale handles GET /api/sales/{id}.
func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sale)
}

// createSale handles POST /api/sales.
// Body: { product_id, quantity, buyer_name?, buyer_phone?, buyer_email?, buyer_address? }
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var body core.NewSale
	if !decodeJSON(w, r, &body) {
		return
	}
	sale, err := h.svc.CreateSale(r.Context(), body, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sale)
}

// deleteSale handles DELETE /api/sales/{id}. The sold units return to stock.
func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(r.Context(), id, actorFromRequest(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
