package web

import (
	"net/http"

	"inventory-admin/internal/core"
)

// listStock handles GET /api/stock.
func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListStock(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// stockStats handles GET /api/stock/stats.
func (h *Handler) stockStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStockStats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

// listRefills handles GET /api/stock/refills/{productId}.
func (h *Handler) listRefills(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	result, err := h.svc.ListRefills(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// createRefill handles POST /api/stock/refills.
// Body: { product_id, quantity, notes? }
func (h *Handler) createRefill(w http.ResponseWriter, r *http.Request) {
	var body core.NewRefill
	if !decodeJSON(w, r, &body) {
		return
	}
	refill, err := h.svc.CreateRefill(r.Context(), body, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, refill)
}
