package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"inventory-admin/internal/app"
	"inventory-admin/internal/core"
)

func productFilter(r *http.Request) core.ProductFilter {
	q := r.URL.Query()
	return core.ProductFilter{
		Query:   q.Get("q"),
		Brand:   q.Get("brand"),
		Country: q.Get("country"),
	}
}

// listPublicProducts handles GET /api/public/products.
func (h *Handler) listPublicProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPublicProducts(r.Context(), productFilter(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listProducts handles GET /api/products?q=&brand=&country=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProducts(r.Context(), productFilter(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getProduct handles GET /api/products/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// createProduct handles POST /api/products.
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var body core.NewProduct
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), body, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

// updateProduct handles PUT /api/products/{id}. Only the keys present in the body change.
func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch core.ProductPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), id, patch, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// changeStock handles POST /api/products/{id}/stock.
// Body: { change, reason? } where reason defaults to adjust.
func (h *Handler) changeStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Change json.Number `json:"change"`
		Reason core.Reason `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	delta, err := body.Change.Int64()
	if err != nil {
		h.writeServiceError(w, r, fmt.Errorf("%w: change must be a non-zero integer", core.ErrValidation))
		return
	}
	p, err := h.svc.ChangeStock(r.Context(), app.ChangeStockRequest{
		ProductID: id,
		Delta:     delta,
		Reason:    body.Reason,
	}, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// productHistory handles GET /api/products/{id}/movements?limit=.
func (h *Handler) productHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, "invalid limit", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		limit = n
	}
	result, err := h.svc.GetProductHistory(r.Context(), id, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// addProductImage handles POST /api/products/{id}/images.
// Body: { url } pointing at an already-stored image.
func (h *Handler) addProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		URL string `json:"url"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	images, err := h.svc.AddProductImage(r.Context(), id, body.URL, actorFromRequest(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	type response struct {
		URL    string   `json:"url"`
		Images []string `json:"images"`
	}
	writeJSONStatus(w, http.StatusCreated, response{URL: body.URL, Images: images})
}
