package web

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
)

// fxLatest handles GET /api/fx/latest?base=.
func (h *Handler) fxLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetRates(r.Context(), r.URL.Query().Get("base"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// fxRefresh handles POST /api/fx/refresh?base=.
func (h *Handler) fxRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RefreshRates(r.Context(), r.URL.Query().Get("base"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// fxStatus handles GET /api/fx/status.
func (h *Handler) fxStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.RatesStatus(r.Context()))
}

// fxConvert handles GET /api/fx/convert?cents=&currency=.
func (h *Handler) fxConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cents, err := strconv.ParseInt(q.Get("cents"), 10, 64)
	if err != nil {
		writeError(w, r, "invalid cents", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	currency := q.Get("currency")
	amount, err := h.svc.ConvertPrice(r.Context(), cents, currency)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	type response struct {
		Cents    int64           `json:"cents"`
		Currency string          `json:"currency"`
		Amount   decimal.Decimal `json:"amount"`
	}
	writeJSON(w, response{Cents: cents, Currency: currency, Amount: amount})
}
