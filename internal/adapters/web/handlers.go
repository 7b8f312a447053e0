package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"inventory-admin/internal/app"
	"inventory-admin/internal/core"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Options configures the HTTP adapter.
type Options struct {
	AllowedOrigins []string
	JWTSecret      string
	JWTTTL         time.Duration
	Logger         *zap.Logger
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	logger    *zap.Logger
	jwtSecret string
	jwtTTL    time.Duration
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.JWTTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	h := &Handler{
		svc:       svc,
		logger:    logger,
		jwtSecret: opts.JWTSecret,
		jwtTTL:    ttl,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)
	r.Get("/api/public/products", h.listPublicProducts)

	// ── Signed-in staff ───────────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/auth/me", h.me)
		r.Post("/api/settings/verify-pin", h.verifyPIN)

		// Products
		r.Get("/api/products", h.listProducts)
		r.Post("/api/products", h.createProduct)
		r.Get("/api/products/{id}", h.getProduct)
		r.Put("/api/products/{id}", h.updateProduct)
		r.Post("/api/products/{id}/stock", h.changeStock)
		r.Get("/api/products/{id}/movements", h.productHistory)
		r.Post("/api/products/{id}/images", h.addProductImage)

		// Sales
		r.Get("/api/sales", h.listSales)
		r.Post("/api/sales", h.createSale)
		r.Get("/api/sales/{id}", h.getSale)
		r.Delete("/api/sales/{id}", h.deleteSale)

		// Stock
		r.Get("/api/stock", h.listStock)
		r.Get("/api/stock/stats", h.stockStats)
		r.Get("/api/stock/refills/{productId}", h.listRefills)
		r.Post("/api/stock/refills", h.createRefill)

		// FX
		r.Get("/api/fx/latest", h.fxLatest)
		r.Post("/api/fx/refresh", h.fxRefresh)
		r.Get("/api/fx/status", h.fxStatus)
		r.Get("/api/fx/convert", h.fxConvert)

		// ── Owner only ────────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleOwner))

			r.Get("/api/owner/users", h.listUsers)
			r.Post("/api/owner/users", h.createUser)
			r.Put("/api/owner/users/{id}", h.updateUser)
			r.Delete("/api/owner/users/{id}", h.deleteUser)
			r.Get("/api/owner/users/{id}/changes", h.userChanges)
			r.Get("/api/owner/logins", h.listLogins)
			r.Get("/api/owner/logins/{userId}", h.listLogins)
			r.Get("/api/owner/settings", h.getSettings)
			r.Put("/api/owner/settings", h.updateSettings)
		})
	})

	h.router = r
	return r
}

// health reports liveness.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string    `json:"status"`
		Time   time.Time `json:"time"`
	}
	writeJSON(w, response{Status: "ok", Time: time.Now().UTC()})
}

// pathID parses a positive integer URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
