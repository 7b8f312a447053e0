package app

import (
	"context"

	"inventory-admin/internal/core"
	"inventory-admin/internal/fx"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// AuthenticateUser verifies credentials, records the sign-in and returns a session.
	AuthenticateUser(ctx context.Context, req LoginRequest) (*UserSession, error)

	// GetUser returns a user profile by ID.
	GetUser(ctx context.Context, userID int64) (*core.User, error)

	// ── Catalog ───────────────────────────────────────────────────────────────

	ListProducts(ctx context.Context, filter core.ProductFilter) (*ProductListResult, error)
	ListPublicProducts(ctx context.Context, filter core.ProductFilter) (*PublicProductListResult, error)
	GetProduct(ctx context.Context, id int64) (*core.Product, error)

	// ── Inventory ─────────────────────────────────────────────────────────────

	CreateProduct(ctx context.Context, in core.NewProduct, actor core.Actor) (*core.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch core.ProductPatch, actor core.Actor) (*core.Product, error)
	ChangeStock(ctx context.Context, req ChangeStockRequest, actor core.Actor) (*core.Product, error)
	AddProductImage(ctx context.Context, productID int64, url string, actor core.Actor) ([]string, error)

	// GetProductHistory returns the merged stock and edit history of a product, newest first.
	GetProductHistory(ctx context.Context, productID int64, limit int) (*HistoryResult, error)

	// ── Sales ─────────────────────────────────────────────────────────────────

	ListSales(ctx context.Context) (*SaleListResult, error)
	GetSale(ctx context.Context, id int64) (*core.Sale, error)
	CreateSale(ctx context.Context, in core.NewSale, actor core.Actor) (*core.Sale, error)
	DeleteSale(ctx context.Context, id int64, actor core.Actor) error

	// ── Stock ─────────────────────────────────────────────────────────────────

	ListStock(ctx context.Context) (*StockResult, error)
	GetStockStats(ctx context.Context) (*core.StockStats, error)
	ListRefills(ctx context.Context, productID int64) (*RefillListResult, error)
	CreateRefill(ctx context.Context, in core.NewRefill, actor core.Actor) (*core.StockRefill, error)

	// ── Owner administration ──────────────────────────────────────────────────

	ListUsers(ctx context.Context) (*UserListResult, error)
	CreateUser(ctx context.Context, in core.NewUser) (*core.User, error)
	UpdateUser(ctx context.Context, id int64, patch core.UserPatch) (*core.User, error)
	DeleteUser(ctx context.Context, id int64, actor core.Actor) error
	GetUserChanges(ctx context.Context, userID int64) (*core.UserChanges, error)
	ListLogins(ctx context.Context, userID *int64) (*LoginListResult, error)
	GetSettings(ctx context.Context) (*core.Settings, error)

	// UpdateSettings stores the settings and applies the FX fallback rate immediately.
	UpdateSettings(ctx context.Context, patch core.SettingsPatch) (*core.Settings, error)

	// VerifyPIN reports whether pin matches the store PIN. It is false when no PIN is set.
	VerifyPIN(ctx context.Context, pin string) (bool, error)

	// ── FX ────────────────────────────────────────────────────────────────────

	GetRates(ctx context.Context, base string) (*fx.Snapshot, error)
	RefreshRates(ctx context.Context, base string) (*fx.Snapshot, error)
	RatesStatus(ctx context.Context) fx.Status
	ConvertPrice(ctx context.Context, cents int64, currency string) (decimal.Decimal, error)
}
