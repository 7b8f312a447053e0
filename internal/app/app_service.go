package app

import (
	"context"
	"fmt"

	"inventory-admin/internal/core"
	"inventory-admin/internal/fx"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type appService struct {
	inventory core.InventoryService
	audit     core.AuditService
	catalog   core.CatalogService
	stock     core.StockService
	users     core.UserService
	rates     *fx.RateProvider
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	inventory core.InventoryService,
	audit core.AuditService,
	catalog core.CatalogService,
	stock core.StockService,
	users core.UserService,
	rates *fx.RateProvider,
) ApplicationService {
	return &appService{
		inventory: inventory,
		audit:     audit,
		catalog:   catalog,
		stock:     stock,
		users:     users,
		rates:     rates,
	}
}

// NewFromStore wires every core service over one LedgerStore.
func NewFromStore(store core.LedgerStore, rates *fx.RateProvider, logger *zap.Logger) ApplicationService {
	return NewAppService(
		core.NewInventoryService(store, logger, nil),
		core.NewAuditService(store),
		core.NewCatalogService(store),
		core.NewStockService(store),
		core.NewUserService(store, logger, nil),
		rates,
	)
}

func (s *appService) AuthenticateUser(ctx context.Context, req LoginRequest) (*UserSession, error) {
	u, err := s.users.Authenticate(ctx, req.Username, req.Password, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	return &UserSession{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
		IsOwner:  u.IsOwner,
	}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int64) (*core.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *appService) ListProducts(ctx context.Context, filter core.ProductFilter) (*ProductListResult, error) {
	products, err := s.catalog.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products, Count: len(products)}, nil
}

func (s *appService) ListPublicProducts(ctx context.Context, filter core.ProductFilter) (*PublicProductListResult, error) {
	products, err := s.catalog.ListPublicProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PublicProductListResult{Products: products, Count: len(products)}, nil
}

func (s *appService) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

func (s *appService) CreateProduct(ctx context.Context, in core.NewProduct, actor core.Actor) (*core.Product, error) {
	return s.inventory.CreateProduct(ctx, in, actor)
}

func (s *appService) UpdateProduct(ctx context.Context, id int64, patch core.ProductPatch, actor core.Actor) (*core.Product, error) {
	return s.inventory.UpdateProduct(ctx, id, patch, actor)
}

func (s *appService) ChangeStock(ctx context.Context, req ChangeStockRequest, actor core.Actor) (*core.Product, error) {
	return s.inventory.ChangeStock(ctx, req.ProductID, req.Delta, req.Reason, actor)
}

func (s *appService) AddProductImage(ctx context.Context, productID int64, url string, actor core.Actor) ([]string, error) {
	return s.inventory.AddProductImage(ctx, productID, url, actor)
}

func (s *appService) GetProductHistory(ctx context.Context, productID int64, limit int) (*HistoryResult, error) {
	events, err := s.audit.GetHistory(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{ProductID: productID, Events: events}, nil
}

func (s *appService) ListSales(ctx context.Context) (*SaleListResult, error) {
	sales, err := s.stock.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return &SaleListResult{Sales: sales}, nil
}

func (s *appService) GetSale(ctx context.Context, id int64) (*core.Sale, error) {
	return s.stock.GetSale(ctx, id)
}

func (s *appService) CreateSale(ctx context.Context, in core.NewSale, actor core.Actor) (*core.Sale, error) {
	return s.inventory.CreateSale(ctx, in, actor)
}

func (s *appService) DeleteSale(ctx context.Context, id int64, actor core.Actor) error {
	return s.inventory.DeleteSale(ctx, id, actor)
}

func (s *appService) ListStock(ctx context.Context) (*StockResult, error) {
	rows, err := s.stock.ListStock(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Rows: rows}, nil
}

func (s *appService) GetStockStats(ctx context.Context) (*core.StockStats, error) {
	return s.stock.Stats(ctx)
}

func (s *appService) ListRefills(ctx context.Context, productID int64) (*RefillListResult, error) {
	refills, err := s.stock.ListRefills(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &RefillListResult{ProductID: productID, Refills: refills}, nil
}

func (s *appService) CreateRefill(ctx context.Context, in core.NewRefill, actor core.Actor) (*core.StockRefill, error) {
	return s.inventory.CreateRefill(ctx, in, actor)
}

func (s *appService) ListUsers(ctx context.Context) (*UserListResult, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []core.User{}
	}
	return &UserListResult{Users: users}, nil
}

func (s *appService) CreateUser(ctx context.Context, in core.NewUser) (*core.User, error) {
	return s.users.CreateUser(ctx, in)
}

func (s *appService) UpdateUser(ctx context.Context, id int64, patch core.UserPatch) (*core.User, error) {
	return s.users.UpdateUser(ctx, id, patch)
}

func (s *appService) DeleteUser(ctx context.Context, id int64, actor core.Actor) error {
	return s.users.DeleteUser(ctx, id, actor)
}

func (s *appService) GetUserChanges(ctx context.Context, userID int64) (*core.UserChanges, error) {
	return s.audit.GetUserChanges(ctx, userID)
}

func (s *appService) ListLogins(ctx context.Context, userID *int64) (*LoginListResult, error) {
	logins, err := s.users.ListLogins(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &LoginListResult{Logins: logins}, nil
}

func (s *appService) GetSettings(ctx context.Context) (*core.Settings, error) {
	return s.users.GetSettings(ctx)
}

func (s *appService) UpdateSettings(ctx context.Context, patch core.SettingsPatch) (*core.Settings, error) {
	settings, err := s.users.UpdateSettings(ctx, patch)
	if err != nil {
		return nil, err
	}
	s.rates.SetFallbackSAR(decimal.NewFromFloat(settings.FallbackSAR))
	return settings, nil
}

func (s *appService) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	return s.users.VerifyPIN(ctx, pin)
}

func (s *appService) GetRates(ctx context.Context, base string) (*fx.Snapshot, error) {
	return s.rates.Rates(ctx, base)
}

func (s *appService) RefreshRates(ctx context.Context, base string) (*fx.Snapshot, error) {
	return s.rates.Refresh(ctx, base)
}

func (s *appService) RatesStatus(ctx context.Context) fx.Status {
	return s.rates.Status()
}

func (s *appService) ConvertPrice(ctx context.Context, cents int64, currency string) (decimal.Decimal, error) {
	amount, err := s.rates.Convert(ctx, cents, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to convert %d cents to %s: %w", cents, currency, err)
	}
	return amount, nil
}
