package core

import (
	"context"
	"time"
)

// LedgerStore is the persistence port for products, their stock history and staff accounts.
// Missing rows are reported as ErrNotFound and unique-key clashes as ErrConflict.
type LedgerStore interface {
	// Begin opens a unit of work. Every write happens inside one.
	Begin(ctx context.Context) (LedgerTx, error)

	GetProduct(ctx context.Context, id int64) (*Product, error)
	// ListProducts returns every product, most recently updated first.
	ListProducts(ctx context.Context) ([]Product, error)
	// ListImages returns image URLs per product id, newest first.
	ListImages(ctx context.Context, productIDs ...int64) (map[int64][]string, error)

	// ListMovements and ListEdits return a product's history newest first (created_at, then id).
	ListMovements(ctx context.Context, productID int64) ([]StockMovement, error)
	ListEdits(ctx context.Context, productID int64) ([]ProductEdit, error)
	ListUserMovements(ctx context.Context, userID int64, limit int) ([]UserMovement, error)

	ListSales(ctx context.Context) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (*Sale, error)

	// ListRefills returns refills newest first; productID 0 means all products.
	ListRefills(ctx context.Context, productID int64, limit int) ([]StockRefill, error)
	CountRefills(ctx context.Context) (map[int64]int64, error)

	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListLogins(ctx context.Context, userID *int64, limit int) ([]LoginRecord, error)

	GetSettings(ctx context.Context) (map[string]string, error)
}

// LedgerTx is a single all-or-nothing unit of work. Rollback after Commit is a no-op,
// so callers defer Rollback and Commit once at the end.
type LedgerTx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// LockProduct reads a product and holds its row until the unit of work ends.
	LockProduct(ctx context.Context, id int64) (*Product, error)
	InsertProduct(ctx context.Context, p *Product) error
	// UpdateProduct writes every mutable product column.
	UpdateProduct(ctx context.Context, p *Product) error
	InsertImage(ctx context.Context, productID int64, url string, uploadedBy *int64, at time.Time) error

	InsertMovement(ctx context.Context, m *StockMovement) error
	InsertEdit(ctx context.Context, e *ProductEdit) error

	InsertSale(ctx context.Context, s *Sale) error
	LockSale(ctx context.Context, id int64) (*Sale, error)
	DeleteSale(ctx context.Context, id int64) error

	InsertRefill(ctx context.Context, r *StockRefill) error

	InsertUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id int64) error
	CountOwners(ctx context.Context) (int64, error)
	InsertLogin(ctx context.Context, rec *LoginRecord) error
	SetLastLogin(ctx context.Context, userID int64, at time.Time) error

	PutSetting(ctx context.Context, key, value string) error
}
