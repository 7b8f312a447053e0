// Package sqlite implements core.LedgerStore on a single SQLite file.
//
// Writes run inside BEGIN IMMEDIATE transactions, so at most one unit of work
// holds the write lock at a time; other writers wait up to the busy timeout.
// Readers use their own pooled connections and see the last committed state.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inventory-admin/internal/core"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the database file. It is created if missing.
	Path string

	// PoolSize defaults to 4. It must be at least 2 so reads can proceed
	// while a unit of work holds a connection.
	PoolSize int

	Logger *zap.Logger
}

// Store is a core.LedgerStore backed by a pool of SQLite connections.
type Store struct {
	pool   *sqlitex.Pool
	logger *zap.Logger
	path   string
}

var _ core.LedgerStore = (*Store)(nil)

// Open creates the pool, applies connection pragmas and ensures the schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poolSize := cfg.PoolSize
	if poolSize < 2 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", cfg.Path, err)
	}

	s := &Store{pool: pool, logger: logger, path: cfg.Path}
	err = s.read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, schema, nil)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlite store: applying schema: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", cfg.Path), zap.Int("pool_size", poolSize))
	return s, nil
}

// Close waits for borrowed connections and closes the pool.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("sqlite store: closing %s: %w", s.path, err)
	}
	s.logger.Info("sqlite store closed", zap.String("path", s.path))
	return nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// read borrows a connection for the duration of fn.
func (s *Store) read(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

func (s *Store) Begin(ctx context.Context) (core.LedgerTx, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: take: %w", err)
	}
	end, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		s.pool.Put(conn)
		return nil, fmt.Errorf("sqlite store: begin: %w", err)
	}
	return &ledgerTx{store: s, conn: conn, end: end}, nil
}

func query(conn *sqlite.Conn, q string, fn func(stmt *sqlite.Stmt) error, args ...any) error {
	return sqlitex.Execute(conn, q, &sqlitex.ExecOptions{Args: args, ResultFunc: fn})
}

func micros(t time.Time) int64 {
	return t.UnixMicro()
}

func columnTime(stmt *sqlite.Stmt, col int) time.Time {
	return time.UnixMicro(stmt.ColumnInt64(col)).UTC()
}

func columnRef(stmt *sqlite.Stmt, col int) *int64 {
	if stmt.ColumnIsNull(col) {
		return nil
	}
	v := stmt.ColumnInt64(col)
	return &v
}

func columnString(stmt *sqlite.Stmt, col int) *string {
	if stmt.ColumnIsNull(col) {
		return nil
	}
	v := stmt.ColumnText(col)
	return &v
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// nullable turns an optional pointer into a bindable argument.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

const productColumns = `p.id, p.sku, p.name, p.description, p.country, p.brand,
	p.price_cents, p.cost_cents, p.on_hand, p.sold, p.created_by, p.created_at, p.updated_at`

func readProduct(stmt *sqlite.Stmt) core.Product {
	return core.Product{
		ID:          stmt.ColumnInt64(0),
		SKU:         stmt.ColumnText(1),
		Name:        stmt.ColumnText(2),
		Description: stmt.ColumnText(3),
		Country:     stmt.ColumnText(4),
		Brand:       stmt.ColumnText(5),
		PriceCents:  stmt.ColumnInt64(6),
		CostCents:   stmt.ColumnInt64(7),
		OnHand:      stmt.ColumnInt64(8),
		Sold:        stmt.ColumnInt64(9),
		CreatedBy:   columnRef(stmt, 10),
		CreatedAt:   columnTime(stmt, 11),
		UpdatedAt:   columnTime(stmt, 12),
	}
}

func getProduct(conn *sqlite.Conn, id int64) (*core.Product, error) {
	var p *core.Product
	err := query(conn, `SELECT `+productColumns+` FROM products p WHERE p.id = ?`, func(stmt *sqlite.Stmt) error {
		v := readProduct(stmt)
		p = &v
		return nil
	}, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query product %d: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %d", core.ErrNotFound, id)
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (p *core.Product, err error) {
	err = s.read(ctx, func(conn *sqlite.Conn) error {
		p, err = getProduct(conn, id)
		return err
	})
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]core.Product, error) {
	var products []core.Product
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `SELECT `+productColumns+` FROM products p ORDER BY p.updated_at DESC, p.id DESC`,
			func(stmt *sqlite.Stmt) error {
				products = append(products, readProduct(stmt))
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return products, nil
}

func (s *Store) ListImages(ctx context.Context, productIDs ...int64) (map[int64][]string, error) {
	q := `SELECT product_id, url FROM product_images ORDER BY id DESC`
	args := make([]any, len(productIDs))
	if len(productIDs) > 0 {
		for i, id := range productIDs {
			args[i] = id
		}
		q = `SELECT product_id, url FROM product_images
			WHERE product_id IN (` + placeholders(len(productIDs)) + `)
			ORDER BY id DESC`
	}

	images := make(map[int64][]string)
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, q, func(stmt *sqlite.Stmt) error {
			id := stmt.ColumnInt64(0)
			images[id] = append(images[id], stmt.ColumnText(1))
			return nil
		}, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	return images, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

const movementColumns = `m.id, m.product_id, m.user_id, u.username, m.change, m.reason, m.reference, m.created_at`

func readMovement(stmt *sqlite.Stmt) core.StockMovement {
	return core.StockMovement{
		ID:        stmt.ColumnInt64(0),
		ProductID: stmt.ColumnInt64(1),
		UserID:    columnRef(stmt, 2),
		Username:  columnString(stmt, 3),
		Change:    stmt.ColumnInt64(4),
		Reason:    core.Reason(stmt.ColumnText(5)),
		Reference: columnString(stmt, 6),
		CreatedAt: columnTime(stmt, 7),
	}
}

func (s *Store) ListMovements(ctx context.Context, productID int64) ([]core.StockMovement, error) {
	var movements []core.StockMovement
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `
			SELECT `+movementColumns+`
			FROM stock_movements m
			LEFT JOIN users u ON u.id = m.user_id
			WHERE m.product_id = ?
			ORDER BY m.created_at DESC, m.id DESC`,
			func(stmt *sqlite.Stmt) error {
				movements = append(movements, readMovement(stmt))
				return nil
			}, productID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	return movements, nil
}

func (s *Store) ListEdits(ctx context.Context, productID int64) ([]core.ProductEdit, error) {
	var edits []core.ProductEdit
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `
			SELECT e.id, e.product_id, e.user_id, u.username, e.changes, e.created_at
			FROM product_edits e
			LEFT JOIN users u ON u.id = e.user_id
			WHERE e.product_id = ?
			ORDER BY e.created_at DESC, e.id DESC`,
			func(stmt *sqlite.Stmt) error {
				e := core.ProductEdit{
					ID:        stmt.ColumnInt64(0),
					ProductID: stmt.ColumnInt64(1),
					UserID:    columnRef(stmt, 2),
					Username:  columnString(stmt, 3),
					CreatedAt: columnTime(stmt, 5),
				}
				if err := json.Unmarshal([]byte(stmt.ColumnText(4)), &e.Changes); err != nil {
					return fmt.Errorf("decode changes of edit %d: %w", e.ID, err)
				}
				edits = append(edits, e)
				return nil
			}, productID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query product edits: %w", err)
	}
	return edits, nil
}

func (s *Store) ListUserMovements(ctx context.Context, userID int64, limit int) ([]core.UserMovement, error) {
	var out []core.UserMovement
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `
			SELECT `+movementColumns+`, p.sku, p.name
			FROM stock_movements m
			LEFT JOIN users u    ON u.id = m.user_id
			LEFT JOIN products p ON p.id = m.product_id
			WHERE m.user_id = ?
			ORDER BY m.id DESC
			LIMIT ?`,
			func(stmt *sqlite.Stmt) error {
				out = append(out, core.UserMovement{
					StockMovement: readMovement(stmt),
					SKU:           columnString(stmt, 8),
					ProductName:   columnString(stmt, 9),
				})
				return nil
			}, userID, int64(limit))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query user movements: %w", err)
	}
	return out, nil
}

const saleSelect = `
	SELECT s.id, s.product_id, s.quantity, s.unit_price_cents, s.total_cents,
	       s.buyer_name, s.buyer_phone, s.buyer_email, s.buyer_address, s.created_by, s.created_at,
	       p.sku, p.name, p.brand, u.username
	FROM sales s
	JOIN products p   ON p.id = s.product_id
	LEFT JOIN users u ON u.id = s.created_by`

func readSale(stmt *sqlite.Stmt) core.Sale {
	sl := core.Sale{
		ID:             stmt.ColumnInt64(0),
		ProductID:      stmt.ColumnInt64(1),
		Quantity:       stmt.ColumnInt64(2),
		UnitPriceCents: stmt.ColumnInt64(3),
		TotalCents:     stmt.ColumnInt64(4),
		BuyerName:      stmt.ColumnText(5),
		BuyerPhone:     stmt.ColumnText(6),
		BuyerEmail:     stmt.ColumnText(7),
		BuyerAddress:   stmt.ColumnText(8),
		CreatedBy:      columnRef(stmt, 9),
		CreatedAt:      columnTime(stmt, 10),
	}
	if stmt.ColumnCount() > 11 {
		sl.SKU = stmt.ColumnText(11)
		sl.ProductName = stmt.ColumnText(12)
		sl.Brand = stmt.ColumnText(13)
		sl.CreatedByName = columnString(stmt, 14)
	}
	return sl
}

func (s *Store) ListSales(ctx context.Context) ([]core.Sale, error) {
	var sales []core.Sale
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, saleSelect+` ORDER BY s.created_at DESC, s.id DESC`, func(stmt *sqlite.Stmt) error {
			sales = append(sales, readSale(stmt))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*core.Sale, error) {
	var sale *core.Sale
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, saleSelect+` WHERE s.id = ?`, func(stmt *sqlite.Stmt) error {
			v := readSale(stmt)
			sale = &v
			return nil
		}, id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query sale %d: %w", id, err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", core.ErrNotFound, id)
	}
	return sale, nil
}

func (s *Store) ListRefills(ctx context.Context, productID int64, limit int) ([]core.StockRefill, error) {
	q := `
		SELECT r.id, r.product_id, r.quantity, r.notes, r.created_by, r.created_at,
		       u.username, p.sku, p.name
		FROM stock_refills r
		JOIN products p   ON p.id = r.product_id
		LEFT JOIN users u ON u.id = r.created_by
		WHERE (? = 0 OR r.product_id = ?)
		ORDER BY r.created_at DESC, r.id DESC`
	args := []any{productID, productID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, int64(limit))
	}

	var refills []core.StockRefill
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, q, func(stmt *sqlite.Stmt) error {
			refills = append(refills, core.StockRefill{
				ID:          stmt.ColumnInt64(0),
				ProductID:   stmt.ColumnInt64(1),
				Quantity:    stmt.ColumnInt64(2),
				Notes:       stmt.ColumnText(3),
				CreatedBy:   columnRef(stmt, 4),
				CreatedAt:   columnTime(stmt, 5),
				Username:    columnString(stmt, 6),
				SKU:         stmt.ColumnText(7),
				ProductName: stmt.ColumnText(8),
			})
			return nil
		}, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query refills: %w", err)
	}
	return refills, nil
}

func (s *Store) CountRefills(ctx context.Context) (map[int64]int64, error) {
	counts := make(map[int64]int64)
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `SELECT product_id, COUNT(*) FROM stock_refills GROUP BY product_id`,
			func(stmt *sqlite.Stmt) error {
				counts[stmt.ColumnInt64(0)] = stmt.ColumnInt64(1)
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count refills: %w", err)
	}
	return counts, nil
}

const userColumns = `id, username, password_hash, role, full_name, is_owner, last_login, created_at`

func readUser(stmt *sqlite.Stmt) core.User {
	u := core.User{
		ID:           stmt.ColumnInt64(0),
		Username:     stmt.ColumnText(1),
		PasswordHash: stmt.ColumnText(2),
		Role:         core.Role(stmt.ColumnText(3)),
		FullName:     stmt.ColumnText(4),
		IsOwner:      stmt.ColumnInt64(5) != 0,
		CreatedAt:    columnTime(stmt, 7),
	}
	if !stmt.ColumnIsNull(6) {
		t := columnTime(stmt, 6)
		u.LastLogin = &t
	}
	return u
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg any, what string) (*core.User, error) {
	var u *core.User
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `SELECT `+userColumns+` FROM users WHERE `+where, func(stmt *sqlite.Stmt) error {
			v := readUser(stmt)
			u = &v
			return nil
		}, arg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, what)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*core.User, error) {
	return s.getUserWhere(ctx, `id = ?`, id, fmt.Sprintf("user %d", id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.getUserWhere(ctx, `username = ?`, username, fmt.Sprintf("user %q", username))
}

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	var users []core.User
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `SELECT `+userColumns+` FROM users ORDER BY is_owner DESC, username ASC`,
			func(stmt *sqlite.Stmt) error {
				users = append(users, readUser(stmt))
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return users, nil
}

func (s *Store) ListLogins(ctx context.Context, userID *int64, limit int) ([]core.LoginRecord, error) {
	q := `
		SELECT l.id, l.user_id, u.username, u.full_name, l.ip, l.user_agent, l.created_at
		FROM login_history l
		LEFT JOIN users u ON u.id = l.user_id`
	var args []any
	if userID != nil {
		q += ` WHERE l.user_id = ?`
		args = append(args, *userID)
	}
	q += ` ORDER BY l.created_at DESC, l.id DESC LIMIT ?`
	args = append(args, int64(limit))

	var logins []core.LoginRecord
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, q, func(stmt *sqlite.Stmt) error {
			logins = append(logins, core.LoginRecord{
				ID:        stmt.ColumnInt64(0),
				UserID:    columnRef(stmt, 1),
				Username:  columnString(stmt, 2),
				FullName:  columnString(stmt, 3),
				IP:        stmt.ColumnText(4),
				UserAgent: stmt.ColumnText(5),
				CreatedAt: columnTime(stmt, 6),
			})
			return nil
		}, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query login history: %w", err)
	}
	return logins, nil
}

func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	err := s.read(ctx, func(conn *sqlite.Conn) error {
		return query(conn, `SELECT key, value FROM store_settings`, func(stmt *sqlite.Stmt) error {
			settings[stmt.ColumnText(0)] = stmt.ColumnText(1)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	return settings, nil
}
