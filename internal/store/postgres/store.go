// Package postgres implements core.LedgerStore on PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"inventory-admin/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a core.LedgerStore backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps pool. The schema in migrations/ must already be applied.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ core.LedgerStore = (*Store)(nil)

func (s *Store) Begin(ctx context.Context) (core.LedgerTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &ledgerTx{tx: tx}, nil
}

const productColumns = `p.id, p.sku, p.name, p.description, p.country, p.brand,
	p.price_cents, p.cost_cents, p.on_hand, p.sold, p.created_by, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (*core.Product, error) {
	var p core.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Country, &p.Brand,
		&p.PriceCents, &p.CostCents, &p.OnHand, &p.Sold, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*core.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products p ORDER BY p.updated_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *Store) ListImages(ctx context.Context, productIDs ...int64) (map[int64][]string, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(productIDs) == 0 {
		rows, err = s.pool.Query(ctx, `SELECT product_id, url FROM product_images ORDER BY id DESC`)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT product_id, url FROM product_images
			WHERE product_id = ANY($1)
			ORDER BY id DESC`, productIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	images := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var url string
		if err := rows.Scan(&id, &url); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images[id] = append(images[id], url)
	}
	return images, rows.Err()
}

func (s *Store) ListMovements(ctx context.Context, productID int64) ([]core.StockMovement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.product_id, m.user_id, u.username, m.change, m.reason, m.reference, m.created_at
		FROM stock_movements m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.product_id = $1
		ORDER BY m.created_at DESC, m.id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []core.StockMovement
	for rows.Next() {
		var m core.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.UserID, &m.Username, &m.Change, &m.Reason, &m.Reference, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) ListEdits(ctx context.Context, productID int64) ([]core.ProductEdit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.product_id, e.user_id, u.username, e.changes, e.created_at
		FROM product_edits e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.product_id = $1
		ORDER BY e.created_at DESC, e.id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query product edits: %w", err)
	}
	defer rows.Close()

	var edits []core.ProductEdit
	for rows.Next() {
		var e core.ProductEdit
		var raw []byte
		if err := rows.Scan(&e.ID, &e.ProductID, &e.UserID, &e.Username, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product edit: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Changes); err != nil {
			return nil, fmt.Errorf("failed to decode changes of edit %d: %w", e.ID, err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

func (s *Store) ListUserMovements(ctx context.Context, userID int64, limit int) ([]core.UserMovement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.product_id, m.user_id, u.username, m.change, m.reason, m.reference, m.created_at,
		       p.sku, p.name
		FROM stock_movements m
		LEFT JOIN users u    ON u.id = m.user_id
		LEFT JOIN products p ON p.id = m.product_id
		WHERE m.user_id = $1
		ORDER BY m.id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user movements: %w", err)
	}
	defer rows.Close()

	var out []core.UserMovement
	for rows.Next() {
		var um core.UserMovement
		m := &um.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.UserID, &m.Username, &m.Change, &m.Reason, &m.Reference, &m.CreatedAt,
			&um.SKU, &um.ProductName); err != nil {
			return nil, fmt.Errorf("failed to scan user movement: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, um)
	}
	return out, rows.Err()
}

const saleSelect = `
	SELECT s.id, s.product_id, s.quantity, s.unit_price_cents, s.total_cents,
	       s.buyer_name, s.buyer_phone, s.buyer_email, s.buyer_address, s.created_by, s.created_at,
	       p.sku, p.name, p.brand, u.username
	FROM sales s
	JOIN products p   ON p.id = s.product_id
	LEFT JOIN users u ON u.id = s.created_by`

func scanSale(row pgx.Row) (*core.Sale, error) {
	var sl core.Sale
	err := row.Scan(&sl.ID, &sl.ProductID, &sl.Quantity, &sl.UnitPriceCents, &sl.TotalCents,
		&sl.BuyerName, &sl.BuyerPhone, &sl.BuyerEmail, &sl.BuyerAddress, &sl.CreatedBy, &sl.CreatedAt,
		&sl.SKU, &sl.ProductName, &sl.Brand, &sl.CreatedByName)
	if err != nil {
		return nil, err
	}
	sl.CreatedAt = sl.CreatedAt.UTC()
	return &sl, nil
}

func (s *Store) ListSales(ctx context.Context) ([]core.Sale, error) {
	rows, err := s.pool.Query(ctx, saleSelect+` ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []core.Sale
	for rows.Next() {
		sl, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sl)
	}
	return sales, rows.Err()
}

func (s *Store) GetSale(ctx context.Context, id int64) (*core.Sale, error) {
	sl, err := scanSale(s.pool.QueryRow(ctx, saleSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("sale %d", id))
	}
	return sl, nil
}

func (s *Store) ListRefills(ctx context.Context, productID int64, limit int) ([]core.StockRefill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.product_id, r.quantity, r.notes, r.created_by, r.created_at,
		       u.username, p.sku, p.name
		FROM stock_refills r
		JOIN products p   ON p.id = r.product_id
		LEFT JOIN users u ON u.id = r.created_by
		WHERE ($1::bigint = 0 OR r.product_id = $1)
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT NULLIF($2::int, 0)`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refills: %w", err)
	}
	defer rows.Close()

	var refills []core.StockRefill
	for rows.Next() {
		var r core.StockRefill
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Quantity, &r.Notes, &r.CreatedBy, &r.CreatedAt,
			&r.Username, &r.SKU, &r.ProductName); err != nil {
			return nil, fmt.Errorf("failed to scan refill: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		refills = append(refills, r)
	}
	return refills, rows.Err()
}

func (s *Store) CountRefills(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_id, COUNT(*) FROM stock_refills GROUP BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count refills: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan refill count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

const userColumns = `id, username, password_hash, role, full_name, is_owner, last_login, created_at`

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &u.IsOwner, &u.LastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	if u.LastLogin != nil {
		t := u.LastLogin.UTC()
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("user %q", username))
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY is_owner DESC, username ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) ListLogins(ctx context.Context, userID *int64, limit int) ([]core.LoginRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.user_id, u.username, u.full_name, l.ip, l.user_agent, l.created_at
		FROM login_history l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE ($1::bigint IS NULL OR l.user_id = $1)
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login history: %w", err)
	}
	defer rows.Close()

	var logins []core.LoginRecord
	for rows.Next() {
		var l core.LoginRecord
		if err := rows.Scan(&l.ID, &l.UserID, &l.Username, &l.FullName, &l.IP, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan login: %w", err)
		}
		l.CreatedAt = l.CreatedAt.UTC()
		logins = append(logins, l)
	}
	return logins, rows.Err()
}

func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM store_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}
