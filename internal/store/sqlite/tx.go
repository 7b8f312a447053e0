package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-admin/internal/core"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

var errRollback = errors.New("rollback")

// ledgerTx owns one pooled connection for the duration of a BEGIN IMMEDIATE
// transaction. The write lock taken at begin serializes units of work, which
// gives LockProduct the same guarantee as a row lock.
type ledgerTx struct {
	store *Store
	conn  *sqlite.Conn
	end   func(*error)
	done  bool
}

func (t *ledgerTx) finish(err error) error {
	t.done = true
	t.end(&err)
	t.store.pool.Put(t.conn)
	t.conn = nil
	return err
}

func (t *ledgerTx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("sqlite store: transaction already finished")
	}
	return t.finish(nil)
}

func (t *ledgerTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	if err := t.finish(errRollback); !errors.Is(err, errRollback) {
		return err
	}
	return nil
}

func (t *ledgerTx) exec(q string, args ...any) error {
	return sqlitex.Execute(t.conn, q, &sqlitex.ExecOptions{Args: args})
}

// insert runs an INSERT and returns the new rowid.
func (t *ledgerTx) insert(q string, args ...any) (int64, error) {
	if err := t.exec(q, args...); err != nil {
		if sqlite.ErrCode(err) == sqlite.ResultConstraintForeignKey {
			return 0, fmt.Errorf("%w: insert references a missing user or product", core.ErrNotFound)
		}
		return 0, err
	}
	return t.conn.LastInsertRowID(), nil
}

func conflict(err error, what string) error {
	if err == nil {
		return nil
	}
	if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
		return fmt.Errorf("%w: %s already exists", core.ErrConflict, what)
	}
	return err
}

func (t *ledgerTx) LockProduct(ctx context.Context, id int64) (*core.Product, error) {
	return getProduct(t.conn, id)
}

func (t *ledgerTx) InsertProduct(ctx context.Context, p *core.Product) error {
	id, err := t.insert(`
		INSERT INTO products (sku, name, description, country, brand, price_cents, cost_cents,
		                      on_hand, sold, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SKU, p.Name, p.Description, p.Country, p.Brand, p.PriceCents, p.CostCents,
		p.OnHand, p.Sold, nullable(p.CreatedBy), micros(p.CreatedAt), micros(p.UpdatedAt))
	if err != nil {
		return conflict(err, "sku "+p.SKU)
	}
	p.ID = id
	return nil
}

func (t *ledgerTx) UpdateProduct(ctx context.Context, p *core.Product) error {
	err := t.exec(`
		UPDATE products
		SET sku = ?, name = ?, description = ?, country = ?, brand = ?,
		    price_cents = ?, cost_cents = ?, on_hand = ?, sold = ?, updated_at = ?
		WHERE id = ?`,
		p.SKU, p.Name, p.Description, p.Country, p.Brand,
		p.PriceCents, p.CostCents, p.OnHand, p.Sold, micros(p.UpdatedAt), p.ID)
	if err != nil {
		return conflict(err, "sku "+p.SKU)
	}
	if t.conn.Changes() == 0 {
		return fmt.Errorf("%w: product %d", core.ErrNotFound, p.ID)
	}
	return nil
}

func (t *ledgerTx) InsertImage(ctx context.Context, productID int64, url string, uploadedBy *int64, at time.Time) error {
	_, err := t.insert(`INSERT INTO product_images (product_id, url, uploaded_by, created_at) VALUES (?, ?, ?, ?)`,
		productID, url, nullable(uploadedBy), micros(at))
	return err
}

func (t *ledgerTx) InsertMovement(ctx context.Context, m *core.StockMovement) (err error) {
	m.ID, err = t.insert(`
		INSERT INTO stock_movements (product_id, user_id, change, reason, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ProductID, nullable(m.UserID), m.Change, string(m.Reason), nullable(m.Reference), micros(m.CreatedAt))
	return err
}

func (t *ledgerTx) InsertEdit(ctx context.Context, e *core.ProductEdit) (err error) {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return fmt.Errorf("failed to encode edit changes: %w", err)
	}
	e.ID, err = t.insert(`INSERT INTO product_edits (product_id, user_id, changes, created_at) VALUES (?, ?, ?, ?)`,
		e.ProductID, nullable(e.UserID), string(changes), micros(e.CreatedAt))
	return err
}

func (t *ledgerTx) InsertSale(ctx context.Context, s *core.Sale) (err error) {
	s.ID, err = t.insert(`
		INSERT INTO sales (product_id, quantity, unit_price_cents, total_cents,
		                   buyer_name, buyer_phone, buyer_email, buyer_address, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ProductID, s.Quantity, s.UnitPriceCents, s.TotalCents,
		s.BuyerName, s.BuyerPhone, s.BuyerEmail, s.BuyerAddress, nullable(s.CreatedBy), micros(s.CreatedAt))
	return err
}

func (t *ledgerTx) LockSale(ctx context.Context, id int64) (*core.Sale, error) {
	var sale *core.Sale
	err := query(t.conn, `
		SELECT id, product_id, quantity, unit_price_cents, total_cents,
		       buyer_name, buyer_phone, buyer_email, buyer_address, created_by, created_at
		FROM sales s WHERE id = ?`, func(stmt *sqlite.Stmt) error {
		v := readSale(stmt)
		sale = &v
		return nil
	}, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale %d: %w", id, err)
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: sale %d", core.ErrNotFound, id)
	}
	return sale, nil
}

func (t *ledgerTx) DeleteSale(ctx context.Context, id int64) error {
	if err := t.exec(`DELETE FROM sales WHERE id = ?`, id); err != nil {
		return err
	}
	if t.conn.Changes() == 0 {
		return fmt.Errorf("%w: sale %d", core.ErrNotFound, id)
	}
	return nil
}

func (t *ledgerTx) InsertRefill(ctx context.Context, r *core.StockRefill) (err error) {
	r.ID, err = t.insert(`INSERT INTO stock_refills (product_id, quantity, notes, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ProductID, r.Quantity, r.Notes, nullable(r.CreatedBy), micros(r.CreatedAt))
	return err
}

func (t *ledgerTx) InsertUser(ctx context.Context, u *core.User) error {
	id, err := t.insert(`
		INSERT INTO users (username, password_hash, role, full_name, is_owner, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.PasswordHash, string(u.Role), u.FullName, boolInt(u.IsOwner), micros(u.CreatedAt))
	if err != nil {
		return conflict(err, "username "+u.Username)
	}
	u.ID = id
	return nil
}

func (t *ledgerTx) UpdateUser(ctx context.Context, u *core.User) error {
	err := t.exec(`UPDATE users SET username = ?, password_hash = ?, role = ?, full_name = ? WHERE id = ?`,
		u.Username, u.PasswordHash, string(u.Role), u.FullName, u.ID)
	if err != nil {
		return conflict(err, "username "+u.Username)
	}
	if t.conn.Changes() == 0 {
		return fmt.Errorf("%w: user %d", core.ErrNotFound, u.ID)
	}
	return nil
}

func (t *ledgerTx) DeleteUser(ctx context.Context, id int64) error {
	if err := t.exec(`DELETE FROM users WHERE id = ?`, id); err != nil {
		return err
	}
	if t.conn.Changes() == 0 {
		return fmt.Errorf("%w: user %d", core.ErrNotFound, id)
	}
	return nil
}

func (t *ledgerTx) CountOwners(ctx context.Context) (int64, error) {
	var n int64
	err := query(t.conn, `SELECT COUNT(*) FROM users WHERE is_owner = 1`, func(stmt *sqlite.Stmt) error {
		n = stmt.ColumnInt64(0)
		return nil
	})
	return n, err
}

func (t *ledgerTx) InsertLogin(ctx context.Context, rec *core.LoginRecord) (err error) {
	rec.ID, err = t.insert(`INSERT INTO login_history (user_id, ip, user_agent, created_at) VALUES (?, ?, ?, ?)`,
		nullable(rec.UserID), rec.IP, rec.UserAgent, micros(rec.CreatedAt))
	return err
}

func (t *ledgerTx) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return t.exec(`UPDATE users SET last_login = ? WHERE id = ?`, micros(at), userID)
}

func (t *ledgerTx) PutSetting(ctx context.Context, key, value string) error {
	return t.exec(`
		INSERT INTO store_settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
}
