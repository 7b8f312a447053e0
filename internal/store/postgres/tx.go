package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-admin/internal/core"

	"github.com/jackc/pgx/v5"
)

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *ledgerTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *ledgerTx) LockProduct(ctx context.Context, id int64) (*core.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (t *ledgerTx) InsertProduct(ctx context.Context, p *core.Product) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, country, brand, price_cents, cost_cents,
		                      on_hand, sold, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		p.SKU, p.Name, p.Description, p.Country, p.Brand, p.PriceCents, p.CostCents,
		p.OnHand, p.Sold, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	return mapError(err, fmt.Sprintf("sku %s", p.SKU))
}

func (t *ledgerTx) UpdateProduct(ctx context.Context, p *core.Product) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products
		SET sku = $2, name = $3, description = $4, country = $5, brand = $6,
		    price_cents = $7, cost_cents = $8, on_hand = $9, sold = $10, updated_at = $11
		WHERE id = $1`,
		p.ID, p.SKU, p.Name, p.Description, p.Country, p.Brand,
		p.PriceCents, p.CostCents, p.OnHand, p.Sold, p.UpdatedAt,
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("sku %s", p.SKU))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", core.ErrNotFound, p.ID)
	}
	return nil
}

func (t *ledgerTx) InsertImage(ctx context.Context, productID int64, url string, uploadedBy *int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO product_images (product_id, url, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4)`, productID, url, uploadedBy, at)
	return mapError(err, "product image")
}

func (t *ledgerTx) InsertMovement(ctx context.Context, m *core.StockMovement) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements (product_id, user_id, change, reason, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.ProductID, m.UserID, m.Change, string(m.Reason), m.Reference, m.CreatedAt,
	).Scan(&m.ID)
	return mapError(err, "stock movement")
}

func (t *ledgerTx) InsertEdit(ctx context.Context, e *core.ProductEdit) error {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return fmt.Errorf("failed to encode edit changes: %w", err)
	}
	err = t.tx.QueryRow(ctx, `
		INSERT INTO product_edits (product_id, user_id, changes, created_at)
		VALUES ($1, $2, $3::jsonb, $4)
		RETURNING id`,
		e.ProductID, e.UserID, string(changes), e.CreatedAt,
	).Scan(&e.ID)
	return mapError(err, "product edit")
}

func (t *ledgerTx) InsertSale(ctx context.Context, s *core.Sale) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sales (product_id, quantity, unit_price_cents, total_cents,
		                   buyer_name, buyer_phone, buyer_email, buyer_address, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		s.ProductID, s.Quantity, s.UnitPriceCents, s.TotalCents,
		s.BuyerName, s.BuyerPhone, s.BuyerEmail, s.BuyerAddress, s.CreatedBy, s.CreatedAt,
	).Scan(&s.ID)
	return mapError(err, "sale")
}

func (t *ledgerTx) LockSale(ctx context.Context, id int64) (*core.Sale, error) {
	var s core.Sale
	err := t.tx.QueryRow(ctx, `
		SELECT id, product_id, quantity, unit_price_cents, total_cents,
		       buyer_name, buyer_phone, buyer_email, buyer_address, created_by, created_at
		FROM sales WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&s.ID, &s.ProductID, &s.Quantity, &s.UnitPriceCents, &s.TotalCents,
		&s.BuyerName, &s.BuyerPhone, &s.BuyerEmail, &s.BuyerAddress, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("sale %d", id))
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func (t *ledgerTx) DeleteSale(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sale %d", core.ErrNotFound, id)
	}
	return nil
}

func (t *ledgerTx) InsertRefill(ctx context.Context, r *core.StockRefill) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO stock_refills (product_id, quantity, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		r.ProductID, r.Quantity, r.Notes, r.CreatedBy, r.CreatedAt,
	).Scan(&r.ID)
	return mapError(err, "refill")
}

func (t *ledgerTx) InsertUser(ctx context.Context, u *core.User) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role, full_name, is_owner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		u.Username, u.PasswordHash, string(u.Role), u.FullName, u.IsOwner, u.CreatedAt,
	).Scan(&u.ID)
	return mapError(err, fmt.Sprintf("username %s", u.Username))
}

func (t *ledgerTx) UpdateUser(ctx context.Context, u *core.User) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE users SET username = $2, password_hash = $3, role = $4, full_name = $5
		WHERE id = $1`,
		u.ID, u.Username, u.PasswordHash, string(u.Role), u.FullName,
	)
	if err != nil {
		return mapError(err, fmt.Sprintf("username %s", u.Username))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", core.ErrNotFound, u.ID)
	}
	return nil
}

func (t *ledgerTx) DeleteUser(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", core.ErrNotFound, id)
	}
	return nil
}

func (t *ledgerTx) CountOwners(ctx context.Context) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_owner`).Scan(&n)
	return n, err
}

func (t *ledgerTx) InsertLogin(ctx context.Context, rec *core.LoginRecord) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO login_history (user_id, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rec.UserID, rec.IP, rec.UserAgent, rec.CreatedAt,
	).Scan(&rec.ID)
	return mapError(err, "login record")
}

func (t *ledgerTx) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, userID, at)
	return err
}

func (t *ledgerTx) PutSetting(ctx context.Context, key, value string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO store_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}
