package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// InventoryService is the only component that changes products and their stock counters.
// Each operation is one unit of work that locks the product row before reading it, so
// concurrent writers on the same product are serialized.
type InventoryService interface {
	// CreateProduct inserts a product. Initial counters are taken as given and no movement is written.
	CreateProduct(ctx context.Context, in NewProduct, actor Actor) (*Product, error)

	// UpdateProduct applies a patch and records one ProductEdit listing the fields that changed.
	// on_hand and sold may be patched directly; such edits do not write a StockMovement.
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch, actor Actor) (*Product, error)

	// ChangeStock applies a manual stock delta. Only sale deltas are checked against on_hand;
	// other reasons clamp on_hand at zero while the movement keeps the requested delta.
	ChangeStock(ctx context.Context, id, delta int64, reason Reason, actor Actor) (*Product, error)

	// CreateSale records a sale at the product's current price and takes the units out of stock.
	CreateSale(ctx context.Context, in NewSale, actor Actor) (*Sale, error)

	// DeleteSale removes a sale and puts its units back with a compensating adjust movement.
	DeleteSale(ctx context.Context, saleID int64, actor Actor) error

	// CreateRefill records a restock and adds the units to stock.
	CreateRefill(ctx context.Context, in NewRefill, actor Actor) (*StockRefill, error)

	// AddProductImage attaches an already stored image URL and returns the product's images.
	AddProductImage(ctx context.Context, productID int64, url string, actor Actor) ([]string, error)
}

type inventoryService struct {
	store  LedgerStore
	logger *zap.Logger
	now    func() time.Time
}

// NewInventoryService constructs an InventoryService over store. now defaults to time.Now.
func NewInventoryService(store LedgerStore, logger *zap.Logger, now func() time.Time) InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &inventoryService{store: store, logger: logger, now: now}
}

var skuPattern = regexp.MustCompile(`^[0-9]+$`)

func (s *inventoryService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func validateProduct(p *Product) error {
	if !skuPattern.MatchString(p.SKU) {
		return fmt.Errorf("%w: sku must contain digits only", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.PriceCents < 0 || p.CostCents < 0 {
		return fmt.Errorf("%w: price and cost must not be negative", ErrValidation)
	}
	return nil
}

func validateCounter(field string, v int64) error {
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrValidation, field)
	}
	return nil
}

func (s *inventoryService) CreateProduct(ctx context.Context, in NewProduct, actor Actor) (*Product, error) {
	now := s.timestamp()
	p := &Product{
		SKU:         strings.TrimSpace(in.SKU),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Country:     strings.TrimSpace(in.Country),
		Brand:       strings.TrimSpace(in.Brand),
		PriceCents:  in.PriceCents,
		CostCents:   in.CostCents,
		OnHand:      in.OnHand,
		Sold:        in.Sold,
		CreatedBy:   actor.ref(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := validateCounter("on_hand", p.OnHand); err != nil {
		return nil, err
	}
	if err := validateCounter("sold", p.Sold); err != nil {
		return nil, err
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.InsertProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product: %w", err)
	}

	s.logger.Info("product created",
		zap.Int64("product_id", p.ID),
		zap.String("sku", p.SKU),
		zap.Int64("user_id", actor.UserID))
	p.Images = []string{}
	return p, nil
}

func trimmed(o Optional[string]) Optional[string] {
	if o.Set {
		o.Value = strings.TrimSpace(o.Value)
	}
	return o
}

// patchField copies a set value into dst and records the change when it differs.
func patchField[T comparable](changes map[string]FieldChange, field string, opt Optional[T], dst *T) {
	if !opt.Set || opt.Value == *dst {
		return
	}
	changes[field] = FieldChange{From: *dst, To: opt.Value}
	*dst = opt.Value
}

func (s *inventoryService) UpdateProduct(ctx context.Context, id int64, patch ProductPatch, actor Actor) (*Product, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := tx.LockProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]FieldChange)
	patchField(changes, "sku", trimmed(patch.SKU), &p.SKU)
	patchField(changes, "name", trimmed(patch.Name), &p.Name)
	patchField(changes, "description", trimmed(patch.Description), &p.Description)
	patchField(changes, "country", trimmed(patch.Country), &p.Country)
	patchField(changes, "brand", trimmed(patch.Brand), &p.Brand)
	patchField(changes, "price_cents", patch.PriceCents, &p.PriceCents)
	patchField(changes, "cost_cents", patch.CostCents, &p.CostCents)
	patchField(changes, "on_hand", patch.OnHand, &p.OnHand)
	patchField(changes, "sold", patch.Sold, &p.Sold)

	// Counters are validated only when patched; sold can be negative after a sale delete.
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if patch.OnHand.Set {
		if err := validateCounter("on_hand", p.OnHand); err != nil {
			return nil, err
		}
	}
	if patch.Sold.Set {
		if err := validateCounter("sold", p.Sold); err != nil {
			return nil, err
		}
	}

	now := s.timestamp()
	p.UpdatedAt = now
	if err := tx.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if len(changes) > 0 {
		edit := &ProductEdit{ProductID: id, UserID: actor.ref(), Changes: changes, CreatedAt: now}
		if err := tx.InsertEdit(ctx, edit); err != nil {
			return nil, fmt.Errorf("failed to record product edit: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product update: %w", err)
	}

	s.logger.Info("product updated",
		zap.Int64("product_id", id),
		zap.Int("changed_fields", len(changes)),
		zap.Int64("user_id", actor.UserID))
	return s.withImages(ctx, p)
}

func (s *inventoryService) ChangeStock(ctx context.Context, id, delta int64, reason Reason, actor Actor) (*Product, error) {
	if reason == "" {
		reason = ReasonAdjust
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: change must be a non-zero integer", ErrValidation)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", ErrValidation, reason)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := tx.LockProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if reason == ReasonSale && p.OnHand+delta < 0 {
		return nil, fmt.Errorf("%w: product %d has %d on hand, change %d", ErrInsufficientStock, id, p.OnHand, delta)
	}

	now := s.timestamp()
	p.OnHand = max(0, p.OnHand+delta)
	if reason == ReasonSale && delta < 0 {
		p.Sold += -delta
	}
	p.UpdatedAt = now
	if err := tx.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update stock for product %d: %w", id, err)
	}

	m := &StockMovement{ProductID: id, UserID: actor.ref(), Change: delta, Reason: reason, CreatedAt: now}
	if err := tx.InsertMovement(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock change: %w", err)
	}

	s.logger.Info("stock changed",
		zap.Int64("product_id", id),
		zap.Int64("delta", delta),
		zap.String("reason", string(reason)),
		zap.Int64("on_hand", p.OnHand),
		zap.Int64("user_id", actor.UserID))
	return s.withImages(ctx, p)
}

func (s *inventoryService) CreateSale(ctx context.Context, in NewSale, actor Actor) (*Sale, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}
	buyer := strings.TrimSpace(in.BuyerName)
	if buyer == "" {
		return nil, fmt.Errorf("%w: buyer name is required", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := tx.LockProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if p.OnHand < in.Quantity {
		return nil, fmt.Errorf("%w: product %d has %d on hand, requested %d", ErrInsufficientStock, p.ID, p.OnHand, in.Quantity)
	}

	now := s.timestamp()
	sale := &Sale{
		ProductID:      p.ID,
		Quantity:       in.Quantity,
		UnitPriceCents: p.PriceCents,
		TotalCents:     in.Quantity * p.PriceCents,
		BuyerName:      buyer,
		BuyerPhone:     strings.TrimSpace(in.BuyerPhone),
		BuyerEmail:     strings.TrimSpace(in.BuyerEmail),
		BuyerAddress:   strings.TrimSpace(in.BuyerAddress),
		CreatedBy:      actor.ref(),
		CreatedAt:      now,
	}
	if err := tx.InsertSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to insert sale: %w", err)
	}

	p.OnHand -= in.Quantity
	p.Sold += in.Quantity
	p.UpdatedAt = now
	if err := tx.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update stock for product %d: %w", p.ID, err)
	}

	ref := fmt.Sprintf("Sale #%d", sale.ID)
	m := &StockMovement{ProductID: p.ID, UserID: actor.ref(), Change: -in.Quantity, Reason: ReasonSale, Reference: &ref, CreatedAt: now}
	if err := tx.InsertMovement(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	s.logger.Info("sale recorded",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", p.ID),
		zap.Int64("quantity", sale.Quantity),
		zap.Int64("total_cents", sale.TotalCents),
		zap.Int64("user_id", actor.UserID))
	sale.SKU = p.SKU
	sale.ProductName = p.Name
	sale.Brand = p.Brand
	return sale, nil
}

func (s *inventoryService) DeleteSale(ctx context.Context, saleID int64, actor Actor) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sale, err := tx.LockSale(ctx, saleID)
	if err != nil {
		return err
	}
	p, err := tx.LockProduct(ctx, sale.ProductID)
	if err != nil {
		return err
	}

	now := s.timestamp()
	p.OnHand += sale.Quantity
	p.Sold -= sale.Quantity
	p.UpdatedAt = now
	if err := tx.UpdateProduct(ctx, p); err != nil {
		return fmt.Errorf("failed to restore stock for product %d: %w", p.ID, err)
	}

	ref := fmt.Sprintf("Sale #%d deleted", sale.ID)
	m := &StockMovement{ProductID: p.ID, UserID: actor.ref(), Change: sale.Quantity, Reason: ReasonAdjust, Reference: &ref, CreatedAt: now}
	if err := tx.InsertMovement(ctx, m); err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	if err := tx.DeleteSale(ctx, sale.ID); err != nil {
		return fmt.Errorf("failed to delete sale %d: %w", sale.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sale deletion: %w", err)
	}

	s.logger.Info("sale deleted",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("product_id", p.ID),
		zap.Int64("quantity", sale.Quantity),
		zap.Int64("user_id", actor.UserID))
	return nil
}

func (s *inventoryService) CreateRefill(ctx context.Context, in NewRefill, actor Actor) (*StockRefill, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := tx.LockProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	refill := &StockRefill{
		ProductID: p.ID,
		Quantity:  in.Quantity,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedBy: actor.ref(),
		CreatedAt: now,
	}
	if err := tx.InsertRefill(ctx, refill); err != nil {
		return nil, fmt.Errorf("failed to insert refill: %w", err)
	}

	p.OnHand += in.Quantity
	p.UpdatedAt = now
	if err := tx.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update stock for product %d: %w", p.ID, err)
	}

	ref := fmt.Sprintf("Refill #%d", refill.ID)
	m := &StockMovement{ProductID: p.ID, UserID: actor.ref(), Change: in.Quantity, Reason: ReasonPurchase, Reference: &ref, CreatedAt: now}
	if err := tx.InsertMovement(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit refill: %w", err)
	}

	s.logger.Info("stock refilled",
		zap.Int64("refill_id", refill.ID),
		zap.Int64("product_id", p.ID),
		zap.Int64("quantity", refill.Quantity),
		zap.Int64("user_id", actor.UserID))
	refill.SKU = p.SKU
	refill.ProductName = p.Name
	return refill, nil
}

func (s *inventoryService) AddProductImage(ctx context.Context, productID int64, url string, actor Actor) ([]string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: image url is required", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := tx.LockProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	now := s.timestamp()
	if err := tx.InsertImage(ctx, p.ID, url, actor.ref(), now); err != nil {
		return nil, fmt.Errorf("failed to insert image: %w", err)
	}
	p.UpdatedAt = now
	if err := tx.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to touch product %d: %w", p.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit image: %w", err)
	}

	p, err = s.withImages(ctx, p)
	if err != nil {
		return nil, err
	}
	return p.Images, nil
}

func (s *inventoryService) withImages(ctx context.Context, p *Product) (*Product, error) {
	images, err := s.store.ListImages(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load images for product %d: %w", p.ID, err)
	}
	p.Images = images[p.ID]
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, nil
}
