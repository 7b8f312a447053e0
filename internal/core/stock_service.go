package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
)

const (
	// LowStockThreshold is the on_hand level below which a product counts as low stock.
	LowStockThreshold = 10
	recentRefills     = 10
)

// StockService serves the stock overview, refill history and sales lists.
type StockService interface {
	// ListStock returns every product, lowest stock first, with its refill count.
	ListStock(ctx context.Context) ([]StockRow, error)
	ListRefills(ctx context.Context, productID int64) ([]StockRefill, error)
	Stats(ctx context.Context) (*StockStats, error)
	ListSales(ctx context.Context) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (*Sale, error)
}

type stockService struct {
	store LedgerStore
}

func NewStockService(store LedgerStore) StockService {
	return &stockService{store: store}
}

func (s *stockService) ListStock(ctx context.Context) ([]StockRow, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	counts, err := s.store.CountRefills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count refills: %w", err)
	}

	rows := make([]StockRow, len(products))
	for i, p := range products {
		p.Images = nil
		rows[i] = StockRow{Product: p, RefillCount: counts[p.ID]}
	}
	slices.SortStableFunc(rows, func(a, b StockRow) int {
		if c := cmp.Compare(a.OnHand, b.OnHand); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return rows, nil
}

func (s *stockService) ListRefills(ctx context.Context, productID int64) ([]StockRefill, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	refills, err := s.store.ListRefills(ctx, productID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list refills for product %d: %w", productID, err)
	}
	if refills == nil {
		refills = []StockRefill{}
	}
	return refills, nil
}

func (s *stockService) Stats(ctx context.Context) (*StockStats, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	stats := &StockStats{LowStockBelow: LowStockThreshold}
	for _, p := range products {
		stats.TotalProducts++
		stats.TotalStock += p.OnHand
		stats.TotalValue += p.OnHand * p.CostCents
		if p.OnHand < LowStockThreshold {
			stats.LowStock++
		}
		if p.OnHand == 0 {
			stats.OutOfStock++
		}
	}

	stats.RecentRefills, err = s.store.ListRefills(ctx, 0, recentRefills)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent refills: %w", err)
	}
	if stats.RecentRefills == nil {
		stats.RecentRefills = []StockRefill{}
	}
	return stats, nil
}

func (s *stockService) ListSales(ctx context.Context) ([]Sale, error) {
	sales, err := s.store.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	if sales == nil {
		sales = []Sale{}
	}
	return sales, nil
}

func (s *stockService) GetSale(ctx context.Context, id int64) (*Sale, error) {
	return s.store.GetSale(ctx, id)
}
