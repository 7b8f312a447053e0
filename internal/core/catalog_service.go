package core

import (
	"context"
	"fmt"
	"strings"
)

// CatalogService lists products for the admin screens and the public storefront.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	// ListPublicProducts is ListProducts without cost and ownership fields.
	ListPublicProducts(ctx context.Context, filter ProductFilter) ([]PublicProduct, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

type catalogService struct {
	store LedgerStore
}

func NewCatalogService(store LedgerStore) CatalogService {
	return &catalogService{store: store}
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	all, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	f := filter.normalized()
	out := make([]Product, 0, len(all))
	ids := make([]int64, 0, len(all))
	for _, p := range all {
		if f.matches(&p) {
			out = append(out, p)
			ids = append(ids, p.ID)
		}
	}
	if len(out) == 0 {
		return out, nil
	}

	images, err := s.store.ListImages(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to list product images: %w", err)
	}
	for i := range out {
		out[i].Images = images[out[i].ID]
		if out[i].Images == nil {
			out[i].Images = []string{}
		}
	}
	return out, nil
}

func (s *catalogService) ListPublicProducts(ctx context.Context, filter ProductFilter) ([]PublicProduct, error) {
	products, err := s.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]PublicProduct, len(products))
	for i, p := range products {
		out[i] = p.Public()
	}
	return out, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.store.ListImages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load images for product %d: %w", id, err)
	}
	p.Images = images[id]
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, nil
}

func (f ProductFilter) normalized() ProductFilter {
	return ProductFilter{
		Query:   strings.ToLower(strings.TrimSpace(f.Query)),
		Brand:   strings.ToLower(strings.TrimSpace(f.Brand)),
		Country: strings.ToLower(strings.TrimSpace(f.Country)),
	}
}

// matches expects a normalized filter.
func (f ProductFilter) matches(p *Product) bool {
	if f.Query != "" &&
		!containsFold(p.SKU, f.Query) &&
		!containsFold(p.Name, f.Query) &&
		!containsFold(p.Brand, f.Query) &&
		!containsFold(p.Country, f.Query) {
		return false
	}
	if f.Brand != "" && !containsFold(p.Brand, f.Brand) {
		return false
	}
	if f.Country != "" && !containsFold(p.Country, f.Country) {
		return false
	}
	return true
}

func containsFold(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}
