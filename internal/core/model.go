package core

import "time"

// Reason classifies a stock movement.
type Reason string

const (
	ReasonSale     Reason = "sale"
	ReasonPurchase Reason = "purchase"
	ReasonAdjust   Reason = "adjust"
)

// Valid reports whether r is one of the known movement reasons.
func (r Reason) Valid() bool {
	switch r {
	case ReasonSale, ReasonPurchase, ReasonAdjust:
		return true
	}
	return false
}

// Actor is the authenticated user on whose behalf a mutation runs.
// A zero UserID means the mutation is not attributed to any user.
type Actor struct {
	UserID   int64
	Username string
	Role     Role
}

func (a Actor) ref() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// Product is a sellable item and its current stock counters.
type Product struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Country     string    `json:"country"`
	Brand       string    `json:"brand"`
	PriceCents  int64     `json:"price_cents"`
	CostCents   int64     `json:"cost_cents"`
	OnHand      int64     `json:"on_hand"`
	Sold        int64     `json:"sold"`
	CreatedBy   *int64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Images      []string  `json:"images"`
}

// PublicProduct is the catalog view of a product exposed without authentication.
type PublicProduct struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Country     string    `json:"country"`
	Brand       string    `json:"brand"`
	PriceCents  int64     `json:"price_cents"`
	OnHand      int64     `json:"on_hand"`
	Sold        int64     `json:"sold"`
	UpdatedAt   time.Time `json:"updated_at"`
	Images      []string  `json:"images"`
}

// Public strips fields that are not shown in the public catalog.
func (p Product) Public() PublicProduct {
	return PublicProduct{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Country:     p.Country,
		Brand:       p.Brand,
		PriceCents:  p.PriceCents,
		OnHand:      p.OnHand,
		Sold:        p.Sold,
		UpdatedAt:   p.UpdatedAt,
		Images:      p.Images,
	}
}

// StockMovement is one append-only entry in a product's stock ledger.
// Change holds the requested delta even when on_hand was clamped at zero.
type StockMovement struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    *int64    `json:"user_id"`
	Username  *string   `json:"username"`
	Change    int64     `json:"change"`
	Reason    Reason    `json:"reason"`
	Reference *string   `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// FieldChange is the before/after pair of one edited product field.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ProductEdit records the tracked fields changed by one product update.
type ProductEdit struct {
	ID        int64                  `json:"id"`
	ProductID int64                  `json:"product_id"`
	UserID    *int64                 `json:"user_id"`
	Username  *string                `json:"username"`
	Changes   map[string]FieldChange `json:"changes"`
	CreatedAt time.Time              `json:"created_at"`
}

// Sale is a recorded sale of one product line.
type Sale struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	Quantity       int64     `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	TotalCents     int64     `json:"total_cents"`
	BuyerName      string    `json:"buyer_name"`
	BuyerPhone     string    `json:"buyer_phone"`
	BuyerEmail     string    `json:"buyer_email"`
	BuyerAddress   string    `json:"buyer_address"`
	CreatedBy      *int64    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`

	// Read-side joins, empty on writes.
	SKU           string  `json:"sku,omitempty"`
	ProductName   string  `json:"product_name,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	CreatedByName *string `json:"created_by_name,omitempty"`
}

// StockRefill is a recorded restock of one product.
type StockRefill struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Notes     string    `json:"notes"`
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`

	Username    *string `json:"username,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	ProductName string  `json:"product_name,omitempty"`
}
