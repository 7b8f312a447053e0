package core

import "time"

// NewProduct is the input for creating a product.
type NewProduct struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Country     string `json:"country"`
	Brand       string `json:"brand"`
	PriceCents  int64  `json:"price_cents"`
	CostCents   int64  `json:"cost_cents"`
	OnHand      int64  `json:"on_hand"`
	Sold        int64  `json:"sold"`
}

// ProductPatch lists the product fields to change. Unset fields keep their value;
// a set empty string clears an optional text field.
type ProductPatch struct {
	SKU         Optional[string] `json:"sku"`
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	Country     Optional[string] `json:"country"`
	Brand       Optional[string] `json:"brand"`
	PriceCents  Optional[int64]  `json:"price_cents"`
	CostCents   Optional[int64]  `json:"cost_cents"`
	OnHand      Optional[int64]  `json:"on_hand"`
	Sold        Optional[int64]  `json:"sold"`
}

// NewSale is the input for recording a sale.
type NewSale struct {
	ProductID    int64  `json:"product_id"`
	Quantity     int64  `json:"quantity"`
	BuyerName    string `json:"buyer_name"`
	BuyerPhone   string `json:"buyer_phone"`
	BuyerEmail   string `json:"buyer_email"`
	BuyerAddress string `json:"buyer_address"`
}

// NewRefill is the input for recording a restock.
type NewRefill struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Notes     string `json:"notes"`
}

// EventKind tells the two history sources apart.
type EventKind string

const (
	EventStock EventKind = "stock"
	EventEdit  EventKind = "edit"
)

// HistoryEvent is one entry of a product's unified audit trail.
// Stock events carry Change, Reason and Reference; edit events carry Changes.
type HistoryEvent struct {
	Kind      EventKind              `json:"type"`
	ID        int64                  `json:"id"`
	ProductID int64                  `json:"product_id"`
	UserID    *int64                 `json:"user_id"`
	Username  *string                `json:"username"`
	CreatedAt time.Time              `json:"created_at"`
	Change    int64                  `json:"change,omitempty"`
	Reason    Reason                 `json:"reason,omitempty"`
	Reference *string                `json:"reference,omitempty"`
	Changes   map[string]FieldChange `json:"changes,omitempty"`
}

// ProductFilter narrows a catalog listing. Every set field is a case-insensitive substring match.
type ProductFilter struct {
	Query   string
	Brand   string
	Country string
}

// StockRow is one line of the stock overview.
type StockRow struct {
	Product
	RefillCount int64 `json:"refill_count"`
}

// StockStats summarises stock across all products.
type StockStats struct {
	TotalProducts int64         `json:"total_products"`
	TotalStock    int64         `json:"total_stock"`
	LowStock      int64         `json:"low_stock"`
	OutOfStock    int64         `json:"out_of_stock"`
	TotalValue    int64         `json:"total_value_cents"`
	LowStockBelow int64         `json:"low_stock_threshold"`
	RecentRefills []StockRefill `json:"recent_refills"`
}
