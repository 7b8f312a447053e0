package app

import "inventory-admin/internal/core"

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name"`
	Role     core.Role `json:"role"`
	IsOwner  bool      `json:"is_owner"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
	Count    int            `json:"count"`
}

// PublicProductListResult is returned by ListPublicProducts.
type PublicProductListResult struct {
	Products []core.PublicProduct `json:"products"`
	Count    int                  `json:"count"`
}

// HistoryResult is returned by GetProductHistory.
type HistoryResult struct {
	ProductID int64               `json:"product_id"`
	Events    []core.HistoryEvent `json:"events"`
}

// SaleListResult is returned by ListSales.
type SaleListResult struct {
	Sales []core.Sale `json:"sales"`
}

// StockResult is returned by ListStock.
type StockResult struct {
	Rows []core.StockRow `json:"rows"`
}

// RefillListResult is returned by ListRefills.
type RefillListResult struct {
	ProductID int64              `json:"product_id"`
	Refills   []core.StockRefill `json:"refills"`
}

// UserListResult is returned by ListUsers.
type UserListResult struct {
	Users []core.User `json:"users"`
}

// LoginListResult is returned by ListLogins.
type LoginListResult struct {
	Logins []core.LoginRecord `json:"logins"`
}
