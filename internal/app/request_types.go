package app

import "inventory-admin/internal/core"

// LoginRequest carries credentials and the client details recorded in the login history.
type LoginRequest struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

// ChangeStockRequest is a manual stock adjustment. An empty Reason means adjust.
type ChangeStockRequest struct {
	ProductID int64
	Delta     int64
	Reason    core.Reason
}
