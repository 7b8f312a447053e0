package core

import (
	"context"
	"time"
)

// Role is the permission level of an admin user. The owner passes every role check.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Allows reports whether a user with role r may act where required is needed.
func (r Role) Allows(required Role) bool {
	return r == RoleOwner || r == required
}

// User represents a store staff account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	FullName     string     `json:"full_name"`
	IsOwner      bool       `json:"is_owner"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LoginRecord is one successful sign-in.
type LoginRecord struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	Username  *string   `json:"username"`
	FullName  *string   `json:"full_name"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// UserMovement is a stock movement made by a user, joined with the product it touched.
// SKU and ProductName are nil once the product has been deleted.
type UserMovement struct {
	StockMovement
	SKU         *string `json:"sku"`
	ProductName *string `json:"product_name"`
}

// UserChanges is the change log of one user.
type UserChanges struct {
	User      User           `json:"user"`
	Movements []UserMovement `json:"movements"`
}

// Settings are the store-wide preferences.
type Settings struct {
	DefaultCurrency string  `json:"default_currency"`
	FallbackSAR     float64 `json:"fx_fallback_sar"`
	HasPIN          bool    `json:"has_pin"`
}

// NewUser is the input for creating a user.
type NewUser struct {
	Username string
	Password string
	Role     Role
	FullName string
}

// UserPatch lists the user fields to change. Unset fields are left alone.
type UserPatch struct {
	Username Optional[string] `json:"username"`
	Password Optional[string] `json:"password"`
	Role     Optional[Role]   `json:"role"`
	FullName Optional[string] `json:"full_name"`
}

// SettingsPatch lists the settings to change. An empty PIN clears it.
type SettingsPatch struct {
	DefaultCurrency Optional[string]  `json:"default_currency"`
	FallbackSAR     Optional[float64] `json:"fx_fallback_sar"`
	PIN             Optional[string]  `json:"pin"`
}

// UserService manages staff accounts, sign-ins and store settings.
type UserService interface {
	// Authenticate checks credentials and records the sign-in.
	Authenticate(ctx context.Context, username, password, ip, userAgent string) (*User, error)

	GetByID(ctx context.Context, userID int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, in NewUser) (*User, error)
	UpdateUser(ctx context.Context, userID int64, patch UserPatch) (*User, error)

	// DeleteUser removes a user. History rows keep their data and lose the user reference.
	DeleteUser(ctx context.Context, userID int64, actor Actor) error

	// ListLogins returns sign-ins newest first, optionally for a single user.
	ListLogins(ctx context.Context, userID *int64) ([]LoginRecord, error)

	GetSettings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, patch SettingsPatch) (*Settings, error)
	VerifyPIN(ctx context.Context, pin string) (bool, error)

	// Seed creates the default owner and admin accounts when no owner exists.
	Seed(ctx context.Context, ownerPassword, adminPassword string) error
}
