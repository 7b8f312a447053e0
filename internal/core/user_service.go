package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// LoginHistoryLimit caps the sign-ins returned by ListLogins.
const LoginHistoryLimit = 1000

// Settings keys.
const (
	SettingDefaultCurrency = "default_currency"
	SettingFallbackSAR     = "fx_fallback_SAR"
	SettingStorePINHash    = "store_pin_hash"
)

// Defaults applied when a setting has never been stored.
const (
	DefaultCurrency    = "USD"
	DefaultFallbackSAR = 3.75
)

type userService struct {
	store  LedgerStore
	logger *zap.Logger
	now    func() time.Time
}

// NewUserService constructs a UserService over store. now defaults to time.Now.
func NewUserService(store LedgerStore, logger *zap.Logger, now func() time.Time) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &userService{store: store, logger: logger, now: now}
}

func (s *userService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

func (s *userService) Authenticate(ctx context.Context, username, password, ip, userAgent string) (*User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	now := s.timestamp()
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SetLastLogin(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	id := u.ID
	rec := &LoginRecord{UserID: &id, IP: ip, UserAgent: userAgent, CreatedAt: now}
	if err := tx.InsertLogin(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit login: %w", err)
	}

	u.LastLogin = &now
	s.logger.Info("user signed in", zap.Int64("user_id", u.ID), zap.String("ip", ip))
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int64) (*User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *userService) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func validRole(r Role) error {
	if r != RoleOwner && r != RoleAdmin {
		return fmt.Errorf("%w: invalid role %q", ErrValidation, r)
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	if in.Role == "" {
		in.Role = RoleAdmin
	}
	if err := validRole(in.Role); err != nil {
		return nil, err
	}
	hash, err := hashSecret(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username:     username,
		PasswordHash: hash,
		Role:         in.Role,
		FullName:     strings.TrimSpace(in.FullName),
		CreatedAt:    s.timestamp(),
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.InsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}

	s.logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID int64, patch UserPatch) (*User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsOwner {
		return nil, fmt.Errorf("%w: cannot modify owner record", ErrValidation)
	}

	if patch.Username.Set {
		name := strings.TrimSpace(patch.Username.Value)
		if name == "" {
			return nil, fmt.Errorf("%w: username must not be empty", ErrValidation)
		}
		u.Username = name
	}
	if patch.Role.Set {
		if err := validRole(patch.Role.Value); err != nil {
			return nil, err
		}
		u.Role = patch.Role.Value
	}
	if patch.FullName.Set {
		u.FullName = strings.TrimSpace(patch.FullName.Value)
	}
	if patch.Password.Set && patch.Password.Value != "" {
		if u.PasswordHash, err = hashSecret(patch.Password.Value); err != nil {
			return nil, err
		}
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit user update: %w", err)
	}

	s.logger.Info("user updated", zap.Int64("user_id", u.ID))
	return u, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID int64, actor Actor) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsOwner {
		return fmt.Errorf("%w: cannot delete owner", ErrValidation)
	}
	if u.ID == actor.UserID {
		return fmt.Errorf("%w: cannot delete yourself", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user deletion: %w", err)
	}

	s.logger.Info("user deleted", zap.Int64("user_id", userID), zap.Int64("by_user_id", actor.UserID))
	return nil
}

func (s *userService) ListLogins(ctx context.Context, userID *int64) ([]LoginRecord, error) {
	if userID != nil {
		if _, err := s.store.GetUser(ctx, *userID); err != nil {
			return nil, err
		}
	}
	logins, err := s.store.ListLogins(ctx, userID, LoginHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list logins: %w", err)
	}
	if logins == nil {
		logins = []LoginRecord{}
	}
	return logins, nil
}

func (s *userService) GetSettings(ctx context.Context) (*Settings, error) {
	kv, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	settings := &Settings{DefaultCurrency: DefaultCurrency, FallbackSAR: DefaultFallbackSAR}
	if v := kv[SettingDefaultCurrency]; v != "" {
		settings.DefaultCurrency = v
	}
	if v, err := strconv.ParseFloat(kv[SettingFallbackSAR], 64); err == nil && v > 0 {
		settings.FallbackSAR = v
	}
	settings.HasPIN = kv[SettingStorePINHash] != ""
	return settings, nil
}

func (s *userService) UpdateSettings(ctx context.Context, patch SettingsPatch) (*Settings, error) {
	updates := make(map[string]string)
	if patch.DefaultCurrency.Set {
		cur := strings.ToUpper(strings.TrimSpace(patch.DefaultCurrency.Value))
		if len(cur) != 3 {
			return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrValidation)
		}
		updates[SettingDefaultCurrency] = cur
	}
	if patch.FallbackSAR.Set {
		if patch.FallbackSAR.Value <= 0 {
			return nil, fmt.Errorf("%w: fx fallback must be positive", ErrValidation)
		}
		updates[SettingFallbackSAR] = strconv.FormatFloat(patch.FallbackSAR.Value, 'f', -1, 64)
	}
	if patch.PIN.Set {
		updates[SettingStorePINHash] = ""
		if patch.PIN.Value != "" {
			hash, err := hashSecret(patch.PIN.Value)
			if err != nil {
				return nil, err
			}
			updates[SettingStorePINHash] = hash
		}
	}

	if len(updates) > 0 {
		tx, err := s.store.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		for k, v := range updates {
			if err := tx.PutSetting(ctx, k, v); err != nil {
				return nil, fmt.Errorf("failed to store setting %s: %w", k, err)
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit settings: %w", err)
		}
		s.logger.Info("settings updated", zap.Int("keys", len(updates)))
	}
	return s.GetSettings(ctx)
}

func (s *userService) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	kv, err := s.store.GetSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load settings: %w", err)
	}
	hash := kv[SettingStorePINHash]
	if hash == "" {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil, nil
}

func (s *userService) Seed(ctx context.Context, ownerPassword, adminPassword string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	owners, err := tx.CountOwners(ctx)
	if err != nil {
		return fmt.Errorf("failed to count owners: %w", err)
	}
	if owners > 0 {
		return nil
	}

	now := s.timestamp()
	seed := []struct {
		user     User
		password string
	}{
		{User{Username: "owner", Role: RoleOwner, FullName: "Store Owner", IsOwner: true, CreatedAt: now}, ownerPassword},
		{User{Username: "admin", Role: RoleAdmin, FullName: "Store Admin", CreatedAt: now}, adminPassword},
	}
	for _, sd := range seed {
		u := sd.user
		if _, err := s.store.GetUserByUsername(ctx, u.Username); err == nil {
			continue
		}
		if u.PasswordHash, err = hashSecret(sd.password); err != nil {
			return err
		}
		if err := tx.InsertUser(ctx, &u); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	s.logger.Info("seeded default users")
	return nil
}
