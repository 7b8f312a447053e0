package core_test

import (
	"testing"

	"inventory-admin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, env *testEnv) (owner, admin *core.User) {
	t.Helper()
	require.NoError(t, env.users.Seed(env.ctx, "owner-pass", "admin-pass"))
	users, err := env.users.ListUsers(env.ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	return &users[0], &users[1]
}

func TestUsers_Seed(t *testing.T) {
	env := setupTestEnv(t)
	owner, admin := seedUsers(t, env)

	assert.Equal(t, "owner", owner.Username)
	assert.True(t, owner.IsOwner)
	assert.Equal(t, core.RoleOwner, owner.Role)
	assert.Equal(t, "admin", admin.Username)
	assert.False(t, admin.IsOwner)

	// Seeding again is a no-op.
	require.NoError(t, env.users.Seed(env.ctx, "other", "other"))
	users, err := env.users.ListUsers(env.ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	_, err = env.users.Authenticate(env.ctx, "owner", "owner-pass", "", "")
	assert.NoError(t, err)
}

func TestUsers_Authenticate(t *testing.T) {
	env := setupTestEnv(t)
	_, admin := seedUsers(t, env)

	_, err := env.users.Authenticate(env.ctx, "admin", "wrong", "10.0.0.1", "curl")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = env.users.Authenticate(env.ctx, "nobody", "admin-pass", "10.0.0.1", "curl")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	u, err := env.users.Authenticate(env.ctx, " admin ", "admin-pass", "10.0.0.1", "curl")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, u.ID)
	require.NotNil(t, u.LastLogin)

	stored, err := env.users.GetByID(env.ctx, admin.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, stored.LastLogin.Equal(*u.LastLogin))

	logins, err := env.users.ListLogins(env.ctx, &admin.ID)
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, "10.0.0.1", logins[0].IP)
	assert.Equal(t, "curl", logins[0].UserAgent)
	require.NotNil(t, logins[0].Username)
	assert.Equal(t, "admin", *logins[0].Username)

	all, err := env.users.ListLogins(env.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	missing := int64(9999)
	_, err = env.users.ListLogins(env.ctx, &missing)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUsers_CreateUser(t *testing.T) {
	env := setupTestEnv(t)

	u, err := env.users.CreateUser(env.ctx, core.NewUser{Username: " clerk ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "clerk", u.Username)
	assert.Equal(t, core.RoleAdmin, u.Role)
	assert.NotEqual(t, "pw", u.PasswordHash)

	_, err = env.users.CreateUser(env.ctx, core.NewUser{Username: "clerk", Password: "pw"})
	assert.ErrorIs(t, err, core.ErrConflict)
	_, err = env.users.CreateUser(env.ctx, core.NewUser{Username: "x", Password: ""})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = env.users.CreateUser(env.ctx, core.NewUser{Username: "y", Password: "pw", Role: "manager"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestUsers_UpdateUser(t *testing.T) {
	env := setupTestEnv(t)
	owner, admin := seedUsers(t, env)

	_, err := env.users.UpdateUser(env.ctx, owner.ID, core.UserPatch{FullName: core.Some("New Name")})
	assert.ErrorIs(t, err, core.ErrValidation)

	u, err := env.users.UpdateUser(env.ctx, admin.ID, core.UserPatch{
		FullName: core.Some("Front Desk"),
		Password: core.Some("rotated"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Front Desk", u.FullName)

	_, err = env.users.Authenticate(env.ctx, "admin", "admin-pass", "", "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = env.users.Authenticate(env.ctx, "admin", "rotated", "", "")
	assert.NoError(t, err)

	_, err = env.users.UpdateUser(env.ctx, admin.ID, core.UserPatch{Username: core.Some("owner")})
	assert.ErrorIs(t, err, core.ErrConflict)
	_, err = env.users.UpdateUser(env.ctx, 9999, core.UserPatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUsers_DeleteUser(t *testing.T) {
	env := setupTestEnv(t)
	owner, admin := seedUsers(t, env)
	ownerActor := core.Actor{UserID: owner.ID, Username: owner.Username, Role: owner.Role}
	adminActor := core.Actor{UserID: admin.ID, Username: admin.Username, Role: admin.Role}

	err := env.users.DeleteUser(env.ctx, owner.ID, adminActor)
	assert.ErrorIs(t, err, core.ErrValidation)
	err = env.users.DeleteUser(env.ctx, admin.ID, adminActor)
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, env.users.DeleteUser(env.ctx, admin.ID, ownerActor))
	_, err = env.users.GetByID(env.ctx, admin.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUsers_Settings(t *testing.T) {
	env := setupTestEnv(t)

	s, err := env.users.GetSettings(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCurrency, s.DefaultCurrency)
	assert.Equal(t, core.DefaultFallbackSAR, s.FallbackSAR)
	assert.False(t, s.HasPIN)

	s, err = env.users.UpdateSettings(env.ctx, core.SettingsPatch{
		DefaultCurrency: core.Some(" sar "),
		FallbackSAR:     core.Some(3.76),
		PIN:             core.Some("2468"),
	})
	require.NoError(t, err)
	assert.Equal(t, "SAR", s.DefaultCurrency)
	assert.Equal(t, 3.76, s.FallbackSAR)
	assert.True(t, s.HasPIN)

	_, err = env.users.UpdateSettings(env.ctx, core.SettingsPatch{DefaultCurrency: core.Some("EURO")})
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = env.users.UpdateSettings(env.ctx, core.SettingsPatch{FallbackSAR: core.Some(0.0)})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestUsers_VerifyPIN(t *testing.T) {
	env := setupTestEnv(t)

	ok, err := env.users.VerifyPIN(env.ctx, "")
	require.NoError(t, err)
	assert.False(t, ok, "no pin configured")

	_, err = env.users.UpdateSettings(env.ctx, core.SettingsPatch{PIN: core.Some("1357")})
	require.NoError(t, err)

	ok, err = env.users.VerifyPIN(env.ctx, "1357")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = env.users.VerifyPIN(env.ctx, "0000")
	require.NoError(t, err)
	assert.False(t, ok)

	s, err := env.users.UpdateSettings(env.ctx, core.SettingsPatch{PIN: core.Some("")})
	require.NoError(t, err)
	assert.False(t, s.HasPIN)
	ok, err = env.users.VerifyPIN(env.ctx, "1357")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRole_Allows(t *testing.T) {
	assert.True(t, core.RoleOwner.Allows(core.RoleAdmin))
	assert.True(t, core.RoleOwner.Allows(core.RoleOwner))
	assert.True(t, core.RoleAdmin.Allows(core.RoleAdmin))
	assert.False(t, core.RoleAdmin.Allows(core.RoleOwner))
}
