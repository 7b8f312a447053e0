package config_test

import (
	"testing"
	"time"

	"inventory-admin/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "SQLITE_PATH", "SERVER_PORT", "ALLOWED_ORIGINS", "JWT_TTL", "FX_TTL", "FX_FALLBACK_SAR", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := config.Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "inventory.db", cfg.SQLitePath)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 30*time.Minute, cfg.FXTTL)
	assert.Equal(t, 3.75, cfg.FXFallbackSAR)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("JWT_TTL", "12h")
	t.Setenv("FX_TTL", "-5m")
	t.Setenv("FX_FALLBACK_SAR", "3.8")

	cfg := config.Load()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 30*time.Minute, cfg.FXTTL, "non-positive durations fall back to the default")
	assert.Equal(t, 3.8, cfg.FXFallbackSAR)
}
