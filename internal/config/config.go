// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDriver       string // "postgres" or "sqlite"
	DatabaseURL    string
	SQLitePath     string
	ServerPort     string
	AllowedOrigins []string
	JWTSecret      string
	JWTTTL         time.Duration
	RedisAddr      string // empty disables the shared FX cache
	FXAPIKey       string
	FXTTL          time.Duration
	FXFallbackSAR  float64
	LogLevel       string
	LogFormat      string // "json" or "console"
}

// Load reads the environment. Call godotenv.Load first to pick up a .env file.
func Load() Config {
	return Config{
		DBDriver:       getenv("DB_DRIVER", "postgres"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		SQLitePath:     getenv("SQLITE_PATH", "inventory.db"),
		ServerPort:     getenv("SERVER_PORT", "8080"),
		AllowedOrigins: splitCSV(getenv("ALLOWED_ORIGINS", "")),
		JWTSecret:      getenv("JWT_SECRET", ""),
		JWTTTL:         getduration("JWT_TTL", 7*24*time.Hour),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		FXAPIKey:       getenv("FX_API_KEY", ""),
		FXTTL:          getduration("FX_TTL", 30*time.Minute),
		FXFallbackSAR:  getfloat("FX_FALLBACK_SAR", 3.75),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil && f > 0 {
		return f
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
