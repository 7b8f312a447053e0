// migrate applies the embedded PostgreSQL migrations and optionally seeds the
// default owner and admin accounts. With --driver sqlite the schema is created
// on open, so only seeding applies.
//
// Usage: go run ./cmd/migrate [--seed]
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"inventory-admin/internal/config"
	"inventory-admin/internal/core"
	"inventory-admin/internal/db"
	"inventory-admin/internal/logging"
	"inventory-admin/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

// lockID is the advisory lock held while migrating.
const lockID = 7462839

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	seed := flag.Bool("seed", false, "create the default owner and admin accounts if no owner exists")
	ownerPassword := flag.String("owner-password", os.Getenv("OWNER_PASSWORD"), "password for the seeded owner")
	adminPassword := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "password for the seeded admin")
	flag.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "ledger store: postgres or sqlite")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	if cfg.DBDriver != "sqlite" {
		pool := connectDB(ctx, logger, cfg.DatabaseURL)
		conn := acquireLock(ctx, logger, pool)
		setupSchemaMigrations(ctx, logger, pool)
		for _, filename := range discoverMigrations(logger) {
			applyMigration(ctx, logger, pool, filename)
		}
		conn.Release()
		pool.Close()
		logger.Info("[DONE] All migrations processed.")
	}

	if !*seed {
		return
	}
	if *ownerPassword == "" || *adminPassword == "" {
		logger.Fatal("[SEED] --owner-password and --admin-password (or OWNER_PASSWORD / ADMIN_PASSWORD) are required")
	}

	store, closeStore, err := db.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("[SEED] failed to open store", zap.Error(err))
	}
	defer closeStore()

	users := core.NewUserService(store, logger, nil)
	if err := users.Seed(ctx, *ownerPassword, *adminPassword); err != nil {
		logger.Fatal("[SEED] failed", zap.Error(err))
	}
	logger.Info("[SEED] done")
}

func connectDB(ctx context.Context, logger *zap.Logger, url string) *pgxpool.Pool {
	if url == "" {
		logger.Fatal("[CONNECT] DATABASE_URL is not set")
	}
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Fatal("[CONNECT] failed to create pool", zap.Error(err))
	}

	if err := pool.Ping(connCtx); err != nil {
		logger.Fatal("[CONNECT] failed to ping database", zap.Error(err))
	}

	logger.Info("[CONNECT] success")
	return pool
}

func acquireLock(ctx context.Context, logger *zap.Logger, pool *pgxpool.Pool) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		logger.Fatal("[LOCK] failed to acquire connection for lock", zap.Error(err))
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&locked); err != nil {
		logger.Fatal("[LOCK] failed to query advisory lock", zap.Error(err))
	}
	if !locked {
		logger.Fatal("[LOCK] failed: another migrator is currently running")
	}

	logger.Info("[LOCK] success")
	return conn
}

func setupSchemaMigrations(ctx context.Context, logger *zap.Logger, pool *pgxpool.Pool) {
	query := `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := pool.Exec(ctx, query); err != nil {
		logger.Fatal("[ERROR] failed to create schema_migrations table", zap.Error(err))
	}
}

func discoverMigrations(logger *zap.Logger) []string {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		logger.Fatal("[DISCOVER] failed to read embedded migrations", zap.Error(err))
	}

	var filenames []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		filename := entry.Name()
		version := extractVersion(logger, filename)
		if seen[version] {
			logger.Fatal("[DISCOVER] duplicate version found", zap.String("version", version))
		}
		seen[version] = true
		filenames = append(filenames, filename)
	}

	sort.Strings(filenames)
	return filenames
}

func extractVersion(logger *zap.Logger, filename string) string {
	version, _, ok := strings.Cut(filename, "_")
	if !ok {
		logger.Fatal("[DISCOVER] invalid migration filename, expected NNN_description.sql", zap.String("file", filename))
	}
	return version
}

func applyMigration(ctx context.Context, logger *zap.Logger, pool *pgxpool.Pool, filename string) {
	version := extractVersion(logger, filename)
	sqlBytes, err := fs.ReadFile(migrations.FS, filename)
	if err != nil {
		logger.Fatal("[ERROR] failed to read migration file", zap.String("file", filename), zap.Error(err))
	}
	sum := sha256.Sum256(sqlBytes)
	checksum := hex.EncodeToString(sum[:])

	var existing string
	err = pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", version).Scan(&existing)
	switch {
	case err == nil:
		if existing != checksum {
			logger.Fatal("[ERROR] checksum mismatch",
				zap.String("file", filename), zap.String("expected", existing), zap.String("got", checksum))
		}
		logger.Info("[SKIP] " + filename)
		return
	case errors.Is(err, pgx.ErrNoRows):
	default:
		logger.Fatal("[ERROR] failed to query schema_migrations", zap.String("file", filename), zap.Error(err))
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Fatal("[ERROR] failed to begin transaction", zap.String("file", filename), zap.Error(err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		logger.Fatal("[ERROR] failed to execute migration", zap.String("file", filename), zap.Error(err))
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, checksum); err != nil {
		logger.Fatal("[ERROR] failed to insert migration record", zap.String("file", filename), zap.Error(err))
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Fatal("[ERROR] failed to commit transaction", zap.String("file", filename), zap.Error(err))
	}

	logger.Info("[APPLY] " + filename)
}
