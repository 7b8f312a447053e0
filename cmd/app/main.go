package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"inventory-admin/internal/adapters/cli"
	"inventory-admin/internal/adapters/repl"
	"inventory-admin/internal/app"
	"inventory-admin/internal/config"
	"inventory-admin/internal/core"
	"inventory-admin/internal/db"
	"inventory-admin/internal/fx"
	"inventory-admin/internal/logging"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := config.Load()

	var userID int64
	flag.Int64VarP(&userID, "user", "u", 0, "user ID to attribute changes to (0 = unattributed)")
	flag.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "ledger store: postgres or sqlite")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: app [flags] [command [args...]]")
		fmt.Fprintln(os.Stderr, "Without a command, starts the interactive console.")
		flag.PrintDefaults()
	}
	flag.Parse()

	// CLI output goes to stdout; keep the logger on stderr and quiet.
	if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	store, closeStore, err := db.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer closeStore()

	rates := fx.NewRateProvider(fx.Options{
		Sources:     fx.DefaultSources(cfg.FXAPIKey),
		TTL:         cfg.FXTTL,
		FallbackSAR: decimal.NewFromFloat(cfg.FXFallbackSAR),
		Logger:      logger,
	})
	svc := app.NewFromStore(store, rates, logger)

	var actor core.Actor
	if userID != 0 {
		u, err := svc.GetUser(ctx, userID)
		if err != nil {
			logger.Fatal("resolving --user", zap.Int64("user_id", userID), zap.Error(err))
		}
		actor = core.Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
	}

	if flag.NArg() == 0 {
		repl.Run(ctx, svc, actor, bufio.NewReader(os.Stdin), os.Stdout)
		return 0
	}

	if err := cli.Run(ctx, svc, actor, os.Stdout, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
