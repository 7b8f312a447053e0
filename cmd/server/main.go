package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "inventory-admin/internal/adapters/web"
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
	_ = godotenv.Load()
	cfg := config.Load()

	flag.StringVarP(&cfg.ServerPort, "port", "p", cfg.ServerPort, "HTTP listen port")
	flag.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "ledger store: postgres or sqlite")
	flag.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "SQLite database file")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := db.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer closeStore()

	fxOpts := fx.Options{
		Sources:     fx.DefaultSources(cfg.FXAPIKey),
		TTL:         cfg.FXTTL,
		FallbackSAR: decimal.NewFromFloat(cfg.FXFallbackSAR),
		Logger:      logger.Named("fx"),
	}
	if cfg.RedisAddr != "" {
		rdb := fx.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, fx cache is process-local", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			fxOpts.Shared = fx.NewRedisCache(rdb)
			logger.Info("fx shared cache enabled", zap.String("addr", cfg.RedisAddr))
		}
	}
	rates := fx.NewRateProvider(fxOpts)

	svc := app.NewFromStore(store, rates, logger)

	// A stored fallback rate overrides the environment default.
	if settings, err := svc.GetSettings(ctx); err != nil {
		logger.Warn("loading settings", zap.Error(err))
	} else if settings.FallbackSAR != core.DefaultFallbackSAR {
		rates.SetFallbackSAR(decimal.NewFromFloat(settings.FallbackSAR))
	}

	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		Logger:         logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
