package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"laundrydesk/backend/internal/config"
	"laundrydesk/backend/internal/httpapi"
	"laundrydesk/backend/internal/jobs"
	"laundrydesk/backend/internal/logger"
	"laundrydesk/backend/internal/notify"
	"laundrydesk/backend/internal/service"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/store/memory"
	pgstore "laundrydesk/backend/internal/store/postgres"
	"laundrydesk/backend/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	zlog, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		zlog.Fatal("invalid security configuration", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	var repo store.Repository
	if cfg.Postgres.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.Postgres)
		if err != nil {
			zlog.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if cfg.Postgres.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				zlog.Fatal("schema migration failed", zap.Error(err))
			}
		}
		repo = pg
		closers = append(closers, pg.Close)
		zlog.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(zlog)
		zlog.Info("repository: in-memory")
	}

	notifier := notify.Notifier(notify.NewLog(zlog))
	if cfg.Redis.Addr != "" {
		redisNotifier := notify.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.EventsChannel,
			time.Duration(cfg.Redis.LowStockAlertTTLMinutes)*time.Minute)
		if err := redisNotifier.Ping(ctx); err != nil {
			zlog.Warn("redis unavailable, notifications go to the log", zap.Error(err))
			_ = redisNotifier.Close()
		} else {
			notifier = redisNotifier
			closers = append(closers, redisNotifier.Close)
			zlog.Info("notifications: redis", zap.String("channel", cfg.Redis.EventsChannel))
		}
	} else {
		zlog.Info("notifications: log")
	}

	opts, err := engineOptions(cfg.Engine)
	if err != nil {
		zlog.Fatal("invalid engine configuration", zap.Error(err))
	}
	opts.Notifier = notifier
	opts.Logger = zlog
	svc, err := service.New(repo, opts)
	if err != nil {
		zlog.Fatal("service init failed", zap.Error(err))
	}

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler, err = jobs.New(svc, cfg.Jobs.LowStockCron, cfg.Jobs.PaymentReminderCron, zlog)
		if err != nil {
			zlog.Fatal("invalid job schedule", zap.Error(err))
		}
		scheduler.Start()
	}

	auth := httpapi.NewAuthManager(cfg.Auth.Secret, time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.Server.AllowedOrigins, zlog.Named("http"))

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zlog.Info("laundry backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			zlog.Error("close error", zap.Error(err))
		}
	}

	zlog.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS must list at least one origin")
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" && !cfg.IsDevelopment() {
			return fmt.Errorf("ALLOWED_ORIGINS must not be * outside development")
		}
	}
	return nil
}

func engineOptions(cfg config.EngineConfig) (service.Options, error) {
	opts := service.DefaultOptions()

	taxRate, err := decimal.NewFromString(cfg.TaxRatePercent)
	if err != nil {
		return opts, fmt.Errorf("TAX_RATE_PERCENT %q: %w", cfg.TaxRatePercent, err)
	}
	opts.TaxRatePercent = taxRate

	policy, err := workflow.ParseRevenuePolicy(cfg.RevenuePolicy)
	if err != nil {
		return opts, err
	}
	opts.RevenuePolicy = policy

	rules, err := workflow.ParseRules(cfg.ConsumptionRules)
	if err != nil {
		return opts, err
	}
	opts.Rules = rules

	if cfg.TxTimeoutSeconds > 0 {
		opts.TxTimeout = time.Duration(cfg.TxTimeoutSeconds) * time.Second
	}
	return opts, nil
}
