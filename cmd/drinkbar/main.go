// Package main запускает HTTP-сервер сервиса учёта заказов бара.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/drinkbar-ledger/internal/catalog"
	"github.com/mmeshcher/drinkbar-ledger/internal/config"
	"github.com/mmeshcher/drinkbar-ledger/internal/handler"
	"github.com/mmeshcher/drinkbar-ledger/internal/identity"
	"github.com/mmeshcher/drinkbar-ledger/internal/logger"
	"github.com/mmeshcher/drinkbar-ledger/internal/metrics"
	"github.com/mmeshcher/drinkbar-ledger/internal/middleware"
	"github.com/mmeshcher/drinkbar-ledger/internal/repository"
	"github.com/mmeshcher/drinkbar-ledger/internal/service"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger initialization error: %v", err)
	}
	defer lg.Sync()

	sugar := lg.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	var oracle catalog.Oracle = repo
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Warnw("redis unavailable, catalog cache will fall back to database", "error", err.Error())
		}
		oracle = catalog.NewCachedOracle(repo, rdb, cfg.CatalogCacheTTL, lg)
	}

	var resolver identity.Resolver
	if cfg.AuthUserInfoURL != "" {
		resolver = identity.NewUserInfoResolver(cfg.AuthUserInfoURL, lg)
	} else {
		resolver = identity.NewJWTResolver(cfg.AuthSecret)
	}

	m := metrics.New()

	svc := service.NewService(repo, oracle, m, lg, service.Options{
		Currency:       cfg.Currency,
		DefaultCeiling: cfg.Ceiling(),
	})
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(resolver, lg)
	h := handler.NewHandler(svc, lg, authMiddleware, m)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting drinkbar ledger", "addr", cfg.RunAddress, "currency", cfg.Currency)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
