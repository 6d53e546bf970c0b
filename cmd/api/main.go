package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topdog/backend/internal/app/migrate"
	httpx "github.com/topdog/backend/internal/http"
	"github.com/topdog/backend/internal/provider"
	"github.com/topdog/backend/internal/repository/postgres"
	"github.com/topdog/backend/internal/service/auth"
	"github.com/topdog/backend/internal/service/contest"
	"github.com/topdog/backend/internal/service/draft"
	"github.com/topdog/backend/internal/service/funding"
	"github.com/topdog/backend/internal/service/payout"
	"github.com/topdog/backend/internal/service/players"
	"github.com/topdog/backend/internal/service/wallet"
	"github.com/topdog/backend/internal/service/webhook"
	"github.com/topdog/backend/internal/ws"
	"github.com/topdog/backend/pkg/config"
	"github.com/topdog/backend/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	draftHub := ws.NewHub()

	xendit := provider.NewXendit(cfg.XenditBaseURL, cfg.XenditAPIKey, cfg.ProviderTimeout, cfg.ProviderRetryMax, log)
	paystack := provider.NewPaystack(cfg.PaystackBaseURL, cfg.PaystackAPIKey, cfg.ProviderTimeout, cfg.ProviderRetryMax, log)

	authSvc := auth.New(repo, log, cfg)
	walletSvc := wallet.New(repo, repo, log)
	payoutSvc := payout.New(repo, repo, []provider.Disburser{xendit, paystack}, log, cfg)
	fundingSvc := funding.New(repo, repo, xendit, log)
	contestSvc := contest.New(repo, repo, log)
	playerSvc := players.New(repo, log, cfg.PlayerCacheTTL)
	draftSvc := draft.New(repo, repo, repo, draftHub, log, cfg)
	webhookSvc := webhook.New(repo, payoutSvc, fundingSvc, log, cfg)

	go draftSvc.Run(ctx)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RedisPassword, cfg.RedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, walletSvc, payoutSvc, fundingSvc, contestSvc, draftSvc, playerSvc, webhookSvc, limiter, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
