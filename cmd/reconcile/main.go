// The reconcile binary recomputes every wallet balance from the transaction
// ledger and reports drift. It never mutates; operators act on the report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topdog/backend/internal/repository/postgres"
	"github.com/topdog/backend/internal/service/wallet"
	"github.com/topdog/backend/pkg/config"
	"github.com/topdog/backend/pkg/logger"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "reconciliation timeout")
	flag.Parse()

	cfg := config.LoadAPIConfig()
	log := logger.New("reconcile", slog.LevelInfo)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := postgres.New(pool)
	walletSvc := wallet.New(repo, repo, log)

	drifts, err := walletSvc.Reconcile(ctx)
	if err != nil {
		log.Error("reconciliation failed", "error", err)
		os.Exit(1)
	}
	if len(drifts) == 0 {
		log.Info("reconciliation complete, no drift")
		return
	}

	log.Warn("reconciliation found drift", "users", len(drifts))
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(drifts); err != nil {
		log.Error("failed to print drift report", "error", err)
		os.Exit(1)
	}
	os.Exit(2)
}
