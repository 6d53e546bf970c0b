package wallet

import (
	"context"
	"errors"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

// Service exposes balances and the transaction ledger.
type Service struct {
	users  repository.UserRepository
	ledger repository.WalletRepository
	logger *slog.Logger
}

// New constructs a wallet service.
func New(users repository.UserRepository, ledger repository.WalletRepository, logger *slog.Logger) Service {
	return Service{users: users, ledger: ledger, logger: logger}
}

// Balance returns the user's spendable balance.
func (s Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, apperror.New(apperror.CodeNotFound, "user not found")
		}
		return decimal.Zero, apperror.Wrap(apperror.CodeDatabase, "could not read balance", err)
	}
	return balance, nil
}

// ListTransactions pages the user's ledger.
func (s Service) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	txs, err := s.ledger.ListTransactionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list transactions", err)
	}
	return txs, nil
}

// Drift describes one user's reconciliation result.
type Drift struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Delta     decimal.Decimal `json:"delta"`
}

// Reconcile recomputes every balance from completed ledger rows and reports
// users whose stored balance drifted. It never mutates.
func (s Service) Reconcile(ctx context.Context) ([]Drift, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list users", err)
	}
	drifts := make([]Drift, 0)
	for _, id := range ids {
		balance, err := s.ledger.GetBalance(ctx, id)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeDatabase, "could not read balance", err)
		}
		sum, err := s.ledger.SumCompletedByUser(ctx, id)
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeDatabase, "could not sum ledger", err)
		}
		if !balance.Equal(sum) {
			drift := Drift{UserID: id, Balance: balance, LedgerSum: sum, Delta: balance.Sub(sum)}
			drifts = append(drifts, drift)
			s.logger.Warn("balance drift detected", "user_id", id, "balance", balance.String(), "ledger_sum", sum.String())
		}
	}
	return drifts, nil
}
