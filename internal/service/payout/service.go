package payout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/provider"
	"github.com/topdog/backend/internal/repository"
	"github.com/topdog/backend/pkg/config"
	"github.com/topdog/backend/pkg/crypto"
)

// Service runs the withdrawal debit/compensate flow. The balance is debited
// before the provider call so concurrent requests cannot double-spend; a
// failed provider call triggers a compensating credit, and a failed
// compensation escalates to manual review.
type Service struct {
	wallet     repository.WalletRepository
	accounts   repository.DisbursementAccountRepository
	disbursers map[string]provider.Disburser
	logger     *slog.Logger
	cfg        config.APIConfig
}

// New constructs a payout service over the given disbursement providers.
func New(wallet repository.WalletRepository, accounts repository.DisbursementAccountRepository, disbursers []provider.Disburser, logger *slog.Logger, cfg config.APIConfig) Service {
	byName := make(map[string]provider.Disburser, len(disbursers))
	for _, d := range disbursers {
		byName[d.Name()] = d
	}
	return Service{
		wallet:     wallet,
		accounts:   accounts,
		disbursers: byName,
		logger:     logger,
		cfg:        cfg,
	}
}

// AddAccount registers a payout destination with the account number
// encrypted at rest.
func (s Service) AddAccount(ctx context.Context, userID, providerName, channelCode, holderName, accountNumber string) (*domain.DisbursementAccount, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	if _, ok := s.disbursers[providerName]; !ok {
		return nil, apperror.Validation("unsupported provider")
	}
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, apperror.Validation("account number is required")
	}
	if strings.TrimSpace(holderName) == "" {
		return nil, apperror.Validation("holder name is required")
	}
	encrypted, err := crypto.EncryptString(s.cfg.SecretsKey, accountNumber)
	if err != nil {
		return nil, err
	}
	account := &domain.DisbursementAccount{
		ID:            uuid.NewString(),
		UserID:        userID,
		Provider:      providerName,
		ChannelCode:   strings.TrimSpace(channelCode),
		HolderName:    strings.TrimSpace(holderName),
		AccountNumber: encrypted,
		MaskedNumber:  crypto.MaskAccountNumber(accountNumber),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.accounts.CreateDisbursementAccount(ctx, account); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not store account", err)
	}
	return account, nil
}

// ListAccounts returns the user's payout destinations with masked numbers.
func (s Service) ListAccounts(ctx context.Context, userID string) ([]domain.DisbursementAccount, error) {
	accounts, err := s.accounts.ListDisbursementAccountsByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list accounts", err)
	}
	return accounts, nil
}

// RemoveAccount deletes a destination owned by the user.
func (s Service) RemoveAccount(ctx context.Context, userID, accountID string) error {
	if err := s.accounts.DeleteDisbursementAccount(ctx, accountID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.CodeNotFound, "account not found")
		}
		return apperror.Wrap(apperror.CodeDatabase, "could not delete account", err)
	}
	return nil
}

// Withdraw executes the debit/compensate flow and returns the pending
// withdrawal transaction. The transaction's final state arrives later via
// the provider webhook.
func (s Service) Withdraw(ctx context.Context, userID, accountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("amount must be positive")
	}
	account, err := s.accounts.GetDisbursementAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.New(apperror.CodeNotFound, "disbursement account not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not load account", err)
	}
	if account.UserID != userID {
		return nil, apperror.New(apperror.CodeForbidden, "account belongs to another user")
	}
	disburser, ok := s.disbursers[account.Provider]
	if !ok {
		return nil, apperror.Validation("provider no longer supported")
	}
	limits := disburser.Limits()
	if amount.LessThan(limits.Min) {
		return nil, apperror.Validation(fmt.Sprintf("amount below provider minimum of %s", limits.Min))
	}
	if amount.GreaterThan(limits.Max) {
		return nil, apperror.Validation(fmt.Sprintf("amount above provider maximum of %s", limits.Max))
	}
	total := amount.Add(limits.Fee)

	// Debit first. The conditional update is the double-spend guard.
	if err := s.wallet.DebitBalance(ctx, userID, total); err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, apperror.New(apperror.CodeConflict, "insufficient balance")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.New(apperror.CodeNotFound, "user not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not debit balance", err)
	}

	tx := &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      domain.TxTypeWithdrawal,
		Status:    domain.TxStatusPending,
		Amount:    total,
		Fee:       limits.Fee,
		Provider:  account.Provider,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.wallet.CreateTransaction(ctx, tx); err != nil {
		s.compensate(ctx, tx, total, err)
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not record withdrawal", err)
	}

	number, err := crypto.DecryptToString(s.cfg.SecretsKey, account.AccountNumber)
	if err != nil {
		s.failAndCompensate(ctx, tx, total, "account decryption failed", err)
		return nil, apperror.Wrap(apperror.CodeInternal, "could not prepare disbursement", err)
	}

	result, err := disburser.CreateDisbursement(ctx, provider.DisbursementRequest{
		IdempotencyKey: tx.ID,
		Amount:         amount,
		ChannelCode:    account.ChannelCode,
		AccountNumber:  number,
		HolderName:     account.HolderName,
		Description:    "topdog withdrawal " + tx.ID,
	})
	if err != nil {
		s.failAndCompensate(ctx, tx, total, "provider disbursement failed", err)
		return nil, apperror.Wrap(apperror.CodeExternalAPI, "disbursement rejected by provider", err)
	}

	tx.Status = domain.TxStatusProcessing
	tx.ProviderRef = result.Reference
	if err := s.wallet.MarkTransactionProcessing(ctx, tx.ID, result.Reference); err != nil {
		// The disbursement is already in flight; never claw back the debit
		// here. The webhook settles the final state by provider reference.
		s.logger.Error("failed to mark withdrawal processing", "tx_id", tx.ID, "error", err)
	}
	s.logger.Info("withdrawal submitted",
		"tx_id", tx.ID,
		"user_id", userID,
		"provider", account.Provider,
		"provider_ref", result.Reference,
		"amount", amount.String())
	return tx, nil
}

// failAndCompensate marks the withdrawal failed and restores the debited
// amount. If the credit itself fails the transaction is parked for manual
// review and escalated; nothing else can safely be done automatically.
func (s Service) failAndCompensate(ctx context.Context, tx *domain.Transaction, total decimal.Decimal, reason string, cause error) {
	if err := s.wallet.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusFailed, reason); err != nil {
		s.logger.Error("failed to mark withdrawal failed", "tx_id", tx.ID, "error", err)
	}
	s.compensate(ctx, tx, total, cause)
}

func (s Service) compensate(ctx context.Context, tx *domain.Transaction, total decimal.Decimal, cause error) {
	if err := s.wallet.CreditBalance(ctx, tx.UserID, total); err != nil {
		if markErr := s.wallet.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusManualReview, "compensating credit failed"); markErr != nil {
			s.logger.Error("failed to park withdrawal for manual review", "tx_id", tx.ID, "error", markErr)
		}
		s.logger.Error("withdrawal compensation failed, manual review required",
			"tx_id", tx.ID,
			"user_id", tx.UserID,
			"amount", total.String(),
			"credit_error", err,
			"cause", cause)
		return
	}
	s.logger.Warn("withdrawal compensated",
		"tx_id", tx.ID,
		"user_id", tx.UserID,
		"amount", total.String(),
		"cause", cause)
}

// SettleDisbursement applies a provider webhook outcome to the withdrawal it
// references. A failure after submission refunds the full debited amount.
func (s Service) SettleDisbursement(ctx context.Context, providerName, providerRef string, succeeded bool, failReason string) error {
	tx, err := s.wallet.GetTransactionByProviderRef(ctx, providerName, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.CodeNotFound, "unknown disbursement reference")
		}
		return apperror.Wrap(apperror.CodeDatabase, "could not load withdrawal", err)
	}
	if tx.Terminal() {
		// Provider retried a callback we already applied.
		return nil
	}
	if succeeded {
		if err := s.wallet.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusCompleted, ""); err != nil {
			return apperror.Wrap(apperror.CodeDatabase, "could not complete withdrawal", err)
		}
		s.logger.Info("withdrawal completed", "tx_id", tx.ID, "provider_ref", providerRef)
		return nil
	}
	if err := s.wallet.UpdateTransactionStatus(ctx, tx.ID, domain.TxStatusFailed, failReason); err != nil {
		return apperror.Wrap(apperror.CodeDatabase, "could not fail withdrawal", err)
	}
	s.compensate(ctx, tx, tx.Amount, errors.New(failReason))
	return nil
}
