package funding

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/provider"
	"github.com/topdog/backend/internal/repository"
)

const virtualAccountTTL = 24 * time.Hour

// Service manages virtual-account deposits. A virtual account binds a
// provider-issued bank destination to an expected amount; the wallet is
// credited only when the settlement webhook reports a matching payment.
type Service struct {
	wallet   repository.WalletRepository
	accounts repository.VirtualAccountRepository
	issuer   provider.VirtualAccountIssuer
	logger   *slog.Logger
}

// New constructs a funding service.
func New(wallet repository.WalletRepository, accounts repository.VirtualAccountRepository, issuer provider.VirtualAccountIssuer, logger *slog.Logger) Service {
	return Service{wallet: wallet, accounts: accounts, issuer: issuer, logger: logger}
}

// CreateVirtualAccount issues a deposit destination bound to amount.
func (s Service) CreateVirtualAccount(ctx context.Context, userID, bankCode, holderName string, amount decimal.Decimal) (*domain.VirtualAccount, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("amount must be positive")
	}
	if bankCode == "" {
		return nil, apperror.Validation("bank code is required")
	}

	id := uuid.NewString()
	expires := time.Now().UTC().Add(virtualAccountTTL)
	result, err := s.issuer.CreateVirtualAccount(ctx, provider.VirtualAccountRequest{
		ReferenceID:    id,
		BankCode:       bankCode,
		HolderName:     holderName,
		ExpectedAmount: amount,
		ExpiresAt:      expires,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeExternalAPI, "could not issue virtual account", err)
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        domain.TxTypeDeposit,
		Status:      domain.TxStatusPending,
		Amount:      amount,
		Fee:         decimal.Zero,
		Provider:    s.issuer.Name(),
		ProviderRef: result.Reference,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.wallet.CreateTransaction(ctx, tx); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not record deposit", err)
	}

	account := &domain.VirtualAccount{
		ID:             id,
		UserID:         userID,
		Provider:       s.issuer.Name(),
		ProviderRef:    result.Reference,
		BankCode:       result.BankCode,
		AccountNumber:  result.AccountNumber,
		ExpectedAmount: amount,
		TransactionID:  tx.ID,
		Status:         domain.VAStatusPending,
		ExpiresAt:      expires,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.accounts.CreateVirtualAccount(ctx, account); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not store virtual account", err)
	}
	s.logger.Info("virtual account issued", "user_id", userID, "va_id", id, "amount", amount.String())
	return account, nil
}

// SettlePayment applies a virtual-account settlement webhook. The paid
// amount must match the expectation exactly; anything else parks the deposit
// for manual review instead of crediting.
func (s Service) SettlePayment(ctx context.Context, providerName, providerRef string, paid decimal.Decimal) error {
	account, err := s.accounts.GetVirtualAccountByProviderRef(ctx, providerName, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.New(apperror.CodeNotFound, "unknown virtual account reference")
		}
		return apperror.Wrap(apperror.CodeDatabase, "could not load virtual account", err)
	}
	if account.Status != domain.VAStatusPending {
		// Settlement already applied; provider retried.
		return nil
	}
	if !paid.Equal(account.ExpectedAmount) {
		if err := s.wallet.UpdateTransactionStatus(ctx, account.TransactionID, domain.TxStatusManualReview, "paid amount does not match expectation"); err != nil {
			return apperror.Wrap(apperror.CodeDatabase, "could not park deposit", err)
		}
		s.logger.Error("virtual account amount mismatch, manual review required",
			"va_id", account.ID,
			"expected", account.ExpectedAmount.String(),
			"paid", paid.String())
		return nil
	}

	if err := s.wallet.CreditBalance(ctx, account.UserID, paid); err != nil {
		return apperror.Wrap(apperror.CodeDatabase, "could not credit deposit", err)
	}
	if err := s.wallet.UpdateTransactionStatus(ctx, account.TransactionID, domain.TxStatusCompleted, ""); err != nil {
		return apperror.Wrap(apperror.CodeDatabase, "could not complete deposit", err)
	}
	if err := s.accounts.UpdateVirtualAccountStatus(ctx, account.ID, domain.VAStatusPaid); err != nil {
		s.logger.Error("failed to mark virtual account paid", "va_id", account.ID, "error", err)
	}
	s.logger.Info("deposit settled", "user_id", account.UserID, "va_id", account.ID, "amount", paid.String())
	return nil
}
