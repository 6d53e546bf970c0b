package funding

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/provider"
	"github.com/topdog/backend/internal/repository"
)

func TestCreateVirtualAccountRecordsPendingDeposit(t *testing.T) {
	wallet := &fakeWallet{}
	accounts := &fakeAccounts{}
	issuer := &fakeIssuer{reference: "va-ref-1", accountNumber: "9900112233"}
	svc := newTestService(wallet, accounts, issuer)

	account, err := svc.CreateVirtualAccount(context.Background(), "user-1", "BCA", "Test User", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("CreateVirtualAccount returned error: %v", err)
	}
	if account.ProviderRef != "va-ref-1" || account.AccountNumber != "9900112233" {
		t.Fatalf("unexpected account %+v", account)
	}
	if account.Status != domain.VAStatusPending {
		t.Fatalf("expected pending status, got %q", account.Status)
	}
	if len(wallet.transactions) != 1 {
		t.Fatalf("expected one transaction, got %d", len(wallet.transactions))
	}
	tx := wallet.transactions[0]
	if tx.Status != domain.TxStatusPending || tx.Type != domain.TxTypeDeposit {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if account.TransactionID != tx.ID {
		t.Fatal("expected virtual account linked to deposit transaction")
	}
	if !wallet.credited.IsZero() {
		t.Fatalf("expected no credit until settlement, got %s", wallet.credited)
	}
}

func TestCreateVirtualAccountValidatesInput(t *testing.T) {
	svc := newTestService(&fakeWallet{}, &fakeAccounts{}, &fakeIssuer{})

	if _, err := svc.CreateVirtualAccount(context.Background(), "user-1", "BCA", "Test", decimal.Zero); apperror.CodeOf(err) != apperror.CodeValidation {
		t.Fatalf("expected VALIDATION for zero amount, got %v", err)
	}
	if _, err := svc.CreateVirtualAccount(context.Background(), "user-1", "", "Test", decimal.NewFromInt(100)); apperror.CodeOf(err) != apperror.CodeValidation {
		t.Fatalf("expected VALIDATION for missing bank code, got %v", err)
	}
}

func TestCreateVirtualAccountIssuerFailure(t *testing.T) {
	wallet := &fakeWallet{}
	issuer := &fakeIssuer{err: errors.New("provider down")}
	svc := newTestService(wallet, &fakeAccounts{}, issuer)

	_, err := svc.CreateVirtualAccount(context.Background(), "user-1", "BCA", "Test", decimal.NewFromInt(100))
	if apperror.CodeOf(err) != apperror.CodeExternalAPI {
		t.Fatalf("expected EXTERNAL_API, got %v", err)
	}
	if len(wallet.transactions) != 0 {
		t.Fatalf("expected no transaction on issuer failure, got %d", len(wallet.transactions))
	}
}

func TestSettlePaymentCreditsExactMatch(t *testing.T) {
	wallet := &fakeWallet{}
	accounts := &fakeAccounts{account: pendingAccount(decimal.NewFromInt(500))}
	svc := newTestService(wallet, accounts, &fakeIssuer{})

	if err := svc.SettlePayment(context.Background(), "xendit", "va-ref-1", decimal.NewFromInt(500)); err != nil {
		t.Fatalf("SettlePayment returned error: %v", err)
	}
	if !wallet.credited.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected credit of 500, got %s", wallet.credited)
	}
	if wallet.lastStatus != domain.TxStatusCompleted {
		t.Fatalf("expected completed transaction, got %q", wallet.lastStatus)
	}
	if accounts.lastStatus != domain.VAStatusPaid {
		t.Fatalf("expected account marked paid, got %q", accounts.lastStatus)
	}
}

func TestSettlePaymentMismatchParksForReview(t *testing.T) {
	wallet := &fakeWallet{}
	accounts := &fakeAccounts{account: pendingAccount(decimal.NewFromInt(500))}
	svc := newTestService(wallet, accounts, &fakeIssuer{})

	if err := svc.SettlePayment(context.Background(), "xendit", "va-ref-1", decimal.NewFromInt(499)); err != nil {
		t.Fatalf("SettlePayment returned error: %v", err)
	}
	if !wallet.credited.IsZero() {
		t.Fatalf("expected no credit on mismatch, got %s", wallet.credited)
	}
	if wallet.lastStatus != domain.TxStatusManualReview {
		t.Fatalf("expected manual review, got %q", wallet.lastStatus)
	}
}

func TestSettlePaymentIgnoresReplay(t *testing.T) {
	wallet := &fakeWallet{}
	account := pendingAccount(decimal.NewFromInt(500))
	account.Status = domain.VAStatusPaid
	accounts := &fakeAccounts{account: account}
	svc := newTestService(wallet, accounts, &fakeIssuer{})

	if err := svc.SettlePayment(context.Background(), "xendit", "va-ref-1", decimal.NewFromInt(500)); err != nil {
		t.Fatalf("expected replay acknowledged, got %v", err)
	}
	if !wallet.credited.IsZero() {
		t.Fatalf("expected no double credit, got %s", wallet.credited)
	}
	if wallet.statusUpdates != 0 {
		t.Fatalf("expected no status update on replay, got %d", wallet.statusUpdates)
	}
}

func TestSettlePaymentUnknownReference(t *testing.T) {
	svc := newTestService(&fakeWallet{}, &fakeAccounts{}, &fakeIssuer{})

	err := svc.SettlePayment(context.Background(), "xendit", "missing", decimal.NewFromInt(500))
	if apperror.CodeOf(err) != apperror.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func pendingAccount(expected decimal.Decimal) *domain.VirtualAccount {
	return &domain.VirtualAccount{
		ID:             "va-1",
		UserID:         "user-1",
		Provider:       "xendit",
		ProviderRef:    "va-ref-1",
		BankCode:       "BCA",
		AccountNumber:  "9900112233",
		ExpectedAmount: expected,
		TransactionID:  "tx-1",
		Status:         domain.VAStatusPending,
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
	}
}

func newTestService(wallet *fakeWallet, accounts *fakeAccounts, issuer *fakeIssuer) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(wallet, accounts, issuer, logger)
}

type fakeWallet struct {
	credited      decimal.Decimal
	transactions  []domain.Transaction
	lastStatus    string
	statusUpdates int
}

func (f *fakeWallet) DebitBalance(context.Context, string, decimal.Decimal) error { return nil }

func (f *fakeWallet) CreditBalance(_ context.Context, _ string, amount decimal.Decimal) error {
	f.credited = f.credited.Add(amount)
	return nil
}

func (f *fakeWallet) GetBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeWallet) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	f.transactions = append(f.transactions, *tx)
	return nil
}

func (f *fakeWallet) UpdateTransactionStatus(_ context.Context, _, status, _ string) error {
	f.statusUpdates++
	f.lastStatus = status
	return nil
}

func (f *fakeWallet) MarkTransactionProcessing(context.Context, string, string) error { return nil }

func (f *fakeWallet) GetTransactionByID(context.Context, string) (*domain.Transaction, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeWallet) GetTransactionByProviderRef(context.Context, string, string) (*domain.Transaction, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeWallet) ListTransactionsByUser(context.Context, string, int, int) ([]domain.Transaction, error) {
	return nil, nil
}

func (f *fakeWallet) SumCompletedByUser(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fakeAccounts struct {
	account    *domain.VirtualAccount
	created    []domain.VirtualAccount
	lastStatus string
}

func (f *fakeAccounts) CreateVirtualAccount(_ context.Context, account *domain.VirtualAccount) error {
	f.created = append(f.created, *account)
	return nil
}

func (f *fakeAccounts) GetVirtualAccountByProviderRef(_ context.Context, providerName, ref string) (*domain.VirtualAccount, error) {
	if f.account == nil || f.account.Provider != providerName || f.account.ProviderRef != ref {
		return nil, repository.ErrNotFound
	}
	accountCopy := *f.account
	return &accountCopy, nil
}

func (f *fakeAccounts) UpdateVirtualAccountStatus(_ context.Context, _, status string) error {
	f.lastStatus = status
	return nil
}

type fakeIssuer struct {
	reference     string
	accountNumber string
	err           error
}

func (f *fakeIssuer) Name() string { return "xendit" }

func (f *fakeIssuer) CreateVirtualAccount(_ context.Context, req provider.VirtualAccountRequest) (*provider.VirtualAccountResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &provider.VirtualAccountResult{
		Reference:     f.reference,
		BankCode:      req.BankCode,
		AccountNumber: f.accountNumber,
	}, nil
}
