package contest

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

func TestCreateAppliesDefaults(t *testing.T) {
	contests := &fakeContests{}
	svc := newTestService(contests, &fakeWallet{})

	contest, err := svc.Create(context.Background(), CreateInput{Name: "  Sunday Main  "})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if contest.Name != "Sunday Main" {
		t.Fatalf("expected trimmed name, got %q", contest.Name)
	}
	if contest.MaxEntrants != defaultMaxEntrants || contest.RosterSize != defaultRosterSize {
		t.Fatalf("expected defaults applied, got %+v", contest)
	}
	if contest.Status != domain.ContestStatusOpen {
		t.Fatalf("expected open status, got %q", contest.Status)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(&fakeContests{}, &fakeWallet{})

	if _, err := svc.Create(context.Background(), CreateInput{Name: "   "}); apperror.CodeOf(err) != apperror.CodeValidation {
		t.Fatalf("expected VALIDATION for blank name, got %v", err)
	}
	input := CreateInput{Name: "Bad Fee", EntryFee: decimal.NewFromInt(-5)}
	if _, err := svc.Create(context.Background(), input); apperror.CodeOf(err) != apperror.CodeValidation {
		t.Fatalf("expected VALIDATION for negative fee, got %v", err)
	}
}

func TestEnterDebitsFeeAndRecordsEntry(t *testing.T) {
	contests := &fakeContests{contest: openContest(decimal.NewFromInt(25))}
	wallet := &fakeWallet{}
	svc := newTestService(contests, wallet)

	entry, err := svc.Enter(context.Background(), "contest-1", "user-1")
	if err != nil {
		t.Fatalf("Enter returned error: %v", err)
	}
	if !wallet.debited.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected fee debit of 25, got %s", wallet.debited)
	}
	if len(wallet.transactions) != 1 || wallet.transactions[0].Type != domain.TxTypeEntryFee {
		t.Fatalf("expected entry fee transaction, got %+v", wallet.transactions)
	}
	if entry.TransactionID != wallet.transactions[0].ID {
		t.Fatal("expected entry linked to fee transaction")
	}
	if len(contests.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(contests.entries))
	}
}

func TestEnterFreeContestSkipsWallet(t *testing.T) {
	contests := &fakeContests{contest: openContest(decimal.Zero)}
	wallet := &fakeWallet{}
	svc := newTestService(contests, wallet)

	entry, err := svc.Enter(context.Background(), "contest-1", "user-1")
	if err != nil {
		t.Fatalf("Enter returned error: %v", err)
	}
	if !wallet.debited.IsZero() || len(wallet.transactions) != 0 {
		t.Fatal("expected no wallet activity for a free contest")
	}
	if entry.TransactionID != "" {
		t.Fatalf("expected no transaction link, got %q", entry.TransactionID)
	}
}

func TestEnterInsufficientBalance(t *testing.T) {
	contests := &fakeContests{contest: openContest(decimal.NewFromInt(25))}
	wallet := &fakeWallet{debitErr: repository.ErrInsufficientBalance}
	svc := newTestService(contests, wallet)

	_, err := svc.Enter(context.Background(), "contest-1", "user-1")
	if apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if len(contests.entries) != 0 {
		t.Fatalf("expected no entry, got %d", len(contests.entries))
	}
}

func TestEnterFullContestRefundsFee(t *testing.T) {
	contests := &fakeContests{
		contest:  openContest(decimal.NewFromInt(25)),
		entryErr: repository.ErrInvalidArgument,
	}
	wallet := &fakeWallet{}
	svc := newTestService(contests, wallet)

	_, err := svc.Enter(context.Background(), "contest-1", "user-1")
	if apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if !wallet.credited.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected refund of 25, got %s", wallet.credited)
	}
	if wallet.lastStatus != domain.TxStatusFailed {
		t.Fatalf("expected fee transaction voided, got %q", wallet.lastStatus)
	}
}

func TestEnterDuplicateRefundsFee(t *testing.T) {
	contests := &fakeContests{
		contest:  openContest(decimal.NewFromInt(25)),
		entryErr: repository.ErrDuplicate,
	}
	wallet := &fakeWallet{}
	svc := newTestService(contests, wallet)

	_, err := svc.Enter(context.Background(), "contest-1", "user-1")
	if apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if !wallet.credited.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected refund of 25, got %s", wallet.credited)
	}
}

func TestEnterClosedContest(t *testing.T) {
	contest := openContest(decimal.NewFromInt(25))
	contest.Status = domain.ContestStatusComplete
	contests := &fakeContests{contest: contest}
	wallet := &fakeWallet{}
	svc := newTestService(contests, wallet)

	_, err := svc.Enter(context.Background(), "contest-1", "user-1")
	if apperror.CodeOf(err) != apperror.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if !wallet.debited.IsZero() {
		t.Fatalf("expected no debit, got %s", wallet.debited)
	}
}

func openContest(fee decimal.Decimal) *domain.Contest {
	return &domain.Contest{
		ID:          "contest-1",
		Name:        "Sunday Main",
		EntryFee:    fee,
		MaxEntrants: 12,
		RosterSize:  18,
		Status:      domain.ContestStatusOpen,
	}
}

func newTestService(contests *fakeContests, wallet *fakeWallet) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(contests, wallet, logger)
}

type fakeContests struct {
	contest  *domain.Contest
	entries  []domain.ContestEntry
	entryErr error
}

func (f *fakeContests) CreateContest(_ context.Context, contest *domain.Contest) error {
	f.contest = contest
	return nil
}

func (f *fakeContests) GetContestByID(_ context.Context, id string) (*domain.Contest, error) {
	if f.contest == nil || f.contest.ID != id {
		return nil, repository.ErrNotFound
	}
	contestCopy := *f.contest
	return &contestCopy, nil
}

func (f *fakeContests) ListContests(context.Context, string, int, int) ([]domain.Contest, error) {
	return nil, nil
}

func (f *fakeContests) UpdateContestStatus(context.Context, string, string) error { return nil }

func (f *fakeContests) CreateContestEntry(_ context.Context, entry *domain.ContestEntry) error {
	if f.entryErr != nil {
		return f.entryErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

type fakeWallet struct {
	debited      decimal.Decimal
	debitErr     error
	credited     decimal.Decimal
	transactions []domain.Transaction
	lastStatus   string
}

func (f *fakeWallet) DebitBalance(_ context.Context, _ string, amount decimal.Decimal) error {
	if f.debitErr != nil {
		return f.debitErr
	}
	f.debited = f.debited.Add(amount)
	return nil
}

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
