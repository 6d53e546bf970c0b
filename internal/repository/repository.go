package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/domain"
)

// UserRepository persists users and wallet balances.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// WalletRepository mutates balances and the transaction ledger.
type WalletRepository interface {
	// DebitBalance subtracts amount only when the stored balance covers it,
	// in a single statement. Returns ErrInsufficientBalance otherwise.
	DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	CreditBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)

	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	UpdateTransactionStatus(ctx context.Context, txID, status, failReason string) error
	// MarkTransactionProcessing stores the provider reference alongside the
	// status transition so webhooks can locate the row.
	MarkTransactionProcessing(ctx context.Context, txID, providerRef string) error
	GetTransactionByID(ctx context.Context, txID string) (*domain.Transaction, error)
	GetTransactionByProviderRef(ctx context.Context, provider, ref string) (*domain.Transaction, error)
	ListTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error)
	SumCompletedByUser(ctx context.Context, userID string) (decimal.Decimal, error)
}

// DisbursementAccountRepository stores payout destinations.
type DisbursementAccountRepository interface {
	CreateDisbursementAccount(ctx context.Context, account *domain.DisbursementAccount) error
	GetDisbursementAccount(ctx context.Context, id string) (*domain.DisbursementAccount, error)
	ListDisbursementAccountsByUser(ctx context.Context, userID string) ([]domain.DisbursementAccount, error)
	DeleteDisbursementAccount(ctx context.Context, id, userID string) error
}

// VirtualAccountRepository stores deposit expectations.
type VirtualAccountRepository interface {
	CreateVirtualAccount(ctx context.Context, account *domain.VirtualAccount) error
	GetVirtualAccountByProviderRef(ctx context.Context, provider, ref string) (*domain.VirtualAccount, error)
	UpdateVirtualAccountStatus(ctx context.Context, id, status string) error
}

// WebhookEventRepository records inbound callbacks for idempotency.
type WebhookEventRepository interface {
	// InsertWebhookEvent returns ErrDuplicate when (provider, event_id) was
	// already recorded.
	InsertWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error
	MarkWebhookEventProcessed(ctx context.Context, id, failReason string) error
}

// ContestRepository persists contests and entries.
type ContestRepository interface {
	CreateContest(ctx context.Context, contest *domain.Contest) error
	GetContestByID(ctx context.Context, id string) (*domain.Contest, error)
	ListContests(ctx context.Context, status string, limit, offset int) ([]domain.Contest, error)
	UpdateContestStatus(ctx context.Context, id, status string) error
	// CreateContestEntry increments the entrant count and inserts the entry
	// atomically; it fails with ErrInvalidArgument when the contest is full
	// or not open, and ErrDuplicate for a repeat entry.
	CreateContestEntry(ctx context.Context, entry *domain.ContestEntry) error
}

// DraftRepository persists draft rooms, seats, and picks.
type DraftRepository interface {
	CreateDraftRoom(ctx context.Context, room *domain.DraftRoom) error
	GetDraftRoom(ctx context.Context, id string) (*domain.DraftRoom, error)
	UpdateDraftRoom(ctx context.Context, room *domain.DraftRoom) error
	ListExpiredDraftRooms(ctx context.Context, now time.Time) ([]domain.DraftRoom, error)
	AddDraftSeat(ctx context.Context, seat *domain.DraftSeat) error
	ListDraftSeats(ctx context.Context, roomID string) ([]domain.DraftSeat, error)
	InsertDraftPick(ctx context.Context, pick *domain.DraftPick) error
	ListDraftPicks(ctx context.Context, roomID string) ([]domain.DraftPick, error)
	InsertIntegrityFlag(ctx context.Context, flag *domain.DraftIntegrityFlag) error
	ListIntegrityFlags(ctx context.Context, reviewed *bool, limit, offset int) ([]domain.DraftIntegrityFlag, error)
}

// PlayerRepository persists projection rows.
type PlayerRepository interface {
	UpsertPlayers(ctx context.Context, players []domain.Player) (int, error)
	ListPlayers(ctx context.Context, position string, limit, offset int) ([]domain.Player, error)
	GetPlayerByID(ctx context.Context, id string) (*domain.Player, error)
	ListAvailablePlayers(ctx context.Context, roomID string, limit int) ([]domain.Player, error)
	LatestPlayerUpdate(ctx context.Context) (time.Time, error)
}
