package contest

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

const (
	defaultRosterSize  = 18
	defaultMaxEntrants = 12
)

// Service manages contests and paid entries.
type Service struct {
	contests repository.ContestRepository
	wallet   repository.WalletRepository
	logger   *slog.Logger
}

// New constructs a contest service.
func New(contests repository.ContestRepository, wallet repository.WalletRepository, logger *slog.Logger) Service {
	return Service{contests: contests, wallet: wallet, logger: logger}
}

// CreateInput describes a new contest.
type CreateInput struct {
	Name        string          `json:"name"`
	EntryFee    decimal.Decimal `json:"entry_fee"`
	PrizePool   decimal.Decimal `json:"prize_pool"`
	MaxEntrants int             `json:"max_entrants"`
	RosterSize  int             `json:"roster_size"`
}

// Create registers an open contest.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Contest, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.Validation("contest name is required")
	}
	if input.EntryFee.IsNegative() {
		return nil, apperror.Validation("entry fee cannot be negative")
	}
	if input.MaxEntrants <= 0 {
		input.MaxEntrants = defaultMaxEntrants
	}
	if input.RosterSize <= 0 {
		input.RosterSize = defaultRosterSize
	}
	contest := &domain.Contest{
		ID:          uuid.NewString(),
		Name:        name,
		EntryFee:    input.EntryFee,
		PrizePool:   input.PrizePool,
		MaxEntrants: input.MaxEntrants,
		RosterSize:  input.RosterSize,
		Status:      domain.ContestStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.contests.CreateContest(ctx, contest); err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not create contest", err)
	}
	s.logger.Info("contest created", "contest_id", contest.ID, "entry_fee", contest.EntryFee.String())
	return contest, nil
}

// Get fetches a contest.
func (s Service) Get(ctx context.Context, id string) (*domain.Contest, error) {
	contest, err := s.contests.GetContestByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.New(apperror.CodeNotFound, "contest not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not load contest", err)
	}
	return contest, nil
}

// List pages contests, optionally by status.
func (s Service) List(ctx context.Context, status string, limit, offset int) ([]domain.Contest, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	contests, err := s.contests.ListContests(ctx, strings.TrimSpace(status), limit, offset)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not list contests", err)
	}
	return contests, nil
}

// Enter debits the entry fee and claims a seat. The fee debit uses the same
// conditional update as withdrawals, so a user cannot enter past their
// balance from concurrent requests; a full or closed contest refunds the
// debit.
func (s Service) Enter(ctx context.Context, contestID, userID string) (*domain.ContestEntry, error) {
	contest, err := s.Get(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != domain.ContestStatusOpen {
		return nil, apperror.New(apperror.CodeConflict, "contest is not open")
	}

	fee := contest.EntryFee
	var txID string
	if fee.IsPositive() {
		if err := s.wallet.DebitBalance(ctx, userID, fee); err != nil {
			switch {
			case errors.Is(err, repository.ErrInsufficientBalance):
				return nil, apperror.New(apperror.CodeConflict, "insufficient balance")
			case errors.Is(err, repository.ErrNotFound):
				return nil, apperror.New(apperror.CodeNotFound, "user not found")
			}
			return nil, apperror.Wrap(apperror.CodeDatabase, "could not debit entry fee", err)
		}
		tx := &domain.Transaction{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      domain.TxTypeEntryFee,
			Status:    domain.TxStatusCompleted,
			Amount:    fee,
			Fee:       decimal.Zero,
			Provider:  "wallet",
			CreatedAt: time.Now().UTC(),
		}
		if err := s.wallet.CreateTransaction(ctx, tx); err != nil {
			s.refundEntryFee(ctx, userID, fee, "")
			return nil, apperror.Wrap(apperror.CodeDatabase, "could not record entry fee", err)
		}
		txID = tx.ID
	}

	entry := &domain.ContestEntry{
		ID:            uuid.NewString(),
		ContestID:     contestID,
		UserID:        userID,
		TransactionID: txID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.contests.CreateContestEntry(ctx, entry); err != nil {
		if fee.IsPositive() {
			s.refundEntryFee(ctx, userID, fee, txID)
		}
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.New(apperror.CodeConflict, "already entered")
		case errors.Is(err, repository.ErrInvalidArgument):
			return nil, apperror.New(apperror.CodeConflict, "contest is full or closed")
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.New(apperror.CodeNotFound, "contest not found")
		}
		return nil, apperror.Wrap(apperror.CodeDatabase, "could not create entry", err)
	}
	s.logger.Info("contest entered", "contest_id", contestID, "user_id", userID)
	return entry, nil
}

func (s Service) refundEntryFee(ctx context.Context, userID string, fee decimal.Decimal, txID string) {
	if err := s.wallet.CreditBalance(ctx, userID, fee); err != nil {
		s.logger.Error("entry fee refund failed, manual review required", "user_id", userID, "amount", fee.String(), "error", err)
		if txID != "" {
			if markErr := s.wallet.UpdateTransactionStatus(ctx, txID, domain.TxStatusManualReview, "entry fee refund failed"); markErr != nil {
				s.logger.Error("failed to park entry fee transaction", "tx_id", txID, "error", markErr)
			}
		}
		return
	}
	if txID != "" {
		if err := s.wallet.UpdateTransactionStatus(ctx, txID, domain.TxStatusFailed, "entry rejected"); err != nil {
			s.logger.Error("failed to void entry fee transaction", "tx_id", txID, "error", err)
		}
	}
}
