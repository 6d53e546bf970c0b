package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

// CreateDisbursementAccount stores a payout destination.
func (r *Repository) CreateDisbursementAccount(ctx context.Context, account *domain.DisbursementAccount) error {
	const query = `INSERT INTO disbursement_accounts (id, user_id, provider, channel_code, holder_name, account_number, masked_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, account.ID, account.UserID, account.Provider, account.ChannelCode, account.HolderName, account.AccountNumber, account.MaskedNumber, account.CreatedAt)
	if isForeignKeyViolation(err) {
		return repository.ErrNotFound
	}
	return err
}

// GetDisbursementAccount fetches a payout destination.
func (r *Repository) GetDisbursementAccount(ctx context.Context, id string) (*domain.DisbursementAccount, error) {
	const query = `SELECT id, user_id, provider, channel_code, holder_name, account_number, masked_number, created_at
		FROM disbursement_accounts WHERE id = $1`
	var a domain.DisbursementAccount
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.UserID, &a.Provider, &a.ChannelCode, &a.HolderName, &a.AccountNumber, &a.MaskedNumber, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListDisbursementAccountsByUser returns the user's payout destinations.
func (r *Repository) ListDisbursementAccountsByUser(ctx context.Context, userID string) ([]domain.DisbursementAccount, error) {
	const query = `SELECT id, user_id, provider, channel_code, holder_name, account_number, masked_number, created_at
		FROM disbursement_accounts WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.DisbursementAccount, 0)
	for rows.Next() {
		var a domain.DisbursementAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ChannelCode, &a.HolderName, &a.AccountNumber, &a.MaskedNumber, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteDisbursementAccount removes a destination owned by the user.
func (r *Repository) DeleteDisbursementAccount(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM disbursement_accounts WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateVirtualAccount stores a deposit expectation.
func (r *Repository) CreateVirtualAccount(ctx context.Context, account *domain.VirtualAccount) error {
	const query = `INSERT INTO virtual_accounts (id, user_id, provider, provider_ref, bank_code, account_number, expected_amount, transaction_id, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, query, account.ID, account.UserID, account.Provider, account.ProviderRef, account.BankCode, account.AccountNumber, account.ExpectedAmount, account.TransactionID, account.Status, account.ExpiresAt, account.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetVirtualAccountByProviderRef locates the expectation a settlement webhook
// refers to.
func (r *Repository) GetVirtualAccountByProviderRef(ctx context.Context, provider, ref string) (*domain.VirtualAccount, error) {
	const query = `SELECT id, user_id, provider, provider_ref, bank_code, account_number, expected_amount, transaction_id, status, expires_at, created_at
		FROM virtual_accounts WHERE provider = $1 AND provider_ref = $2`
	var va domain.VirtualAccount
	err := r.pool.QueryRow(ctx, query, provider, ref).Scan(&va.ID, &va.UserID, &va.Provider, &va.ProviderRef, &va.BankCode, &va.AccountNumber, &va.ExpectedAmount, &va.TransactionID, &va.Status, &va.ExpiresAt, &va.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &va, nil
}

// UpdateVirtualAccountStatus transitions a deposit expectation.
func (r *Repository) UpdateVirtualAccountStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE virtual_accounts SET status = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// InsertWebhookEvent records an inbound callback; the unique index on
// (provider, event_id) is the idempotency guard.
func (r *Repository) InsertWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error {
	const query = `INSERT INTO webhook_events (id, provider, event_id, kind, payload, processed, fail_reason, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, event.ID, event.Provider, event.EventID, event.Kind, event.Payload, event.Processed, event.FailReason, event.ReceivedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// MarkWebhookEventProcessed finalizes the event record.
func (r *Repository) MarkWebhookEventProcessed(ctx context.Context, id, failReason string) error {
	const query = `UPDATE webhook_events SET processed = TRUE, fail_reason = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, failReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
