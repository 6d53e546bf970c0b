package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository                = (*Repository)(nil)
	_ repository.WalletRepository              = (*Repository)(nil)
	_ repository.DisbursementAccountRepository = (*Repository)(nil)
	_ repository.VirtualAccountRepository      = (*Repository)(nil)
	_ repository.WebhookEventRepository        = (*Repository)(nil)
	_ repository.ContestRepository             = (*Repository)(nil)
	_ repository.DraftRepository               = (*Repository)(nil)
	_ repository.PlayerRepository              = (*Repository)(nil)
)

// CreateUser inserts a user with a zero balance.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, email, username, password_hash, balance, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.Username, user.PasswordHash, user.Balance, user.Admin, user.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, username, password_hash, balance, is_admin, created_at FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, username, password_hash, balance, is_admin, created_at FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// ListUserIDs returns every user id, for the reconciliation pass.
func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM users ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Balance, &u.Admin, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// DebitBalance subtracts amount when the balance covers it. The guard in the
// WHERE clause is what prevents double-spend from concurrent requests.
func (r *Repository) DebitBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	const query = `UPDATE users SET balance = balance - $2 WHERE id = $1 AND balance >= $2`
	tag, err := r.pool.Exec(ctx, query, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetUserByID(ctx, userID); errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrInsufficientBalance
	}
	return nil
}

// CreditBalance adds amount to the user's balance.
func (r *Repository) CreditBalance(ctx context.Context, userID string, amount decimal.Decimal) error {
	const query = `UPDATE users SET balance = balance + $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetBalance reads the stored balance.
func (r *Repository) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	const query = `SELECT balance FROM users WHERE id = $1`
	var balance decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, repository.ErrNotFound
		}
		return decimal.Zero, err
	}
	return balance, nil
}

// CreateTransaction inserts a ledger row.
func (r *Repository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	const query = `INSERT INTO transactions (id, user_id, type, status, amount, fee, provider, provider_ref, fail_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	_, err := r.pool.Exec(ctx, query, tx.ID, tx.UserID, tx.Type, tx.Status, tx.Amount, tx.Fee, tx.Provider, tx.ProviderRef, tx.FailReason, tx.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// UpdateTransactionStatus transitions a ledger row.
func (r *Repository) UpdateTransactionStatus(ctx context.Context, txID, status, failReason string) error {
	const query = `UPDATE transactions SET status = $2, fail_reason = $3, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, txID, status, failReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkTransactionProcessing records the provider reference and moves the row
// to processing.
func (r *Repository) MarkTransactionProcessing(ctx context.Context, txID, providerRef string) error {
	const query = `UPDATE transactions SET status = 'processing', provider_ref = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, txID, providerRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetTransactionByID fetches one ledger row.
func (r *Repository) GetTransactionByID(ctx context.Context, txID string) (*domain.Transaction, error) {
	const query = `SELECT id, user_id, type, status, amount, fee, provider, provider_ref, fail_reason, created_at, updated_at
		FROM transactions WHERE id = $1`
	return r.scanTransaction(r.pool.QueryRow(ctx, query, txID))
}

// GetTransactionByProviderRef locates the ledger row a webhook refers to.
func (r *Repository) GetTransactionByProviderRef(ctx context.Context, provider, ref string) (*domain.Transaction, error) {
	const query = `SELECT id, user_id, type, status, amount, fee, provider, provider_ref, fail_reason, created_at, updated_at
		FROM transactions WHERE provider = $1 AND provider_ref = $2`
	return r.scanTransaction(r.pool.QueryRow(ctx, query, provider, ref))
}

// ListTransactionsByUser pages the user's ledger, newest first.
func (r *Repository) ListTransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error) {
	const query = `SELECT id, user_id, type, status, amount, fee, provider, provider_ref, fail_reason, created_at, updated_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Status, &tx.Amount, &tx.Fee, &tx.Provider, &tx.ProviderRef, &tx.FailReason, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// SumCompletedByUser computes the signed ledger sum the balance should
// equal. Credits count once completed; debits count from the moment the
// balance was taken (withdrawals are debited up front, before the provider
// call), so in-flight withdrawals do not show up as drift.
func (r *Repository) SumCompletedByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(CASE
			WHEN type IN ('deposit', 'prize', 'refund') AND status = 'completed' THEN amount
			WHEN type IN ('withdrawal', 'entry_fee') AND status IN ('pending', 'processing', 'completed') THEN -amount
			ELSE 0 END), 0)
		FROM transactions WHERE user_id = $1`
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *Repository) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := row.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Status, &tx.Amount, &tx.Fee, &tx.Provider, &tx.ProviderRef, &tx.FailReason, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
