package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
	TxTypeEntryFee   = "entry_fee"
	TxTypePrize      = "prize"
	TxTypeRefund     = "refund"
)

// Transaction statuses.
const (
	TxStatusPending      = "pending"
	TxStatusProcessing   = "processing"
	TxStatusCompleted    = "completed"
	TxStatusFailed       = "failed"
	TxStatusManualReview = "requires_manual_review"
)

// Transaction is a ledger row. Amount is always positive; Type determines
// the direction. ProviderRef is the external provider's reference for
// deposits and withdrawals.
type Transaction struct {
	ID          string
	UserID      string
	Type        string
	Status      string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Provider    string
	ProviderRef string
	FailReason  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the transaction has reached a final state.
func (t Transaction) Terminal() bool {
	switch t.Status {
	case TxStatusCompleted, TxStatusFailed, TxStatusManualReview:
		return true
	}
	return false
}
