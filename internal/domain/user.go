package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holder with a wallet balance. Balance is authoritative
// for spending; the transactions ledger is reconciled against it post-hoc.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash []byte
	Balance      decimal.Decimal
	Admin        bool
	CreatedAt    time.Time
}
