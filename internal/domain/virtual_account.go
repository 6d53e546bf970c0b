package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Virtual account statuses.
const (
	VAStatusPending = "pending"
	VAStatusPaid    = "paid"
	VAStatusExpired = "expired"
)

// VirtualAccount is a provider-issued bank-transfer destination bound to an
// expected deposit amount. Settlement arrives via webhook; a paid amount that
// does not match the expectation is routed to manual review.
type VirtualAccount struct {
	ID             string
	UserID         string
	Provider       string
	ProviderRef    string
	BankCode       string
	AccountNumber  string
	ExpectedAmount decimal.Decimal
	TransactionID  string
	Status         string
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
