// Package provider holds REST clients for hosted payment providers. Clients
// implement narrow interfaces so services can be tested against fakes.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrTransient marks a failure worth retrying (timeouts, 5xx).
var ErrTransient = errors.New("provider: transient failure")

// ErrRejected marks a definitive provider rejection (4xx); retrying cannot
// help and the caller must compensate.
var ErrRejected = errors.New("provider: request rejected")

// Limits bound a single disbursement for a provider.
type Limits struct {
	Min decimal.Decimal
	Max decimal.Decimal
	Fee decimal.Decimal
}

// DisbursementRequest describes a payout to an external account.
type DisbursementRequest struct {
	IdempotencyKey string
	Amount         decimal.Decimal
	ChannelCode    string
	AccountNumber  string
	HolderName     string
	Description    string
}

// DisbursementResult is the provider's acknowledgement; final state arrives
// via webhook.
type DisbursementResult struct {
	Reference string
	Status    string
}

// VirtualAccountRequest asks for a bank-transfer destination bound to an
// expected amount.
type VirtualAccountRequest struct {
	ReferenceID    string
	BankCode       string
	HolderName     string
	ExpectedAmount decimal.Decimal
	ExpiresAt      time.Time
}

// VirtualAccountResult carries the issued account details.
type VirtualAccountResult struct {
	Reference     string
	BankCode      string
	AccountNumber string
}

// Disburser creates payouts.
type Disburser interface {
	Name() string
	Limits() Limits
	CreateDisbursement(ctx context.Context, req DisbursementRequest) (*DisbursementResult, error)
}

// VirtualAccountIssuer creates deposit expectations.
type VirtualAccountIssuer interface {
	Name() string
	CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) (*VirtualAccountResult, error)
}
