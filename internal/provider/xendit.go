package provider

import (
	"context"
	"encoding/base64"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"
)

// Xendit is the disbursement and virtual-account client for Xendit's REST
// API. Authentication is HTTP basic with the API key as username.
type Xendit struct {
	rest   *restClient
	limits Limits
}

// NewXendit constructs a Xendit client.
func NewXendit(baseURL, apiKey string, timeout time.Duration, maxRetry int, logger *slog.Logger) *Xendit {
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":"))
	headers := map[string]string{"Authorization": auth}
	return &Xendit{
		rest: newRESTClient(baseURL, timeout, maxRetry, headers, logger.With("provider", "xendit")),
		limits: Limits{
			Min: decimal.NewFromInt(10),
			Max: decimal.NewFromInt(10000),
			Fee: decimal.NewFromFloat(0.5),
		},
	}
}

// Name identifies the provider in ledger rows and webhook routing.
func (x *Xendit) Name() string { return "xendit" }

// Limits returns per-disbursement bounds.
func (x *Xendit) Limits() Limits { return x.limits }

// CreateDisbursement submits a payout. The external_id doubles as the
// idempotency key on Xendit's side.
func (x *Xendit) CreateDisbursement(ctx context.Context, req DisbursementRequest) (*DisbursementResult, error) {
	body := map[string]any{
		"external_id":         req.IdempotencyKey,
		"amount":              req.Amount.InexactFloat64(),
		"bank_code":           req.ChannelCode,
		"account_holder_name": req.HolderName,
		"account_number":      req.AccountNumber,
		"description":         req.Description,
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := x.rest.postJSON(ctx, "/disbursements", body, &resp); err != nil {
		return nil, err
	}
	return &DisbursementResult{Reference: resp.ID, Status: resp.Status}, nil
}

// CreateVirtualAccount issues a closed virtual account bound to the expected
// amount.
func (x *Xendit) CreateVirtualAccount(ctx context.Context, req VirtualAccountRequest) (*VirtualAccountResult, error) {
	body := map[string]any{
		"external_id":     req.ReferenceID,
		"bank_code":       req.BankCode,
		"name":            req.HolderName,
		"is_closed":       true,
		"expected_amount": req.ExpectedAmount.InexactFloat64(),
		"expiration_date": req.ExpiresAt.UTC().Format(time.RFC3339),
	}
	var resp struct {
		ID            string `json:"id"`
		BankCode      string `json:"bank_code"`
		AccountNumber string `json:"account_number"`
	}
	if err := x.rest.postJSON(ctx, "/callback_virtual_accounts", body, &resp); err != nil {
		return nil, err
	}
	return &VirtualAccountResult{Reference: resp.ID, BankCode: resp.BankCode, AccountNumber: resp.AccountNumber}, nil
}
