package provider

import (
	"context"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"
)

// Paystack is the transfer client for Paystack's REST API. Amounts go over
// the wire in subunits (kobo).
type Paystack struct {
	rest   *restClient
	limits Limits
}

// NewPaystack constructs a Paystack client.
func NewPaystack(baseURL, apiKey string, timeout time.Duration, maxRetry int, logger *slog.Logger) *Paystack {
	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	return &Paystack{
		rest: newRESTClient(baseURL, timeout, maxRetry, headers, logger.With("provider", "paystack")),
		limits: Limits{
			Min: decimal.NewFromInt(5),
			Max: decimal.NewFromInt(50000),
			Fee: decimal.NewFromInt(1),
		},
	}
}

// Name identifies the provider in ledger rows and webhook routing.
func (p *Paystack) Name() string { return "paystack" }

// Limits returns per-disbursement bounds.
func (p *Paystack) Limits() Limits { return p.limits }

// CreateDisbursement initiates a transfer. The reference is the idempotency
// key on Paystack's side.
func (p *Paystack) CreateDisbursement(ctx context.Context, req DisbursementRequest) (*DisbursementResult, error) {
	body := map[string]any{
		"source":    "balance",
		"reference": req.IdempotencyKey,
		"amount":    req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"recipient": req.AccountNumber,
		"reason":    req.Description,
	}
	var resp struct {
		Data struct {
			TransferCode string `json:"transfer_code"`
			Status       string `json:"status"`
		} `json:"data"`
	}
	if err := p.rest.postJSON(ctx, "/transfer", body, &resp); err != nil {
		return nil, err
	}
	return &DisbursementResult{Reference: resp.Data.TransferCode, Status: resp.Data.Status}, nil
}

var _ Disburser = (*Paystack)(nil)
var _ Disburser = (*Xendit)(nil)
var _ VirtualAccountIssuer = (*Xendit)(nil)
