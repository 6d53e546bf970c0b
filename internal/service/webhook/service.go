package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topdog/backend/internal/apperror"
	"github.com/topdog/backend/internal/domain"
	"github.com/topdog/backend/internal/repository"
	"github.com/topdog/backend/pkg/config"
)

// DisbursementSettler applies a withdrawal outcome.
type DisbursementSettler interface {
	SettleDisbursement(ctx context.Context, providerName, providerRef string, succeeded bool, failReason string) error
}

// DepositSettler applies a virtual-account payment.
type DepositSettler interface {
	SettlePayment(ctx context.Context, providerName, providerRef string, paid decimal.Decimal) error
}

// Service authenticates and applies inbound provider callbacks. Events are
// deduplicated by (provider, event id); a replay is acknowledged without
// reprocessing.
type Service struct {
	events  repository.WebhookEventRepository
	payouts DisbursementSettler
	funding DepositSettler
	logger  *slog.Logger
	cfg     config.APIConfig
}

// New constructs a webhook service.
func New(events repository.WebhookEventRepository, payouts DisbursementSettler, funding DepositSettler, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{events: events, payouts: payouts, funding: funding, logger: logger, cfg: cfg}
}

// Verify authenticates an inbound callback per the provider's contract:
// Xendit sends a shared callback token header, Paystack an HMAC-SHA512 body
// signature.
func (s Service) Verify(providerName, callbackToken, signature string, body []byte) error {
	switch providerName {
	case "xendit":
		expected := strings.TrimSpace(s.cfg.XenditCallbackTok)
		if expected == "" {
			return apperror.New(apperror.CodeInternal, "callback token not configured")
		}
		token := strings.TrimSpace(callbackToken)
		if len(token) != len(expected) || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return apperror.New(apperror.CodeUnauthorized, "invalid callback token")
		}
		return nil
	case "paystack":
		secret := strings.TrimSpace(s.cfg.PaystackSecret)
		if secret == "" {
			return apperror.New(apperror.CodeInternal, "webhook secret not configured")
		}
		if signature == "" {
			return apperror.New(apperror.CodeUnauthorized, "missing webhook signature")
		}
		hasher := hmac.New(sha512.New, []byte(secret))
		hasher.Write(body)
		expected := hex.EncodeToString(hasher.Sum(nil))
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			return apperror.New(apperror.CodeUnauthorized, "invalid webhook signature")
		}
		return nil
	}
	return apperror.New(apperror.CodeNotFound, "unknown provider")
}

// event is the provider-agnostic callback shape.
type event struct {
	ID     string
	Kind   string
	Ref    string
	Paid   decimal.Decimal
	Reason string
}

// Process parses, deduplicates, and applies a callback. The HTTP layer
// acknowledges the provider regardless of the returned error.
func (s Service) Process(ctx context.Context, providerName string, body []byte) error {
	evt, err := parseEvent(providerName, body)
	if err != nil {
		return err
	}

	record := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		Provider:   providerName,
		EventID:    evt.ID,
		Kind:       evt.Kind,
		Payload:    json.RawMessage(body),
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.events.InsertWebhookEvent(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Info("webhook replay ignored", "provider", providerName, "event_id", evt.ID)
			return nil
		}
		return apperror.Wrap(apperror.CodeDatabase, "could not record webhook event", err)
	}

	applyErr := s.apply(ctx, providerName, evt)
	failReason := ""
	if applyErr != nil {
		failReason = applyErr.Error()
	}
	if err := s.events.MarkWebhookEventProcessed(ctx, record.ID, failReason); err != nil {
		s.logger.Error("failed to finalize webhook event", "event_id", evt.ID, "error", err)
	}
	return applyErr
}

func (s Service) apply(ctx context.Context, providerName string, evt event) error {
	switch evt.Kind {
	case domain.WebhookDisbursementCompleted:
		return s.payouts.SettleDisbursement(ctx, providerName, evt.Ref, true, "")
	case domain.WebhookDisbursementFailed:
		return s.payouts.SettleDisbursement(ctx, providerName, evt.Ref, false, evt.Reason)
	case domain.WebhookVirtualAccountPaid:
		return s.funding.SettlePayment(ctx, providerName, evt.Ref, evt.Paid)
	}
	return apperror.Validation("unsupported event kind")
}

func parseEvent(providerName string, body []byte) (event, error) {
	switch providerName {
	case "xendit":
		return parseXenditEvent(body)
	case "paystack":
		return parsePaystackEvent(body)
	}
	return event{}, apperror.New(apperror.CodeNotFound, "unknown provider")
}

// parseXenditEvent understands disbursement callbacks ({id, status,
// failure_code}) and virtual account payment callbacks
// ({payment_id, callback_virtual_account_id, amount}).
func parseXenditEvent(body []byte) (event, error) {
	var payload struct {
		ID               string          `json:"id"`
		Status           string          `json:"status"`
		FailureCode      string          `json:"failure_code"`
		PaymentID        string          `json:"payment_id"`
		VirtualAccountID string          `json:"callback_virtual_account_id"`
		Amount           decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return event{}, apperror.Wrap(apperror.CodeValidation, "malformed callback body", err)
	}
	if payload.VirtualAccountID != "" {
		if payload.PaymentID == "" {
			return event{}, apperror.Validation("payment_id is required")
		}
		return event{
			ID:   payload.PaymentID,
			Kind: domain.WebhookVirtualAccountPaid,
			Ref:  payload.VirtualAccountID,
			Paid: payload.Amount,
		}, nil
	}
	if payload.ID == "" {
		return event{}, apperror.Validation("id is required")
	}
	evt := event{ID: payload.ID, Ref: payload.ID, Reason: payload.FailureCode}
	switch strings.ToUpper(payload.Status) {
	case "COMPLETED":
		evt.Kind = domain.WebhookDisbursementCompleted
	case "FAILED":
		evt.Kind = domain.WebhookDisbursementFailed
	default:
		return event{}, apperror.Validation("unsupported disbursement status")
	}
	return evt, nil
}

// parsePaystackEvent understands transfer.success / transfer.failed /
// transfer.reversed envelopes.
func parsePaystackEvent(body []byte) (event, error) {
	var payload struct {
		Event string `json:"event"`
		Data  struct {
			TransferCode string `json:"transfer_code"`
			Reason       string `json:"reason"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return event{}, apperror.Wrap(apperror.CodeValidation, "malformed callback body", err)
	}
	if payload.Data.TransferCode == "" {
		return event{}, apperror.Validation("transfer_code is required")
	}
	evt := event{
		ID:     payload.Event + ":" + payload.Data.TransferCode,
		Ref:    payload.Data.TransferCode,
		Reason: payload.Data.Reason,
	}
	switch payload.Event {
	case "transfer.success":
		evt.Kind = domain.WebhookDisbursementCompleted
	case "transfer.failed", "transfer.reversed":
		evt.Kind = domain.WebhookDisbursementFailed
	default:
		return event{}, apperror.Validation("unsupported event")
	}
	return evt, nil
}
