package domain

import (
	"encoding/json"
	"time"
)

// Webhook event kinds shared across providers.
const (
	WebhookDisbursementCompleted = "disbursement.completed"
	WebhookDisbursementFailed    = "disbursement.failed"
	WebhookVirtualAccountPaid    = "virtual_account.paid"
)

// WebhookEvent is the dedupe record for inbound provider callbacks. The
// (Provider, EventID) pair is unique; replays are acknowledged without
// reprocessing.
type WebhookEvent struct {
	ID         string
	Provider   string
	EventID    string
	Kind       string
	Payload    json.RawMessage
	Processed  bool
	FailReason string
	ReceivedAt time.Time
}
