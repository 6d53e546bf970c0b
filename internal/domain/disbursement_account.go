package domain

import "time"

// DisbursementAccount is a payout destination (bank account or e-wallet).
// AccountNumber is stored encrypted; MaskedNumber is what API responses carry.
type DisbursementAccount struct {
	ID            string
	UserID        string
	Provider      string
	ChannelCode   string
	HolderName    string
	AccountNumber []byte `json:"-"`
	MaskedNumber  string
	CreatedAt     time.Time
}
