package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTokenRequired = errors.New("payment: payment token is required")
	ErrInvalidAmount = errors.New("payment: amount must be greater than zero")
)

// Result is the transient outcome of one charge attempt. It is never
// persisted on its own; the workflow folds it into the order status and
// the response to the caller. Amount is in cents.
type Result struct {
	Success          bool
	TransactionID    string
	Message          string
	Amount           int64
	PaymentMethod    string
	ProcessedAt      time.Time
	Requires3DSecure bool
	RedirectURL      string
}

// Gateway charges a tokenized payment method. Charge may return a
// transport error for transient faults (network, timeout, gateway
// outage); a decline is a Result with Success=false, not an error.
//
// ChargeWith3DSecure initiates a charge that may require an out-of-band
// cardholder authentication challenge; a Requires3DSecure result
// carries the redirect URL for the client and must never be retried.
//
// Refund compensates a captured charge when fulfillment cannot proceed.
type Gateway interface {
	Charge(ctx context.Context, token string, amount int64) (*Result, error)
	ChargeWith3DSecure(ctx context.Context, token string, amount int64, returnURL string) (*Result, error)
	Refund(ctx context.Context, transactionID string, amount int64) error
}
