package order

import (
	"context"

	domain "github.com/stylecommerce/marketplace/internal/domain/payment"
)

type IDGenerator interface {
	NewID() string
}

// Charger is the slice of the payment processor the placement workflow
// depends on. ChargeWithRetry owns the retry/backoff semantics;
// ChargeWith3DSecure must never retry.
type Charger interface {
	ChargeWithRetry(ctx context.Context, token string, amount int64, maxAttempts int) (*domain.Result, error)
	ChargeWith3DSecure(ctx context.Context, token string, amount int64, returnURL string) (*domain.Result, error)
	Refund(ctx context.Context, transactionID string, amount int64) error
}
