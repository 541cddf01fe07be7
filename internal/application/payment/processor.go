package payment

import (
	"context"
	"fmt"
	"time"

	domain "github.com/stylecommerce/marketplace/internal/domain/payment"
	"github.com/stylecommerce/marketplace/internal/observability"
	"github.com/stylecommerce/marketplace/internal/observability/logctx"
)

const (
	componentProcessor = "payment_processor"
	gatewayPeer        = "payment_gateway"

	// DefaultMaxAttempts bounds the retry loop when the caller does not
	// override it.
	DefaultMaxAttempts = 3

	exhaustedMessage = "Payment failed after multiple attempts. Please try again later."
)

var ErrInvalidMaxAttempts = fmt.Errorf("payment: max attempts must be at least one")

// SleepFunc waits for d or until the context is done. Injectable so
// tests do not spend wall-clock time on backoff.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Processor wraps the payment gateway with bounded retries and
// exponential backoff, masking transient gateway faults from the
// caller while still surfacing a definitive final failure.
type Processor struct {
	gateway     domain.Gateway
	backoffUnit time.Duration
	sleep       SleepFunc

	log          observability.Logger
	tel          observability.Observability
	extCounter   observability.Counter
	extHistogram observability.Histogram
	attempts     observability.Counter
}

type Option func(*Processor)

// WithBackoffUnit scales the 2^attempt backoff. Production uses the
// one-second default; tests shrink it.
func WithBackoffUnit(unit time.Duration) Option {
	return func(p *Processor) { p.backoffUnit = unit }
}

// WithSleep replaces the backoff sleep implementation.
func WithSleep(sleep SleepFunc) Option {
	return func(p *Processor) { p.sleep = sleep }
}

func NewProcessor(gateway domain.Gateway, tel observability.Observability, opts ...Option) *Processor {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	p := &Processor{
		gateway:      gateway,
		backoffUnit:  time.Second,
		sleep:        sleepWithContext,
		log:          tel.Logger().With(observability.F("component", componentProcessor)),
		tel:          tel,
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
		attempts:     metrics.Counter(observability.MPaymentAttempts),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChargeWithRetry executes up to maxAttempts charges against the
// gateway. A gateway transport error is treated exactly like a soft
// decline: logged and retried. Between attempts it sleeps 2^attempt
// backoff units (2s, 4s, 8s with the default unit), never after the
// last. When every attempt fails it returns a synthetic declined
// Result, not an error; only argument-contract violations and caller
// cancellation produce a non-nil error.
func (p *Processor) ChargeWithRetry(ctx context.Context, token string, amount int64, maxAttempts int) (*domain.Result, error) {
	if token == "" {
		return nil, domain.ErrTokenRequired
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if maxAttempts < 1 {
		return nil, ErrInvalidMaxAttempts
	}

	logger := logctx.FromOr(ctx, p.log).With(
		observability.F("amount", amount),
		observability.F("max_attempts", maxAttempts),
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		logger.Info("payment_attempt_start", observability.F("attempt", attempt))

		result, err := p.charge(ctx, token, amount)
		switch {
		case err != nil:
			// Transient fault: recover locally, same path as a decline.
			p.attempts.Add(1, observability.L("outcome", "error"))
			logger.Warn("payment_attempt_error",
				observability.F("attempt", attempt),
				observability.F("error", err.Error()),
			)
		case result.Success:
			p.attempts.Add(1, observability.L("outcome", "success"))
			logger.Info("payment_success",
				observability.F("attempt", attempt),
				observability.F("transaction_id", result.TransactionID),
			)
			return result, nil
		default:
			p.attempts.Add(1, observability.L("outcome", "declined"))
			logger.Warn("payment_attempt_declined",
				observability.F("attempt", attempt),
				observability.F("message", result.Message),
			)
		}

		if attempt < maxAttempts {
			delay := p.backoffUnit * (1 << attempt)
			logger.Info("payment_retry_backoff",
				observability.F("attempt", attempt),
				observability.F("delay", delay.String()),
			)
			if err := p.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	logger.Error("payment_attempts_exhausted")
	return &domain.Result{
		Success:       false,
		Message:       exhaustedMessage,
		Amount:        amount,
		PaymentMethod: "Unknown",
		ProcessedAt:   time.Now().UTC(),
	}, nil
}

// ChargeWith3DSecure initiates a single charge on the 3-D Secure path.
// No retry semantics apply here: a challenge cannot be resolved by
// trying again, so the result is handed straight back to the caller.
func (p *Processor) ChargeWith3DSecure(ctx context.Context, token string, amount int64, returnURL string) (*domain.Result, error) {
	if token == "" {
		return nil, domain.ErrTokenRequired
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	start := time.Now()
	result, err := p.gateway.ChargeWith3DSecure(ctx, token, amount, returnURL)
	p.observeGatewayCall("charge_3dsecure", start, err)
	return result, err
}

// Refund compensates a captured charge, used when post-payment stock
// reconciliation rejects the order.
func (p *Processor) Refund(ctx context.Context, transactionID string, amount int64) error {
	start := time.Now()
	err := p.gateway.Refund(ctx, transactionID, amount)
	p.observeGatewayCall("refund", start, err)
	return err
}

func (p *Processor) charge(ctx context.Context, token string, amount int64) (*domain.Result, error) {
	start := time.Now()
	result, err := p.gateway.Charge(ctx, token, amount)
	p.observeGatewayCall("charge", start, err)
	if err == nil && result == nil {
		return nil, fmt.Errorf("payment: gateway returned no result")
	}
	return result, err
}

func (p *Processor) observeGatewayCall(endpoint string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	p.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", endpoint),
	)
}
