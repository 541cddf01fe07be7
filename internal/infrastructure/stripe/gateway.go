package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"

	domain "github.com/stylecommerce/marketplace/internal/domain/payment"
	"github.com/stylecommerce/marketplace/internal/observability"
)

const paymentMethodCard = "Card"

// Gateway charges tokenized payment methods through Stripe
// PaymentIntents with manual confirmation. Amounts are cents, currency
// is USD. A Stripe-reported decline becomes a failed Result; only
// transport-level faults surface as errors so the retry loop can treat
// them as transient.
type Gateway struct {
	returnURL string
	log       observability.Logger
}

// New configures the Stripe client key once for the process.
func New(apiKey, defaultReturnURL string, tel observability.Observability) *Gateway {
	if tel == nil {
		tel = observability.Nop()
	}
	stripeapi.Key = apiKey
	return &Gateway{
		returnURL: defaultReturnURL,
		log:       tel.Logger().With(observability.F("component", "stripe_gateway")),
	}
}

func (g *Gateway) Charge(ctx context.Context, token string, amount int64) (*domain.Result, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:             stripeapi.Int64(amount),
		Currency:           stripeapi.String(string(stripeapi.CurrencyUSD)),
		PaymentMethod:      stripeapi.String(token),
		Confirm:            stripeapi.Bool(true),
		ConfirmationMethod: stripeapi.String(string(stripeapi.PaymentIntentConfirmationMethodManual)),
		ReturnURL:          stripeapi.String(g.returnURL),
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return g.resultFromError(err, amount)
	}

	if intent.Status == stripeapi.PaymentIntentStatusSucceeded {
		return &domain.Result{
			Success:       true,
			TransactionID: intent.ID,
			Message:       "Payment processed successfully",
			Amount:        amount,
			PaymentMethod: paymentMethodCard,
			ProcessedAt:   time.Now().UTC(),
		}, nil
	}

	g.log.Warn("stripe_charge_not_succeeded",
		observability.F("transaction_id", intent.ID),
		observability.F("status", string(intent.Status)),
	)
	return &domain.Result{
		Success:       false,
		TransactionID: intent.ID,
		Message:       fmt.Sprintf("Payment failed with status: %s", intent.Status),
		Amount:        amount,
		PaymentMethod: paymentMethodCard,
		ProcessedAt:   time.Now().UTC(),
	}, nil
}

func (g *Gateway) ChargeWith3DSecure(ctx context.Context, token string, amount int64, returnURL string) (*domain.Result, error) {
	if returnURL == "" {
		returnURL = g.returnURL
	}

	params := &stripeapi.PaymentIntentParams{
		Amount:             stripeapi.Int64(amount),
		Currency:           stripeapi.String(string(stripeapi.CurrencyUSD)),
		PaymentMethod:      stripeapi.String(token),
		Confirm:            stripeapi.Bool(true),
		ConfirmationMethod: stripeapi.String(string(stripeapi.PaymentIntentConfirmationMethodManual)),
		ReturnURL:          stripeapi.String(returnURL),
		CaptureMethod:      stripeapi.String(string(stripeapi.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return g.resultFromError(err, amount)
	}

	switch intent.Status {
	case stripeapi.PaymentIntentStatusRequiresAction:
		redirect := returnURL
		if intent.NextAction != nil && intent.NextAction.RedirectToURL != nil && intent.NextAction.RedirectToURL.URL != "" {
			redirect = intent.NextAction.RedirectToURL.URL
		}
		return &domain.Result{
			Success:          false,
			TransactionID:    intent.ID,
			Message:          "3D Secure authentication required",
			Amount:           amount,
			PaymentMethod:    paymentMethodCard,
			ProcessedAt:      time.Now().UTC(),
			Requires3DSecure: true,
			RedirectURL:      redirect,
		}, nil
	case stripeapi.PaymentIntentStatusSucceeded:
		return &domain.Result{
			Success:       true,
			TransactionID: intent.ID,
			Message:       "Payment processed successfully",
			Amount:        amount,
			PaymentMethod: paymentMethodCard,
			ProcessedAt:   time.Now().UTC(),
		}, nil
	default:
		return &domain.Result{
			Success:       false,
			TransactionID: intent.ID,
			Message:       fmt.Sprintf("Payment failed with status: %s", intent.Status),
			Amount:        amount,
			PaymentMethod: paymentMethodCard,
			ProcessedAt:   time.Now().UTC(),
		}, nil
	}
}

func (g *Gateway) Refund(ctx context.Context, transactionID string, amount int64) error {
	params := &stripeapi.RefundParams{
		PaymentIntent: stripeapi.String(transactionID),
		Amount:        stripeapi.Int64(amount),
	}
	params.Context = ctx

	_, err := refund.New(params)
	if err != nil {
		return fmt.Errorf("stripe: refund %s: %w", transactionID, err)
	}
	return nil
}

// resultFromError maps a Stripe-reported error to a declined Result and
// everything else to a transport error for the retry loop.
func (g *Gateway) resultFromError(err error, amount int64) (*domain.Result, error) {
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		g.log.Warn("stripe_charge_declined",
			observability.F("code", string(stripeErr.Code)),
			observability.F("message", stripeErr.Msg),
		)
		return &domain.Result{
			Success:       false,
			Message:       fmt.Sprintf("Payment failed: %s", stripeErr.Msg),
			Amount:        amount,
			PaymentMethod: paymentMethodCard,
			ProcessedAt:   time.Now().UTC(),
		}, nil
	}
	return nil, fmt.Errorf("stripe: charge: %w", err)
}
