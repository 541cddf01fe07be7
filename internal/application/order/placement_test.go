package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcart "github.com/stylecommerce/marketplace/internal/domain/cart"
	domcatalog "github.com/stylecommerce/marketplace/internal/domain/catalog"
	domain "github.com/stylecommerce/marketplace/internal/domain/order"
	dompayment "github.com/stylecommerce/marketplace/internal/domain/payment"
)

type placementFixture struct {
	carts   *stubCartStore
	ledger  *stubLedger
	repo    *stubRepo
	charger *stubCharger
	sink    *stubSink
	events  *stubPublisher
	uc      *PlaceOrderUseCase
}

// newPlacementFixture wires a happy-path setup: two products in stock,
// a two-line cart, and a charger that captures on the first try. The
// tee's cart snapshot price (2400) deliberately differs from its
// catalog price (2500) so tests can pin snapshot pricing.
func newPlacementFixture(t *testing.T) *placementFixture {
	t.Helper()

	carts := &stubCartStore{cart: &domcart.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Lines: []domcart.Line{
			{ProductID: "prod-tee", Quantity: 2, PriceSnapshot: 2400, AddedAt: time.Now().UTC()},
			{ProductID: "prod-mug", Quantity: 1, PriceSnapshot: 1800, AddedAt: time.Now().UTC()},
		},
		CreatedAt: time.Now().UTC(),
	}}
	ledger := &stubLedger{products: map[string]*domcatalog.Product{
		"prod-tee": {ID: "prod-tee", Name: "Logo Tee", Price: 2500, StockQuantity: 10},
		"prod-mug": {ID: "prod-mug", Name: "Enamel Mug", Price: 1800, StockQuantity: 5},
	}}
	repo := newStubRepo()
	charger := &stubCharger{result: capturedSuccess("txn-1", 6600)}
	sink := &stubSink{}
	events := &stubPublisher{}

	uc := NewPlaceOrderUseCase(carts, ledger, repo, charger, sink, events, &seqIDGen{}, nil)
	return &placementFixture{carts: carts, ledger: ledger, repo: repo, charger: charger, sink: sink, events: events, uc: uc}
}

func (f *placementFixture) place(t *testing.T) (*PlaceOrderResult, error) {
	t.Helper()
	return f.uc.Execute(context.Background(), PlaceOrderInput{
		UserID:       "user-1",
		PaymentToken: "tok-visa",
	})
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newPlacementFixture(t)

	res, err := f.place(t)

	require.NoError(t, err)
	require.NotNil(t, res)

	// Snapshot pricing: 2*2400 + 1*1800, not the catalog's 2500 tee.
	assert.Equal(t, int64(6600), res.Order.TotalAmount)
	assert.Equal(t, domain.StatusProcessing, res.Order.Status)
	assert.Equal(t, "txn-1", res.Order.TransactionID)

	assert.Equal(t, 8, f.ledger.stock("prod-tee"))
	assert.Equal(t, 4, f.ledger.stock("prod-mug"))
	assert.Equal(t, 1, f.carts.clearCalls)

	persisted := f.repo.single()
	require.NotNil(t, persisted)
	assert.Equal(t, domain.StatusProcessing, persisted.Status)

	assert.Equal(t, 1, f.charger.retryCalls)
	assert.Equal(t, "tok-visa", f.charger.gotToken)
	assert.Equal(t, int64(6600), f.charger.gotAmount)
	assert.Equal(t, defaultChargeAttempts, f.charger.gotMaxAttempts)

	entries := f.sink.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "success", entries[0].Outcome)
	assert.Equal(t, res.Order.ID, entries[0].EntityID)
	assert.Equal(t, "user-1", entries[0].UserID)

	require.Len(t, f.events.events, 1)
	placed, ok := f.events.events[0].(domain.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, res.Order.ID, placed.OrderID)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newPlacementFixture(t)
	f.carts.cart.Lines = nil

	res, err := f.place(t)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, res)
	assert.Zero(t, f.charger.retryCalls)
	assert.Zero(t, f.repo.count())
}

func TestPlaceOrder_MissingCartTreatedAsEmpty(t *testing.T) {
	f := newPlacementFixture(t)
	f.carts.cart = &domcart.Cart{UserID: "someone-else"}

	_, err := f.place(t)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.charger.retryCalls)
}

func TestPlaceOrder_InsufficientStockBeforePayment(t *testing.T) {
	f := newPlacementFixture(t)
	f.carts.cart.Lines[0].Quantity = 20

	res, err := f.place(t)

	assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Logo Tee")
	assert.Nil(t, res)

	// Nothing moved: no charge, no order row, no stock or cart change.
	assert.Zero(t, f.charger.retryCalls)
	assert.Zero(t, f.repo.count())
	assert.Equal(t, 10, f.ledger.stock("prod-tee"))
	assert.Equal(t, 5, f.ledger.stock("prod-mug"))
	assert.Zero(t, f.carts.clearCalls)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := newPlacementFixture(t)
	f.carts.cart.Lines = append(f.carts.cart.Lines, domcart.Line{ProductID: "prod-ghost", Quantity: 1, PriceSnapshot: 100})

	_, err := f.place(t)

	assert.ErrorIs(t, err, domcatalog.ErrNotFound)
	assert.Zero(t, f.charger.retryCalls)
	assert.Zero(t, f.repo.count())
}

func TestPlaceOrder_InvalidLineQuantity(t *testing.T) {
	f := newPlacementFixture(t)
	f.carts.cart.Lines[0].Quantity = 0

	_, err := f.place(t)

	assert.ErrorIs(t, err, domcart.ErrInvalidQuantity)
	assert.Zero(t, f.charger.retryCalls)
}

func TestPlaceOrder_PaymentExhaustedPersistsFailedOrder(t *testing.T) {
	f := newPlacementFixture(t)
	f.charger.result = &dompayment.Result{
		Success:       false,
		Message:       "Payment failed after multiple attempts. Please try again later.",
		Amount:        6600,
		PaymentMethod: "Unknown",
		ProcessedAt:   time.Now().UTC(),
	}

	res, err := f.place(t)

	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Contains(t, err.Error(), "multiple attempts")
	assert.Nil(t, res)

	persisted := f.repo.single()
	require.NotNil(t, persisted)
	assert.Equal(t, domain.StatusPaymentFailed, persisted.Status)
	assert.Equal(t, "Payment failed after multiple attempts. Please try again later.", persisted.FailureReason)

	// Stock and cart survive a failed payment untouched.
	assert.Equal(t, 10, f.ledger.stock("prod-tee"))
	assert.Equal(t, 5, f.ledger.stock("prod-mug"))
	assert.Zero(t, f.carts.clearCalls)

	entries := f.sink.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "failure", entries[0].Outcome)

	require.Len(t, f.events.events, 1)
	_, ok := f.events.events[0].(domain.OrderPaymentFailedEvent)
	assert.True(t, ok)
}

func TestPlaceOrder_AuditFailureDoesNotFailOrder(t *testing.T) {
	f := newPlacementFixture(t)
	f.sink.err = context.DeadlineExceeded

	res, err := f.place(t)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, res.Order.Status)
}

func TestPlaceOrder_NilSinkIsAccepted(t *testing.T) {
	f := newPlacementFixture(t)
	f.uc.auditSink = nil

	res, err := f.place(t)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, res.Order.Status)
}

func TestPlaceOrder_ThreeDSecureChallengeParksOrder(t *testing.T) {
	f := newPlacementFixture(t)
	f.charger.threeDSResult = &dompayment.Result{
		Success:          false,
		TransactionID:    "txn-3ds",
		Message:          "3D Secure authentication required",
		Amount:           6600,
		PaymentMethod:    "Card",
		ProcessedAt:      time.Now().UTC(),
		Requires3DSecure: true,
		RedirectURL:      "https://bank.example/challenge",
	}

	res, err := f.uc.Execute(context.Background(), PlaceOrderInput{
		UserID:       "user-1",
		PaymentToken: "tok-visa",
		ReturnURL:    "https://shop.example/return",
	})

	require.NoError(t, err)
	assert.True(t, res.Payment.Requires3DSecure)
	assert.Equal(t, "https://bank.example/challenge", res.Payment.RedirectURL)
	assert.Equal(t, domain.StatusAwaitingAuthentication, res.Order.Status)
	assert.Equal(t, "txn-3ds", res.Order.TransactionID)

	assert.Equal(t, 1, f.charger.threeDSCalls)
	assert.Zero(t, f.charger.retryCalls)
	assert.Equal(t, "https://shop.example/return", f.charger.gotReturnURL)

	// A pending challenge mutates nothing downstream.
	assert.Equal(t, 10, f.ledger.stock("prod-tee"))
	assert.Zero(t, f.carts.clearCalls)

	entries := f.sink.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "pending_authentication", entries[0].Outcome)
}

func TestPlaceOrder_ThreeDSecureTransportFaultBecomesDecline(t *testing.T) {
	f := newPlacementFixture(t)
	f.charger.threeDSErr = assert.AnError

	_, err := f.uc.Execute(context.Background(), PlaceOrderInput{
		UserID:       "user-1",
		PaymentToken: "tok-visa",
		ReturnURL:    "https://shop.example/return",
	})

	assert.ErrorIs(t, err, ErrPaymentFailed)
	persisted := f.repo.single()
	require.NotNil(t, persisted)
	assert.Equal(t, domain.StatusPaymentFailed, persisted.Status)
	assert.Equal(t, 1, f.charger.threeDSCalls)
}

func TestPlaceOrder_StockRejectedAfterCaptureRefundsAndCancels(t *testing.T) {
	f := newPlacementFixture(t)
	f.ledger.decrementErrs = map[string]error{"prod-mug": domcatalog.ErrInsufficientStock}

	res, err := f.place(t)

	assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)
	assert.Nil(t, res)

	// The tee decrement was rolled back before the refund.
	assert.Equal(t, 10, f.ledger.stock("prod-tee"))

	assert.Equal(t, 1, f.charger.refundCalls)
	assert.Equal(t, "txn-1", f.charger.refundTxn)
	assert.Equal(t, int64(6600), f.charger.refundAmount)

	persisted := f.repo.single()
	require.NotNil(t, persisted)
	assert.Equal(t, domain.StatusCancelled, persisted.Status)

	entries := f.sink.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, "failure", entries[0].Outcome)
	assert.Equal(t, "stock rejected after capture", entries[0].Metadata["reason"])
}

func TestPlaceOrder_RefundFailureIsPostPaymentFailure(t *testing.T) {
	f := newPlacementFixture(t)
	f.ledger.decrementErrs = map[string]error{"prod-tee": domcatalog.ErrInsufficientStock}
	f.charger.refundErr = assert.AnError

	_, err := f.place(t)

	assert.ErrorIs(t, err, ErrPostPaymentFailure)
}

func TestPlaceOrder_FinalizePersistFailureIsPostPaymentFailure(t *testing.T) {
	f := newPlacementFixture(t)
	f.repo.updateErr = assert.AnError

	_, err := f.place(t)

	assert.ErrorIs(t, err, ErrPostPaymentFailure)
	// Payment captured and stock moved before the persist failed.
	assert.Equal(t, 8, f.ledger.stock("prod-tee"))
}

func TestPlaceOrder_CartClearFailureDoesNotFailOrder(t *testing.T) {
	f := newPlacementFixture(t)
	f.carts.clearErr = assert.AnError

	res, err := f.place(t)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, res.Order.Status)
}

func TestPlaceOrder_InputValidation(t *testing.T) {
	f := newPlacementFixture(t)

	_, err := f.uc.Execute(context.Background(), PlaceOrderInput{PaymentToken: "tok"})
	assert.Error(t, err)

	_, err = f.uc.Execute(context.Background(), PlaceOrderInput{UserID: "user-1"})
	assert.ErrorIs(t, err, dompayment.ErrTokenRequired)

	assert.Zero(t, f.charger.retryCalls)
}

func TestPlaceOrder_DoubleSubmitChargesOnce(t *testing.T) {
	f := newPlacementFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.place(t)
		}()
	}
	wg.Wait()

	// Per-user serialization: the second submit sees the cleared cart.
	var successes, emptyCarts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrEmptyCart):
			emptyCarts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, emptyCarts)
	assert.Equal(t, 1, f.charger.retryCalls)
	assert.Equal(t, 8, f.ledger.stock("prod-tee"))
}
