package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	dombus "github.com/stylecommerce/marketplace/internal/domain/bus"
	domcart "github.com/stylecommerce/marketplace/internal/domain/cart"
	domcatalog "github.com/stylecommerce/marketplace/internal/domain/catalog"
	domain "github.com/stylecommerce/marketplace/internal/domain/order"
	dompayment "github.com/stylecommerce/marketplace/internal/domain/payment"
	"github.com/stylecommerce/marketplace/internal/observability"
	"github.com/stylecommerce/marketplace/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	orderService      = "order-service"
	useCasePlaceOrder = "order.place"
	spanPrefix        = "UC."
	// bestEffortTimeout bounds the fire-and-forget side effects of a
	// use case, audit records and lifecycle event publishes alike.
	bestEffortTimeout = 300 * time.Millisecond

	actionPlaceOrder = "PLACE_ORDER"
)

var (
	ErrEmptyCart = errors.New("order: cannot place order with empty cart")
	// ErrPaymentFailed is returned for a definitive, retried-and-exhausted
	// or hard-declined payment. The order is persisted in PaymentFailed
	// status before this error surfaces, so the failure is never silently
	// lost.
	ErrPaymentFailed = errors.New("order: payment failed")
	// ErrPostPaymentFailure marks the most severe failure class: money
	// has moved but persisting stock or the order did not complete. It
	// is always alarmed, never swallowed.
	ErrPostPaymentFailure = errors.New("order: post-payment persistence failure")
)

type PlaceOrderInput struct {
	UserID       string
	PaymentToken string
	// ReturnURL selects the 3-D Secure path. When set, the charge is
	// made once through ChargeWith3DSecure and a challenge result is
	// propagated instead of retried.
	ReturnURL string
}

type PlaceOrderResult struct {
	Order   *domain.Order
	Payment *dompayment.Result
}

// PlaceOrderUseCase turns a cart into a paid order, or fails cleanly.
// All validation happens before any mutation; stock is decremented and
// the cart cleared only after payment has captured.
type PlaceOrderUseCase struct {
	carts       domcart.Store
	ledger      domcatalog.StockLedger
	repo        domain.Repository
	charger     Charger
	auditSink   auditSink
	events      dombus.Publisher
	idGenerator IDGenerator
	maxAttempts int

	// Placement is serialized per user so a rapid double-submit cannot
	// charge the same cart twice.
	placing *keyedMutex

	tel          observability.Observability
	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	alarmCounter observability.Counter
}

func NewPlaceOrderUseCase(
	carts domcart.Store,
	ledger domcatalog.StockLedger,
	repo domain.Repository,
	charger Charger,
	sink auditSink,
	events dombus.Publisher,
	idGen IDGenerator,
	tel observability.Observability,
) *PlaceOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	return &PlaceOrderUseCase{
		carts:        carts,
		ledger:       ledger,
		repo:         repo,
		charger:      charger,
		auditSink:    sink,
		events:       events,
		idGenerator:  idGen,
		maxAttempts:  defaultChargeAttempts,
		placing:      newKeyedMutex(),
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		alarmCounter: metrics.Counter(observability.MPostPaymentFailures),
	}
}

const defaultChargeAttempts = 3

// SetChargeAttempts overrides how many attempts are handed to the charger.
// Values below one are ignored.
func (uc *PlaceOrderUseCase) SetChargeAttempts(n int) {
	if n >= 1 {
		uc.maxAttempts = n
	}
}

// Execute performs the placement flow: cart snapshot, per-line stock
// validation, snapshot-price total, order shell, payment, conditional
// stock decrement, cart clear, finalize, audit.
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCasePlaceOrder),
		observability.F("user_id", cmd.UserID),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"PlaceOrder",
		attribute.String("use_case", useCasePlaceOrder),
		attribute.String("order.user_id", cmd.UserID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePlaceOrder),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCasePlaceOrder),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.UserID == "" {
		outcome, statusText = "error", "USER_ID_REQUIRED"
		return nil, errors.New("order: user id is required")
	}
	if cmd.PaymentToken == "" {
		outcome, statusText = "error", "PAYMENT_TOKEN_REQUIRED"
		return nil, dompayment.ErrTokenRequired
	}

	uc.placing.Lock(cmd.UserID)
	defer uc.placing.Unlock(cmd.UserID)

	// Step 1: cart snapshot.
	snapshot, err := uc.carts.Get(ctx, cmd.UserID)
	if errors.Is(err, domcart.ErrNotFound) || (err == nil && snapshot.IsEmpty()) {
		outcome, statusText = "error", "EMPTY_CART"
		return nil, ErrEmptyCart
	}
	if err != nil {
		outcome, statusText = "error", "CART_READ_FAILED"
		return nil, fmt.Errorf("order: read cart: %w", err)
	}

	// Step 2: validate every line before mutating anything.
	items, err := uc.validateLines(ctx, snapshot.Lines)
	if err != nil {
		outcome, statusText = "error", "VALIDATION_FAILED"
		return nil, err
	}

	// Steps 3-4: snapshot-price total and the Pending order shell. The
	// shell is persisted before payment so a failed charge still has an
	// order row to carry PaymentFailed.
	shell, err := domain.New(uc.idGenerator.NewID(), cmd.UserID, items)
	if err != nil {
		outcome, statusText = "error", "ORDER_CONSTRUCTION_FAILED"
		return nil, fmt.Errorf("order: construct: %w", err)
	}
	if err := uc.repo.Insert(ctx, shell); err != nil {
		outcome, statusText = "error", "REPO_INSERT_FAILED"
		return nil, fmt.Errorf("order: insert shell: %w", err)
	}

	span.SetAttributes(
		attribute.String("order.id", shell.ID),
		attribute.Int64("order.total_amount", shell.TotalAmount),
	)
	logger = logger.With(observability.F("order_id", shell.ID))

	// Step 5: payment.
	result, err := uc.charge(ctx, cmd, shell.TotalAmount)
	if err != nil {
		// Contract violation or caller cancellation before capture;
		// nothing has been charged and no stock was touched.
		outcome, statusText = "error", "CHARGE_ABORTED"
		return nil, err
	}

	if result.Requires3DSecure {
		if terr := shell.MarkAwaitingAuthentication(result.TransactionID); terr != nil {
			outcome, statusText = "error", "STATE_TRANSITION_FAILED"
			return nil, terr
		}
		if uerr := uc.repo.Update(ctx, shell); uerr != nil {
			outcome, statusText = "error", "REPO_UPDATE_FAILED"
			return nil, fmt.Errorf("order: persist 3ds state: %w", uerr)
		}
		statusText = "AWAITING_AUTHENTICATION"
		uc.audit(ctx, shell, "pending_authentication", map[string]string{
			"transaction_id": result.TransactionID,
			"redirect_url":   result.RedirectURL,
		})
		logger.Info("order_awaiting_authentication",
			observability.F("redirect_url", result.RedirectURL),
		)
		return &PlaceOrderResult{Order: shell, Payment: result}, nil
	}

	if !result.Success {
		if terr := shell.MarkPaymentFailed(result.Message); terr != nil {
			outcome, statusText = "error", "STATE_TRANSITION_FAILED"
			return nil, terr
		}
		if uerr := uc.repo.Update(ctx, shell); uerr != nil {
			outcome, statusText = "error", "REPO_UPDATE_FAILED"
			return nil, fmt.Errorf("order: persist failed payment: %w", uerr)
		}
		outcome, statusText = "error", "PAYMENT_FAILED"
		uc.publish(ctx, domain.NewOrderPaymentFailedEvent(shell), logger)
		uc.audit(ctx, shell, "failure", map[string]string{"reason": result.Message})
		logger.Warn("order_payment_failed",
			observability.F("amount", shell.TotalAmount),
			observability.F("message", result.Message),
		)
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, result.Message)
	}

	// Payment has captured. From here the workflow must run to
	// completion regardless of caller cancellation.
	ctx = context.WithoutCancel(ctx)

	// Step 6: conditional stock decrement.
	if err := uc.decrementStock(ctx, shell, result, logger); err != nil {
		outcome, statusText = "error", "STOCK_RECONCILIATION_FAILED"
		return nil, err
	}

	// Step 7: cart clear. A failure here is alarmed but does not abort:
	// the order and stock are already consistent, and a stale cart is
	// recoverable.
	if cerr := uc.carts.Clear(ctx, cmd.UserID); cerr != nil {
		uc.alarmCounter.Add(1, observability.L("stage", "cart_clear"))
		logger.Error("cart_clear_failed_post_payment",
			observability.F("error", cerr.Error()),
		)
	}

	// Step 8: finalize.
	if terr := shell.MarkProcessing(result.TransactionID); terr != nil {
		outcome, statusText = "error", "STATE_TRANSITION_FAILED"
		return nil, terr
	}
	if uerr := uc.repo.Update(ctx, shell); uerr != nil {
		uc.alarmCounter.Add(1, observability.L("stage", "order_finalize"))
		outcome, statusText = "error", "POST_PAYMENT_PERSIST_FAILED"
		logger.Error("order_finalize_failed_post_payment",
			observability.F("transaction_id", result.TransactionID),
			observability.F("error", uerr.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrPostPaymentFailure, uerr)
	}

	// Step 9: event + audit, both best-effort.
	uc.publish(ctx, domain.NewOrderPlacedEvent(shell), logger)
	uc.audit(ctx, shell, "success", map[string]string{
		"transaction_id": result.TransactionID,
	})

	logger.Info("order_placed",
		observability.F("total_amount", shell.TotalAmount),
		observability.F("transaction_id", result.TransactionID),
	)
	return &PlaceOrderResult{Order: shell, Payment: result}, nil
}

// validateLines resolves every cart line against the catalog before any
// mutation happens. A failure on line N leaves every product untouched.
func (uc *PlaceOrderUseCase) validateLines(ctx context.Context, lines []domcart.Line) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, domcart.ErrInvalidQuantity
		}

		product, err := uc.ledger.GetProduct(ctx, line.ProductID)
		if errors.Is(err, domcatalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", domcatalog.ErrNotFound, line.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("order: resolve product %s: %w", line.ProductID, err)
		}

		if product.StockQuantity < line.Quantity {
			return nil, fmt.Errorf("%w for product %s", domcatalog.ErrInsufficientStock, product.Name)
		}

		items = append(items, domain.Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.PriceSnapshot,
		})
	}
	return items, nil
}

func (uc *PlaceOrderUseCase) charge(ctx context.Context, cmd PlaceOrderInput, total int64) (*dompayment.Result, error) {
	if cmd.ReturnURL != "" {
		result, err := uc.charger.ChargeWith3DSecure(ctx, cmd.PaymentToken, total, cmd.ReturnURL)
		if err != nil {
			// A transport fault on the 3DS path is a decline; there is
			// no retry loop to absorb it.
			return &dompayment.Result{
				Success:       false,
				Message:       fmt.Sprintf("Payment failed: %v", err),
				Amount:        total,
				PaymentMethod: "Card",
				ProcessedAt:   time.Now().UTC(),
			}, nil
		}
		return result, nil
	}
	return uc.charger.ChargeWithRetry(ctx, cmd.PaymentToken, total, uc.maxAttempts)
}

// decrementStock applies the post-payment conditional decrements. A
// rejected decrement means concurrent orders consumed the stock between
// validation and capture; the charge is refunded and the order
// cancelled rather than driving stock negative.
func (uc *PlaceOrderUseCase) decrementStock(ctx context.Context, shell *domain.Order, result *dompayment.Result, logger observability.Logger) error {
	for i, item := range shell.Items {
		err := uc.ledger.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}

		// Roll the already-applied decrements back before compensating
		// the charge.
		for _, applied := range shell.Items[:i] {
			if rerr := uc.restock(ctx, applied); rerr != nil {
				uc.alarmCounter.Add(1, observability.L("stage", "stock_rollback"))
				logger.Error("stock_rollback_failed_post_payment",
					observability.F("product_id", applied.ProductID),
					observability.F("error", rerr.Error()),
				)
			}
		}

		if rerr := uc.charger.Refund(ctx, result.TransactionID, result.Amount); rerr != nil {
			uc.alarmCounter.Add(1, observability.L("stage", "refund"))
			logger.Error("refund_failed_post_payment",
				observability.F("transaction_id", result.TransactionID),
				observability.F("error", rerr.Error()),
			)
			return fmt.Errorf("%w: refund after stock rejection: %v", ErrPostPaymentFailure, rerr)
		}

		if terr := shell.Transition(domain.StatusCancelled); terr == nil {
			if uerr := uc.repo.Update(ctx, shell); uerr != nil {
				uc.alarmCounter.Add(1, observability.L("stage", "cancel_persist"))
				logger.Error("order_cancel_persist_failed",
					observability.F("error", uerr.Error()),
				)
			}
		}

		uc.audit(ctx, shell, "failure", map[string]string{
			"reason":         "stock rejected after capture",
			"product_id":     item.ProductID,
			"transaction_id": result.TransactionID,
		})
		logger.Warn("order_cancelled_stock_rejected",
			observability.F("product_id", item.ProductID),
		)
		return fmt.Errorf("%w: product %s sold out during payment", domcatalog.ErrInsufficientStock, item.ProductID)
	}
	return nil
}

func (uc *PlaceOrderUseCase) restock(ctx context.Context, item domain.Item) error {
	return uc.ledger.IncrementStock(ctx, item.ProductID, item.Quantity)
}

// publish emits a lifecycle event for downstream consumers. Like audit,
// a publish failure never fails the placement.
func (uc *PlaceOrderUseCase) publish(ctx context.Context, e dombus.Event, logger observability.Logger) {
	if uc.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bestEffortTimeout)
	defer cancel()
	if err := uc.events.Publish(pubCtx, e); err != nil {
		logger.Warn("order_event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}
