package order

import (
	"context"

	domaudit "github.com/stylecommerce/marketplace/internal/domain/audit"
	domain "github.com/stylecommerce/marketplace/internal/domain/order"
	"github.com/stylecommerce/marketplace/internal/observability"
	"github.com/stylecommerce/marketplace/internal/observability/logctx"
)

type auditSink = domaudit.Sink

// audit records a workflow outcome for compliance. Sink errors are
// logged and counted, never propagated: a broken audit pipe must not
// fail an otherwise-successful order.
func (uc *PlaceOrderUseCase) audit(ctx context.Context, o *domain.Order, outcome string, metadata map[string]string) {
	if uc.auditSink == nil {
		return
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bestEffortTimeout)
	defer cancel()

	entry := domaudit.Entry{
		Action:     actionPlaceOrder,
		EntityType: "Order",
		EntityID:   o.ID,
		UserID:     o.UserID,
		Outcome:    outcome,
		Metadata:   metadata,
	}

	if err := uc.auditSink.Record(recordCtx, entry); err != nil {
		uc.tel.Metrics().Counter(observability.MAuditDropped).Add(1,
			observability.L("action", actionPlaceOrder),
		)
		logctx.FromOr(ctx, uc.log).Warn("audit_record_dropped",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
}
