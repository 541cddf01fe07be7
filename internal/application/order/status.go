package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	dombus "github.com/stylecommerce/marketplace/internal/domain/bus"
	domain "github.com/stylecommerce/marketplace/internal/domain/order"
	"github.com/stylecommerce/marketplace/internal/observability"
	"github.com/stylecommerce/marketplace/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const useCaseUpdateStatus = "order.update_status"

type UpdateStatusInput struct {
	OrderID string
	Status  string
}

// UpdateOrderStatusUseCase applies a caller-driven status change
// through the lifecycle graph. Validation runs before any persistence
// side effect.
type UpdateOrderStatusUseCase struct {
	repo      domain.Repository
	publisher dombus.Publisher

	tel          observability.Observability
	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewUpdateOrderStatusUseCase(repo domain.Repository, publisher dombus.Publisher, tel observability.Observability) *UpdateOrderStatusUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()

	return &UpdateOrderStatusUseCase{
		repo:         repo,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

func (uc *UpdateOrderStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *domain.Order, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseUpdateStatus),
		observability.F("order_id", cmd.OrderID),
		observability.F("status", cmd.Status),
	)

	ctx, span := uc.tel.Tracer().Start(ctx, spanPrefix+"UpdateOrderStatus",
		attribute.String("use_case", useCaseUpdateStatus),
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.requested_status", cmd.Status),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseUpdateStatus),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(time.Since(start).Seconds(),
			observability.L("use_case", useCaseUpdateStatus),
		)

		logger.Info("use_case_done",
			observability.F("outcome", outcome),
			observability.F("status", statusText),
		)
	}()

	next, perr := domain.ParseStatus(cmd.Status)
	if perr != nil {
		outcome, statusText = "error", "INVALID_STATUS"
		return nil, perr
	}

	order, ferr := uc.repo.FindByID(ctx, cmd.OrderID)
	if ferr != nil {
		outcome, statusText = "error", "ORDER_NOT_FOUND"
		if errors.Is(ferr, domain.ErrNotFound) {
			return nil, ferr
		}
		statusText = "REPO_READ_FAILED"
		return nil, fmt.Errorf("order: find: %w", ferr)
	}

	from := order.Status
	if terr := order.Transition(next); terr != nil {
		outcome, statusText = "error", "INVALID_TRANSITION"
		return nil, terr
	}

	if uerr := uc.repo.Update(ctx, order); uerr != nil {
		outcome, statusText = "error", "REPO_UPDATE_FAILED"
		return nil, fmt.Errorf("order: update: %w", uerr)
	}

	if uc.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, bestEffortTimeout)
		if perr := uc.publisher.Publish(pubCtx, domain.OrderStatusChangedEvent{
			OrderID:    order.ID,
			From:       from,
			To:         next,
			OccurredAt: time.Now().UTC(),
		}); perr != nil {
			logger.Warn("status_event_publish_failed",
				observability.F("error", perr.Error()),
			)
		}
		cancel()
	}

	logger.Info("order_status_updated",
		observability.F("from", string(from)),
		observability.F("to", string(next)),
	)
	return order, nil
}
