package audit

import (
	"context"

	domaudit "github.com/stylecommerce/marketplace/internal/domain/audit"
	"github.com/stylecommerce/marketplace/internal/observability"
)

// LogBackend writes audit entries to the structured log. It is the
// always-on backend; Kafka is layered on top when configured.
type LogBackend struct {
	log observability.Logger
}

func NewLogBackend(tel observability.Observability) *LogBackend {
	if tel == nil {
		tel = observability.Nop()
	}
	return &LogBackend{log: tel.Logger().With(observability.F("component", "audit_log"))}
}

func (b *LogBackend) Write(ctx context.Context, entry domaudit.Entry) error {
	_ = ctx
	b.log.Info("audit_record",
		observability.F("audit_id", entry.ID),
		observability.F("action", entry.Action),
		observability.F("entity_type", entry.EntityType),
		observability.F("entity_id", entry.EntityID),
		observability.F("user_id", entry.UserID),
		observability.F("outcome", entry.Outcome),
		observability.F("metadata", entry.Metadata),
		observability.F("occurred_at", entry.OccurredAt),
	)
	return nil
}
