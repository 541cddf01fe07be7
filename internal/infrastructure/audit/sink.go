package audit

import (
	"context"
	"time"

	domaudit "github.com/stylecommerce/marketplace/internal/domain/audit"
	dombus "github.com/stylecommerce/marketplace/internal/domain/bus"
	"github.com/stylecommerce/marketplace/internal/observability"
)

// Sink publishes audit entries onto the event bus so recording happens
// off the workflow's critical path. The workflow treats audit as
// fire-and-forget; the recorder worker does the actual writing.
type Sink struct {
	publisher dombus.Publisher
	idGen     idGenerator
	log       observability.Logger
}

type idGenerator interface {
	NewID() string
}

func NewSink(publisher dombus.Publisher, idGen idGenerator, tel observability.Observability) *Sink {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Sink{
		publisher: publisher,
		idGen:     idGen,
		log:       tel.Logger().With(observability.F("component", "audit_sink")),
	}
}

func (s *Sink) Record(ctx context.Context, entry domaudit.Entry) error {
	if entry.ID == "" {
		entry.ID = s.idGen.NewID()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	return s.publisher.Publish(ctx, entry)
}
