package audit

import (
	"context"

	domaudit "github.com/stylecommerce/marketplace/internal/domain/audit"
	dombus "github.com/stylecommerce/marketplace/internal/domain/bus"
	"github.com/stylecommerce/marketplace/internal/observability"
)

// Recorder is the bus worker that writes audit entries to the
// configured backends. Backend errors are logged and dropped: audit is
// best-effort observability, not a correctness dependency.
type Recorder struct {
	subscriber dombus.Subscriber
	backends   []Backend
	log        observability.Logger
	dropped    observability.Counter
}

// Backend persists one audit entry somewhere durable.
type Backend interface {
	Write(ctx context.Context, entry domaudit.Entry) error
}

func NewRecorder(subscriber dombus.Subscriber, tel observability.Observability, backends ...Backend) *Recorder {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Recorder{
		subscriber: subscriber,
		backends:   backends,
		log:        tel.Logger().With(observability.F("component", "audit_recorder")),
		dropped:    tel.Metrics().Counter(observability.MAuditDropped),
	}
}

func (r *Recorder) Start() {
	r.subscriber.Subscribe(domaudit.Entry{}.EventName(), r.handleEntry)
}

func (r *Recorder) handleEntry(ctx context.Context, e dombus.Event) error {
	entry, ok := e.(domaudit.Entry)
	if !ok {
		return nil
	}

	for _, backend := range r.backends {
		if err := backend.Write(ctx, entry); err != nil {
			r.dropped.Add(1, observability.L("action", entry.Action))
			r.log.Warn("audit_write_failed",
				observability.F("audit_id", entry.ID),
				observability.F("action", entry.Action),
				observability.F("error", err.Error()),
			)
		}
	}
	return nil
}
