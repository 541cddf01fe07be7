package audit

import (
	"context"
	"time"
)

// Entry is one compliance record of a workflow outcome.
type Entry struct {
	ID         string
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Outcome    string
	Metadata   map[string]string
	OccurredAt time.Time
}

func (Entry) EventName() string { return "audit.recorded" }

// Sink records workflow outcomes for compliance. It is best-effort
// observability, not a correctness dependency: callers log and drop any
// error, and a broken sink must never fail an otherwise-successful
// order.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
