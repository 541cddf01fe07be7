package order

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus     = errors.New("order: invalid status")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

type Status string

const (
	StatusPending                Status = "Pending"
	StatusAwaitingAuthentication Status = "AwaitingAuthentication"
	StatusProcessing             Status = "Processing"
	StatusShipped                Status = "Shipped"
	StatusDelivered              Status = "Delivered"
	StatusCancelled              Status = "Cancelled"
	StatusPaymentFailed          Status = "PaymentFailed"
)

// statusOrder fixes the enumeration order returned by Statuses.
var statusOrder = []Status{
	StatusPending,
	StatusAwaitingAuthentication,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusPaymentFailed,
}

// validTransitions is the whole lifecycle graph. Pending additionally
// admits the payment-driven arcs (AwaitingAuthentication, PaymentFailed)
// so the placement workflow goes through the same validation as
// caller-driven updates. Delivered, Cancelled and PaymentFailed are
// terminal: they have no outbound arcs.
var validTransitions = map[Status][]Status{
	StatusPending:                {StatusProcessing, StatusCancelled, StatusAwaitingAuthentication, StatusPaymentFailed},
	StatusAwaitingAuthentication: {StatusProcessing, StatusCancelled, StatusPaymentFailed},
	StatusProcessing:             {StatusShipped, StatusCancelled},
	StatusShipped:                {StatusDelivered},
	StatusDelivered:              {},
	StatusCancelled:              {},
	StatusPaymentFailed:          {},
}

// Statuses returns every known status literal, for presentation layers
// that build selection UI.
func Statuses() []Status {
	return append([]Status(nil), statusOrder...)
}

// ParseStatus validates a raw string against the known literals.
func ParseStatus(raw string) (Status, error) {
	for _, s := range statusOrder {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// CanTransition reports whether the lifecycle graph allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outbound transitions.
func IsTerminal(s Status) bool {
	return len(validTransitions[s]) == 0
}

// Transition moves the order to next after validating the lifecycle
// graph. It must be called before any persistence side effect; a
// rejected transition leaves the order untouched.
func (o *Order) Transition(next Status) error {
	if _, err := ParseStatus(string(next)); err != nil {
		return err
	}
	if !CanTransition(o.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.touch()
	return nil
}

// MarkProcessing records a successful payment capture.
func (o *Order) MarkProcessing(transactionID string) error {
	if err := o.Transition(StatusProcessing); err != nil {
		return err
	}
	o.TransactionID = transactionID
	o.FailureReason = ""
	return nil
}

// MarkPaymentFailed records a definitive payment failure. The order is
// kept for the audit trail, never discarded.
func (o *Order) MarkPaymentFailed(reason string) error {
	if err := o.Transition(StatusPaymentFailed); err != nil {
		return err
	}
	o.FailureReason = reason
	return nil
}

// MarkAwaitingAuthentication parks the order while the customer
// completes an out-of-band 3-D Secure challenge.
func (o *Order) MarkAwaitingAuthentication(transactionID string) error {
	if err := o.Transition(StatusAwaitingAuthentication); err != nil {
		return err
	}
	o.TransactionID = transactionID
	return nil
}
