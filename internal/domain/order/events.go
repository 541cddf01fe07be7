package order

import "time"

// OrderPlacedEvent is emitted after a successful placement, once the
// order is durable in Processing status.
type OrderPlacedEvent struct {
	OrderID       string
	UserID        string
	TotalAmount   int64
	TransactionID string
	OccurredAt    time.Time
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount,
		TransactionID: o.TransactionID,
		OccurredAt:    time.Now().UTC(),
	}
}

// OrderPaymentFailedEvent is emitted when payment is definitively
// declined and the order has been persisted in PaymentFailed status.
type OrderPaymentFailedEvent struct {
	OrderID     string
	UserID      string
	TotalAmount int64
	Reason      string
	OccurredAt  time.Time
}

func (OrderPaymentFailedEvent) EventName() string { return "order.payment_failed" }

func NewOrderPaymentFailedEvent(o *Order) OrderPaymentFailedEvent {
	return OrderPaymentFailedEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Reason:      o.FailureReason,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted by caller-driven status updates.
type OrderStatusChangedEvent struct {
	OrderID    string
	From       Status
	To         Status
	OccurredAt time.Time
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }
