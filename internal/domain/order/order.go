package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("order: not found")
	ErrConflict     = errors.New("order: already exists")
	ErrNoItems      = errors.New("order: at least one item is required")
	ErrInvalidTotal = errors.New("order: total must be greater than zero")
)

// Item is a frozen copy of a cart line taken at order-creation time.
// Price is the unit price snapshot in cents; it never tracks later
// catalog price changes.
type Item struct {
	ProductID string
	Quantity  int
	Price     int64
}

func (i Item) Subtotal() int64 { return i.Price * int64(i.Quantity) }

// Order is the aggregate created when a cart is turned into a purchase.
// Items are immutable after creation; only Status and LastStatusChangeAt
// move. CreatedAt is never overwritten by status updates.
type Order struct {
	ID                 string
	UserID             string
	Items              []Item
	TotalAmount        int64
	Status             Status
	FailureReason      string
	TransactionID      string
	CreatedAt          time.Time
	LastStatusChangeAt time.Time
}

// New builds the order shell in Pending status. The shell exists before
// the payment outcome is known so that a failed payment still has an
// order row to carry the PaymentFailed status.
func New(id, userID string, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	if total <= 0 {
		return nil, ErrInvalidTotal
	}

	now := time.Now().UTC()
	return &Order{
		ID:                 id,
		UserID:             userID,
		Items:              append([]Item(nil), items...),
		TotalAmount:        total,
		Status:             StatusPending,
		CreatedAt:          now,
		LastStatusChangeAt: now,
	}, nil
}

// Clone returns a deep copy so repositories can hand out snapshots
// without sharing the items slice.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.LastStatusChangeAt = time.Now().UTC()
}
