package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("cart: not found")
	ErrEmpty           = errors.New("cart: cart is empty")
	ErrInvalidQuantity = errors.New("cart: quantity must be at least one")
)

// Line is one product entry in a pending cart. PriceSnapshot is the
// unit price in cents captured when the item was added or last updated;
// billing uses it regardless of later catalog price changes.
type Line struct {
	ProductID     string
	Quantity      int
	PriceSnapshot int64
	AddedAt       time.Time
}

// Cart is owned by exactly one user or anonymous session. A user-owned
// cart may carry an empty SessionID.
type Cart struct {
	ID        string
	UserID    string
	SessionID string
	Lines     []Line
	CreatedAt time.Time
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// Total sums the snapshot subtotals of every line.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.PriceSnapshot * int64(l.Quantity)
	}
	return total
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Lines = append([]Line(nil), c.Lines...)
	return &clone
}
