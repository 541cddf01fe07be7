package catalog

import "context"

// StockLedger owns per-product available quantity.
//
// DecrementStock is conditional: it only succeeds when the current
// stock covers the requested amount, and returns ErrInsufficientStock
// otherwise. Two concurrent orders can both pass a read-time check, but
// they cannot both drive the same stock negative.
// IncrementStock exists for the compensating path: when a conditional
// decrement is rejected after payment capture, already-applied
// decrements for the same order are restored.
type StockLedger interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
	DecrementStock(ctx context.Context, productID string, amount int) error
	IncrementStock(ctx context.Context, productID string, amount int) error
}
