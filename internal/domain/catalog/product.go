package catalog

import "errors"

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
)

// Product carries the slice of the catalog the order workflow needs:
// live stock for validation and the display name for error messages.
// Price is the live catalog price; billing uses cart snapshots instead.
type Product struct {
	ID            string
	Name          string
	Price         int64
	StockQuantity int
}
