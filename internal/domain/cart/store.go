package cart

import "context"

// Store owns pending carts. The placement workflow only ever reads a
// cart and clears it after a successful payment; add/update/merge live
// with the cart service.
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Clear(ctx context.Context, userID string) error
}
