package order

import (
	"context"
	"errors"

	domain "github.com/stylecommerce/marketplace/internal/domain/order"
)

// Queries bundles the read-side operations: order details, per-user
// history, and the status enumeration used by presentation layers.
type Queries struct {
	repo domain.Repository
}

func NewQueries(repo domain.Repository) *Queries {
	return &Queries{repo: repo}
}

func (q *Queries) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, errors.New("order: id is required")
	}
	return q.repo.FindByID(ctx, orderID)
}

// GetOrderHistory lists a user's orders, newest first.
func (q *Queries) GetOrderHistory(ctx context.Context, userID string) ([]*domain.Order, error) {
	if userID == "" {
		return nil, errors.New("order: user id is required")
	}
	return q.repo.ListByUser(ctx, userID)
}

// AvailableStatuses returns the known status literals.
func (q *Queries) AvailableStatuses() []domain.Status {
	return domain.Statuses()
}
