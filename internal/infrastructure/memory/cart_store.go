package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/stylecommerce/marketplace/internal/domain/cart"
)

// CartStore keeps pending carts keyed by user. Cleared carts stay
// around as empty shells, matching the "clear, don't delete" lifecycle.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*domain.Cart)}
}

func (s *CartStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Lines = nil
	return nil
}

// Put replaces a user's cart wholesale. Cart mutation endpoints are out
// of scope here; tests and seeding use this.
func (s *CartStore) Put(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.UserID == "" {
		return domain.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := c.Clone()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	s.carts[c.UserID] = clone
	return nil
}
