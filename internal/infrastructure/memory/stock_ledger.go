package memory

import (
	"context"
	"sync"

	domain "github.com/stylecommerce/marketplace/internal/domain/catalog"
)

// StockLedger holds per-product available quantity. DecrementStock is
// atomic and conditional: the mutex spans the check and the write, so
// concurrent orders cannot drive stock negative.
type StockLedger struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewStockLedger() *StockLedger {
	return &StockLedger{products: make(map[string]*domain.Product)}
}

func (l *StockLedger) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (l *StockLedger) DecrementStock(ctx context.Context, productID string, amount int) error {
	_ = ctx
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.StockQuantity < amount {
		return domain.ErrInsufficientStock
	}
	p.StockQuantity -= amount
	return nil
}

func (l *StockLedger) IncrementStock(ctx context.Context, productID string, amount int) error {
	_ = ctx
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.StockQuantity += amount
	return nil
}

// Put seeds or replaces a product entry.
func (l *StockLedger) Put(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return domain.ErrNotFound
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.products[p.ID] = cloneProduct(p)
	return nil
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
