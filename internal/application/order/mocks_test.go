package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	domaudit "github.com/stylecommerce/marketplace/internal/domain/audit"
	dombus "github.com/stylecommerce/marketplace/internal/domain/bus"
	domcart "github.com/stylecommerce/marketplace/internal/domain/cart"
	domcatalog "github.com/stylecommerce/marketplace/internal/domain/catalog"
	domain "github.com/stylecommerce/marketplace/internal/domain/order"
	dompayment "github.com/stylecommerce/marketplace/internal/domain/payment"
)

type stubCartStore struct {
	mu         sync.Mutex
	cart       *domcart.Cart
	getErr     error
	clearErr   error
	clearCalls int
}

func (s *stubCartStore) Get(_ context.Context, userID string) (*domcart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.cart == nil || s.cart.UserID != userID {
		return nil, domcart.ErrNotFound
	}
	return s.cart.Clone(), nil
}

func (s *stubCartStore) Clear(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++
	if s.clearErr != nil {
		return s.clearErr
	}
	s.cart.Lines = nil
	return nil
}

type stubLedger struct {
	mu            sync.Mutex
	products      map[string]*domcatalog.Product
	decrementErrs map[string]error
}

func (l *stubLedger) GetProduct(_ context.Context, productID string) (*domcatalog.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return nil, domcatalog.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (l *stubLedger) DecrementStock(_ context.Context, productID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.decrementErrs[productID]; err != nil {
		return err
	}
	p, ok := l.products[productID]
	if !ok {
		return domcatalog.ErrNotFound
	}
	if p.StockQuantity < amount {
		return domcatalog.ErrInsufficientStock
	}
	p.StockQuantity -= amount
	return nil
}

func (l *stubLedger) IncrementStock(_ context.Context, productID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return domcatalog.ErrNotFound
	}
	p.StockQuantity += amount
	return nil
}

func (l *stubLedger) stock(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.products[productID].StockQuantity
}

type stubRepo struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	insertErr error
	updateErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{orders: make(map[string]*domain.Order)}
}

func (r *stubRepo) Insert(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, ok := r.orders[o.ID]; ok {
		return domain.ErrConflict
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *stubRepo) Update(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.orders[o.ID]; !ok {
		return domain.ErrNotFound
	}
	r.orders[o.ID] = o.Clone()
	return nil
}

func (r *stubRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *stubRepo) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (r *stubRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *stubRepo) single() *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		return o.Clone()
	}
	return nil
}

type stubCharger struct {
	mu sync.Mutex

	result *dompayment.Result
	err    error

	threeDSResult *dompayment.Result
	threeDSErr    error

	refundErr error

	retryCalls   int
	threeDSCalls int
	refundCalls  int

	gotToken       string
	gotAmount      int64
	gotMaxAttempts int
	gotReturnURL   string
	refundTxn      string
	refundAmount   int64
}

func (c *stubCharger) ChargeWithRetry(_ context.Context, token string, amount int64, maxAttempts int) (*dompayment.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryCalls++
	c.gotToken, c.gotAmount, c.gotMaxAttempts = token, amount, maxAttempts
	return c.result, c.err
}

func (c *stubCharger) ChargeWith3DSecure(_ context.Context, token string, amount int64, returnURL string) (*dompayment.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threeDSCalls++
	c.gotToken, c.gotAmount, c.gotReturnURL = token, amount, returnURL
	return c.threeDSResult, c.threeDSErr
}

func (c *stubCharger) Refund(_ context.Context, transactionID string, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refundCalls++
	c.refundTxn, c.refundAmount = transactionID, amount
	return c.refundErr
}

type stubSink struct {
	mu      sync.Mutex
	entries []domaudit.Entry
	err     error
}

func (s *stubSink) Record(_ context.Context, entry domaudit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubSink) recorded() []domaudit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domaudit.Entry(nil), s.entries...)
}

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("order-%d", g.n)
}

type stubPublisher struct {
	mu     sync.Mutex
	events []dombus.Event
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, e dombus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func capturedSuccess(txn string, amount int64) *dompayment.Result {
	return &dompayment.Result{
		Success:       true,
		TransactionID: txn,
		Message:       "Payment processed successfully",
		Amount:        amount,
		PaymentMethod: "Card",
		ProcessedAt:   time.Now().UTC(),
	}
}
