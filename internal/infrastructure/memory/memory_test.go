package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domcart "github.com/stylecommerce/marketplace/internal/domain/cart"
	domcatalog "github.com/stylecommerce/marketplace/internal/domain/catalog"
	domorder "github.com/stylecommerce/marketplace/internal/domain/order"
)

func TestCartStore_GetReturnsClone(t *testing.T) {
	store := NewCartStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &domcart.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Lines:  []domcart.Line{{ProductID: "p1", Quantity: 1, PriceSnapshot: 500}},
	}))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	got.Lines[0].Quantity = 99

	again, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Lines[0].Quantity)
}

func TestCartStore_MissingUser(t *testing.T) {
	store := NewCartStore()

	_, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, domcart.ErrNotFound)

	err = store.Clear(context.Background(), "nobody")
	assert.ErrorIs(t, err, domcart.ErrNotFound)
}

func TestCartStore_ClearKeepsEmptyShell(t *testing.T) {
	store := NewCartStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &domcart.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Lines:  []domcart.Line{{ProductID: "p1", Quantity: 2, PriceSnapshot: 500}},
	}))
	require.NoError(t, store.Clear(ctx, "user-1"))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Equal(t, "cart-1", got.ID)
}

func TestStockLedger_ConditionalDecrement(t *testing.T) {
	ledger := NewStockLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Put(ctx, &domcatalog.Product{ID: "p1", Name: "Tee", Price: 2500, StockQuantity: 3}))

	require.NoError(t, ledger.DecrementStock(ctx, "p1", 2))

	err := ledger.DecrementStock(ctx, "p1", 2)
	assert.ErrorIs(t, err, domcatalog.ErrInsufficientStock)

	p, err := ledger.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)
}

func TestStockLedger_IncrementRestores(t *testing.T) {
	ledger := NewStockLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Put(ctx, &domcatalog.Product{ID: "p1", StockQuantity: 5}))
	require.NoError(t, ledger.DecrementStock(ctx, "p1", 5))
	require.NoError(t, ledger.IncrementStock(ctx, "p1", 5))

	p, err := ledger.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)
}

func TestStockLedger_Validation(t *testing.T) {
	ledger := NewStockLedger()
	ctx := context.Background()

	assert.ErrorIs(t, ledger.DecrementStock(ctx, "p1", 0), domcatalog.ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.IncrementStock(ctx, "p1", -1), domcatalog.ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.DecrementStock(ctx, "ghost", 1), domcatalog.ErrNotFound)

	_, err := ledger.GetProduct(ctx, "ghost")
	assert.ErrorIs(t, err, domcatalog.ErrNotFound)
}

func TestOrderRepository_InsertAndUpdate(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	o, err := domorder.New("order-1", "user-1", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 100}})
	require.NoError(t, err)

	require.NoError(t, repo.Insert(ctx, o))
	assert.ErrorIs(t, repo.Insert(ctx, o), domorder.ErrConflict)

	require.NoError(t, o.MarkProcessing("txn-1"))
	require.NoError(t, repo.Update(ctx, o))

	got, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusProcessing, got.Status)
	assert.Equal(t, "txn-1", got.TransactionID)
}

func TestOrderRepository_UpdateMissing(t *testing.T) {
	repo := NewOrderRepository()

	o, err := domorder.New("ghost", "user-1", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 100}})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Update(context.Background(), o), domorder.ErrNotFound)
}

func TestOrderRepository_ListByUserNewestFirst(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	older, err := domorder.New("order-old", "user-1", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 100}})
	require.NoError(t, err)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, older))

	newer, err := domorder.New("order-new", "user-1", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 100}})
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, newer))

	other, err := domorder.New("order-other", "user-2", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 100}})
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, other))

	orders, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "order-new", orders[0].ID)
	assert.Equal(t, "order-old", orders[1].ID)
}

func TestOrderRepository_FindReturnsClone(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	o, err := domorder.New("order-1", "user-1", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 100}})
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, o))

	got, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	got.Status = domorder.StatusCancelled

	again, err := repo.FindByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, again.Status)
}
