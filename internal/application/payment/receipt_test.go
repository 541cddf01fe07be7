package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/stylecommerce/marketplace/internal/domain/order"
	domain "github.com/stylecommerce/marketplace/internal/domain/payment"
)

func TestGenerateReceipt(t *testing.T) {
	order, err := domorder.New("order-1", "user-1", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 12345}})
	require.NoError(t, err)

	result := &domain.Result{
		Success:       true,
		TransactionID: "txn-1",
		Message:       "Payment processed successfully",
		Amount:        12345,
		PaymentMethod: "Card",
		ProcessedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	receipt := GenerateReceipt(result, order)

	assert.Contains(t, receipt, "Transaction ID: txn-1")
	assert.Contains(t, receipt, "Date: 2026-03-14 09:30:00")
	assert.Contains(t, receipt, "Order ID: order-1")
	assert.Contains(t, receipt, "Amount: $123.45")
	assert.Contains(t, receipt, "Payment Method: Card")
	assert.Contains(t, receipt, "Status: SUCCESS")
}

func TestGenerateReceipt_FailedPayment(t *testing.T) {
	order, err := domorder.New("order-2", "user-1", []domorder.Item{{ProductID: "p1", Quantity: 1, Price: 500}})
	require.NoError(t, err)

	receipt := GenerateReceipt(&domain.Result{
		Success:       false,
		Message:       "card declined",
		Amount:        500,
		PaymentMethod: "Card",
		ProcessedAt:   time.Now().UTC(),
	}, order)

	assert.Contains(t, receipt, "Status: FAILED")
	assert.Contains(t, receipt, "Message: card declined")
}
