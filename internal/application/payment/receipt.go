package payment

import (
	"fmt"
	"strings"

	domorder "github.com/stylecommerce/marketplace/internal/domain/order"
	domain "github.com/stylecommerce/marketplace/internal/domain/payment"
)

// GenerateReceipt renders a plain-text receipt for a processed payment.
func GenerateReceipt(result *domain.Result, order *domorder.Order) string {
	status := "FAILED"
	if result.Success {
		status = "SUCCESS"
	}

	var b strings.Builder
	b.WriteString("Payment Receipt\n")
	b.WriteString("===============\n")
	fmt.Fprintf(&b, "Transaction ID: %s\n", result.TransactionID)
	fmt.Fprintf(&b, "Date: %s\n", result.ProcessedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Order ID: %s\n", order.ID)
	fmt.Fprintf(&b, "Amount: $%.2f\n", float64(result.Amount)/100)
	fmt.Fprintf(&b, "Payment Method: %s\n", result.PaymentMethod)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Message: %s\n", result.Message)
	b.WriteString("\nThank you for your purchase!\n")
	return b.String()
}
