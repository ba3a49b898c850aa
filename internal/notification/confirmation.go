package notification

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const ConfirmationSubject = "Order Confirmation"

// ConfirmationLine is one purchased product as shown in the email.
type ConfirmationLine struct {
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

func (l ConfirmationLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrderConfirmation renders the plain-text confirmation for an order.
func NewOrderConfirmation(to, orderID string, lines []ConfirmationLine) Message {
	var b strings.Builder

	b.WriteString("Dear Customer,\n\n")
	b.WriteString("Thank you for your purchase. We appreciate your business!\n\n")
	fmt.Fprintf(&b, "Your order %s details:\n", orderID)

	for _, l := range lines {
		fmt.Fprintf(&b, "\nProduct: %s\nPrice: %s\nQuantity: %d\nTotal: %s\n",
			l.ProductName, l.UnitPrice.StringFixed(2), l.Quantity, l.Subtotal().StringFixed(2))
	}

	b.WriteString("\nIf you have any questions or concerns, please feel free to contact us.\n\n")
	b.WriteString("Regards,\nThe eShop team\n")

	return Message{To: to, Subject: ConfirmationSubject, Body: b.String()}
}
