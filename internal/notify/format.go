package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/jogardn/storefront/internal/fallback"
	"github.com/jogardn/storefront/pkg/models"
)

// Formatter renders the plain-text bodies sent to the operator.
type Formatter struct {
	Location *time.Location
}

func (f Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f Formatter) Order(order *models.Order) (subject, body string) {
	subject = fmt.Sprintf("New order #%d", order.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "New order #%d\n\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	fmt.Fprintf(&b, "Email: %s\n", order.CustomerEmail)
	fmt.Fprintf(&b, "Phone: %s\n\n", order.CustomerPhone)
	fmt.Fprintf(&b, "Product: %s\n", order.ProductType)
	fmt.Fprintf(&b, "Description: %s\n", order.Description)
	fmt.Fprintf(&b, "Colors: %s\n", order.Colors)
	fmt.Fprintf(&b, "Sizes: %s\n\n", order.Sizes)
	fmt.Fprintf(&b, "Delivery address: %s\n\n", order.DeliveryAddress)
	fmt.Fprintf(&b, "Order date: %s\n", order.CreatedAt.In(f.location()).Format(fallback.DateLayout))

	return subject, b.String()
}

func (f Formatter) Contact(msg *models.ContactMessage) (subject, body string) {
	subject = "New message: " + msg.Subject

	var b strings.Builder
	b.WriteString("New message from a customer\n\n")
	b.WriteString("CUSTOMER:\n")
	fmt.Fprintf(&b, "Name: %s\n", msg.Name)
	fmt.Fprintf(&b, "Phone: %s\n", msg.PhoneOrMarker())
	fmt.Fprintf(&b, "Contact method: %s\n", msg.Method)
	fmt.Fprintf(&b, "Username: %s\n\n", msg.UsernameOrMarker())
	b.WriteString("MESSAGE:\n")
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Text: %s\n\n", msg.Message)
	fmt.Fprintf(&b, "Date: %s\n", msg.SentAt.In(f.location()).Format(fallback.DateLayout))

	return subject, b.String()
}
