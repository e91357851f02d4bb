package storefront

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxStatusLength = 64

// OrderForm carries the raw order fields as posted by the customer.
type OrderForm struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ProductType     string
	Description     string
	Colors          string
	Sizes           string
	DeliveryAddress string
}

type ContactForm struct {
	Method   string
	Name     string
	Phone    string
	Username string
	Subject  string
	Message  string
}

// field describes one form value: its posted name, a pointer to the value and
// the column width it has to fit into (0 means unbounded).
type field struct {
	name     string
	value    *string
	required bool
	maxLen   int
}

func check(fields []field) error {
	verr := &ValidationError{}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		switch {
		case f.required && *f.value == "":
			verr.add(f.name, "This field is required")
		case f.maxLen > 0 && utf8.RuneCountInString(*f.value) > f.maxLen:
			verr.add(f.name, fmt.Sprintf("Must be at most %d characters", f.maxLen))
		}
	}
	return verr.orNil()
}

// Normalize trims every value in place and reports all problems at once.
func (f *OrderForm) Normalize() error {
	return check([]field{
		{"customer_name", &f.CustomerName, true, 100},
		{"customer_email", &f.CustomerEmail, true, 120},
		{"customer_phone", &f.CustomerPhone, true, 20},
		{"product_type", &f.ProductType, true, 50},
		{"description", &f.Description, true, 0},
		{"colors", &f.Colors, true, 200},
		{"sizes", &f.Sizes, true, 100},
		{"delivery_address", &f.DeliveryAddress, true, 0},
	})
}

func (f *ContactForm) Normalize() error {
	return check([]field{
		{"contact_method", &f.Method, true, 0},
		{"contact_name", &f.Name, true, 0},
		{"contact_phone", &f.Phone, false, 0},
		{"contact_username", &f.Username, false, 0},
		{"contact_subject", &f.Subject, true, 0},
		{"contact_message", &f.Message, true, 0},
	})
}

// normalizeStatus trims the label. Any label fits, the empty one included,
// as long as it fits the status column.
func normalizeStatus(status string) (string, error) {
	err := check([]field{{"status", &status, false, MaxStatusLength}})
	return status, err
}
