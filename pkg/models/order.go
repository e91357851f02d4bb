package models

import (
	"time"
)

const (
	StatusNew = "New"

	// NotProvided stands in for optional contact fields left blank.
	NotProvided = "Not provided"
)

type Order struct {
	ID              int64     `db:"id" json:"id"`
	CustomerName    string    `db:"customer_name" json:"customer_name"`
	CustomerEmail   string    `db:"customer_email" json:"customer_email"`
	CustomerPhone   string    `db:"customer_phone" json:"customer_phone"`
	ProductType     string    `db:"product_type" json:"product_type"`
	Description     string    `db:"description" json:"description"`
	Colors          string    `db:"colors" json:"colors"`
	Sizes           string    `db:"sizes" json:"sizes"`
	DeliveryAddress string    `db:"delivery_address" json:"delivery_address"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	Status          string    `db:"status" json:"status"`
}

type Admin struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ContactMessage is never stored in the database; it only travels to the
// mailer and the contact log.
type ContactMessage struct {
	Method   string    `json:"contact_method"`
	Name     string    `json:"contact_name"`
	Phone    string    `json:"contact_phone,omitempty"`
	Username string    `json:"contact_username,omitempty"`
	Subject  string    `json:"contact_subject"`
	Message  string    `json:"contact_message"`
	SentAt   time.Time `json:"sent_at"`
}

func (m *ContactMessage) PhoneOrMarker() string {
	if m.Phone == "" {
		return NotProvided
	}
	return m.Phone
}

func (m *ContactMessage) UsernameOrMarker() string {
	if m.Username == "" {
		return NotProvided
	}
	return m.Username
}
