// Package notify turns new orders and contact messages into operator emails
// and falls back to the text logs whenever a message cannot be sent.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jogardn/storefront/pkg/models"
)

type Kind string

const (
	KindOrder   Kind = "order"
	KindContact Kind = "contact"
)

// Notification is the unit handed from a request to a dispatcher. It is
// JSON encoded when it travels through Kafka.
type Notification struct {
	ID      uuid.UUID              `json:"id"`
	Kind    Kind                   `json:"kind"`
	Order   *models.Order          `json:"order,omitempty"`
	Contact *models.ContactMessage `json:"contact,omitempty"`
	// Audited is set when the contact was already written to the contact log,
	// so a failed send does not append it a second time.
	Audited     bool      `json:"audited,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewOrderNotification(order *models.Order) Notification {
	return Notification{
		ID:          uuid.New(),
		Kind:        KindOrder,
		Order:       order,
		RequestedAt: time.Now().UTC(),
	}
}

func NewContactNotification(msg *models.ContactMessage, audited bool) Notification {
	return Notification{
		ID:          uuid.New(),
		Kind:        KindContact,
		Contact:     msg,
		Audited:     audited,
		RequestedAt: time.Now().UTC(),
	}
}

func (n Notification) validate() error {
	switch n.Kind {
	case KindOrder:
		if n.Order == nil {
			return fmt.Errorf("order notification %s has no order", n.ID)
		}
	case KindContact:
		if n.Contact == nil {
			return fmt.Errorf("contact notification %s has no message", n.ID)
		}
	default:
		return fmt.Errorf("notification %s has unknown kind %q", n.ID, n.Kind)
	}
	return nil
}

// NotificationError reports a notification that was not delivered by mail.
// By the time it is returned the fallback log has already been attempted.
type NotificationError struct {
	ID   uuid.UUID
	Kind Kind
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s notification %s not sent: %v", e.Kind, e.ID, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
