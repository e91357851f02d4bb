package notify

import (
	"context"
	"fmt"

	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
)

type FallbackWriter interface {
	AppendOrder(order *models.Order) error
	AppendContact(msg *models.ContactMessage) error
}

type DelivererConfig struct {
	From      string
	To        string
	Formatter Formatter
}

// Deliverer makes exactly one send attempt per notification and writes the
// fallback log when that attempt fails.
type Deliverer struct {
	mailer   Mailer
	fallback FallbackWriter
	config   DelivererConfig
	logger   *logrus.Logger
}

func NewDeliverer(mailer Mailer, fallback FallbackWriter, config DelivererConfig, logger *logrus.Logger) *Deliverer {
	return &Deliverer{
		mailer:   mailer,
		fallback: fallback,
		config:   config,
		logger:   logger,
	}
}

// Deliver never panics. A non-nil error is always a *NotificationError and
// means the fallback log was attempted.
func (d *Deliverer) Deliver(ctx context.Context, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &NotificationError{ID: n.ID, Kind: n.Kind, Err: fmt.Errorf("panic: %v", r)}
			d.logger.WithField("notification_id", n.ID).WithError(err).Error("Notification send panicked")
			d.Fallback(n)
		}
	}()

	if err := n.validate(); err != nil {
		d.logger.WithError(err).Error("Dropping malformed notification")
		return &NotificationError{ID: n.ID, Kind: n.Kind, Err: err}
	}

	msg := d.compose(n)
	if sendErr := d.mailer.Send(ctx, msg); sendErr != nil {
		d.logger.WithFields(logrus.Fields{
			"notification_id": n.ID,
			"kind":            n.Kind,
			"subject":         msg.Subject,
		}).WithError(sendErr).Error("Failed to send notification email")
		d.Fallback(n)
		return &NotificationError{ID: n.ID, Kind: n.Kind, Err: sendErr}
	}

	d.logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"kind":            n.Kind,
		"subject":         msg.Subject,
	}).Info("Notification email sent")
	return nil
}

// Fallback appends the notification to its text log. Failures are logged
// and returned but must never reach the customer.
func (d *Deliverer) Fallback(n Notification) error {
	var err error
	switch n.Kind {
	case KindOrder:
		if n.Order == nil {
			return nil
		}
		err = d.fallback.AppendOrder(n.Order)
	case KindContact:
		if n.Contact == nil {
			return nil
		}
		if n.Audited {
			d.logger.WithField("notification_id", n.ID).Debug("Contact already in contact log, skipping fallback append")
			return nil
		}
		err = d.fallback.AppendContact(n.Contact)
	default:
		return nil
	}

	if err != nil {
		d.logger.WithFields(logrus.Fields{
			"notification_id": n.ID,
			"kind":            n.Kind,
		}).WithError(err).Error("Failed to write fallback log")
	}
	return err
}

func (d *Deliverer) compose(n Notification) Message {
	var subject, body string
	if n.Kind == KindOrder {
		subject, body = d.config.Formatter.Order(n.Order)
	} else {
		subject, body = d.config.Formatter.Contact(n.Contact)
	}

	return Message{
		From:    d.config.From,
		To:      []string{d.config.To},
		Subject: subject,
		Body:    body,
	}
}
