package storefront

import (
	"context"
	"time"

	"github.com/jogardn/storefront/internal/notify"
	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
)

type ContactAuditor interface {
	AppendContact(msg *models.ContactMessage) error
}

// ContactService accepts contact messages. They are never stored in the
// database; the contact log and the operator email are the only record.
type ContactService struct {
	auditor     ContactAuditor
	dispatcher  notify.Dispatcher
	auditAlways bool
	logger      *logrus.Logger
	now         func() time.Time
}

func NewContactService(auditor ContactAuditor, dispatcher notify.Dispatcher, auditAlways bool, logger *logrus.Logger) *ContactService {
	return &ContactService{
		auditor:     auditor,
		dispatcher:  dispatcher,
		auditAlways: auditAlways,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *ContactService) SubmitContact(ctx context.Context, form ContactForm) (*models.ContactMessage, error) {
	if err := form.Normalize(); err != nil {
		return nil, err
	}

	msg := &models.ContactMessage{
		Method:   form.Method,
		Name:     form.Name,
		Phone:    form.Phone,
		Username: form.Username,
		Subject:  form.Subject,
		Message:  form.Message,
		SentAt:   s.now().UTC(),
	}

	audited := false
	if s.auditAlways {
		if err := s.auditor.AppendContact(msg); err != nil {
			s.logger.WithError(err).Error("Failed to write contact log")
		} else {
			audited = true
		}
	}

	s.logger.WithFields(logrus.Fields{
		"contact_method": msg.Method,
		"subject":        msg.Subject,
	}).Info("Contact message received")

	if err := s.dispatcher.Dispatch(ctx, notify.NewContactNotification(msg, audited)); err != nil {
		s.logger.WithError(err).Warn("Contact notification not sent")
	}
	return msg, nil
}
