package fallback

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
)

// DateLayout is the dd.mm.yyyy HH:MM layout shared with the mail bodies.
const DateLayout = "02.01.2006 15:04"

var separator = strings.Repeat("=", 50)

type Config struct {
	OrdersPath   string
	ContactsPath string
	// MaxBytes rotates a log once it reaches this size. Zero keeps the log
	// growing without bound.
	MaxBytes int64
	Location *time.Location
}

// Writer appends human-readable records to the order and contact logs.
// Every append opens, writes and closes the file.
type Writer struct {
	config Config
	locks  map[string]*sync.Mutex
	now    func() time.Time
	logger *logrus.Logger
}

func NewWriter(config Config, logger *logrus.Logger) *Writer {
	if config.OrdersPath == "" {
		config.OrdersPath = "orders_backup.txt"
	}
	if config.ContactsPath == "" {
		config.ContactsPath = "contacts_backup.txt"
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	return &Writer{
		config: config,
		locks: map[string]*sync.Mutex{
			config.OrdersPath:   {},
			config.ContactsPath: {},
		},
		now:    time.Now,
		logger: logger,
	}
}

func (w *Writer) AppendOrder(order *models.Order) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n=== NEW ORDER #%d ===\n", order.ID)
	fmt.Fprintf(&b, "Date: %s\n\n", order.CreatedAt.In(w.config.Location).Format(DateLayout))
	b.WriteString("CUSTOMER:\n")
	fmt.Fprintf(&b, "Name: %s\n", order.CustomerName)
	fmt.Fprintf(&b, "Email: %s\n", order.CustomerEmail)
	fmt.Fprintf(&b, "Phone: %s\n\n", order.CustomerPhone)
	b.WriteString("PRODUCT:\n")
	fmt.Fprintf(&b, "Type: %s\n", order.ProductType)
	fmt.Fprintf(&b, "Description: %s\n", order.Description)
	fmt.Fprintf(&b, "Colors: %s\n", order.Colors)
	fmt.Fprintf(&b, "Sizes: %s\n\n", order.Sizes)
	b.WriteString("DELIVERY:\n")
	fmt.Fprintf(&b, "Address: %s\n\n", order.DeliveryAddress)
	b.WriteString(separator + "\n")

	if err := w.append(w.config.OrdersPath, b.String()); err != nil {
		return fmt.Errorf("append order #%d to %s: %w", order.ID, w.config.OrdersPath, err)
	}

	w.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"file":     w.config.OrdersPath,
	}).Info("Order saved to fallback log")
	return nil
}

func (w *Writer) AppendContact(msg *models.ContactMessage) error {
	sentAt := msg.SentAt
	if sentAt.IsZero() {
		sentAt = w.now()
	}

	var b strings.Builder
	b.WriteString("\n=== NEW MESSAGE ===\n")
	fmt.Fprintf(&b, "Date: %s\n\n", sentAt.In(w.config.Location).Format(DateLayout))
	b.WriteString("CUSTOMER:\n")
	fmt.Fprintf(&b, "Name: %s\n", msg.Name)
	fmt.Fprintf(&b, "Phone: %s\n", msg.PhoneOrMarker())
	fmt.Fprintf(&b, "Contact method: %s\n", msg.Method)
	fmt.Fprintf(&b, "Username: %s\n\n", msg.UsernameOrMarker())
	b.WriteString("MESSAGE:\n")
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Text: %s\n\n", msg.Message)
	b.WriteString(separator + "\n")

	if err := w.append(w.config.ContactsPath, b.String()); err != nil {
		return fmt.Errorf("append contact from %s to %s: %w", msg.Name, w.config.ContactsPath, err)
	}

	w.logger.WithFields(logrus.Fields{
		"contact_name": msg.Name,
		"file":         w.config.ContactsPath,
	}).Info("Contact message saved to fallback log")
	return nil
}

func (w *Writer) append(path, block string) error {
	mu := w.locks[path]
	mu.Lock()
	defer mu.Unlock()

	if err := w.rotate(path); err != nil {
		// Keep writing to the oversized file rather than losing the record.
		w.logger.WithError(err).WithField("file", path).Warn("Failed to rotate fallback log")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	// One Write call per block so concurrent processes appending to the same
	// file never interleave inside a record.
	if _, err := f.WriteString(block); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (w *Writer) rotate(path string) error {
	if w.config.MaxBytes <= 0 {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < w.config.MaxBytes {
		return nil
	}

	rotated := fmt.Sprintf("%s.%s", path, w.now().UTC().Format("20060102T150405.000000000"))
	if err := os.Rename(path, rotated); err != nil {
		return err
	}

	w.logger.WithFields(logrus.Fields{
		"file":    path,
		"rotated": rotated,
		"size":    info.Size(),
	}).Info("Fallback log rotated")
	return nil
}
