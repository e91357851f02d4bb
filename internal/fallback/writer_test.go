package fallback

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, maxBytes int64) (*Writer, string, string) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	dir := t.TempDir()
	orders := filepath.Join(dir, "orders_backup.txt")
	contacts := filepath.Join(dir, "contacts_backup.txt")

	w := NewWriter(Config{
		OrdersPath:   orders,
		ContactsPath: contacts,
		MaxBytes:     maxBytes,
		Location:     time.UTC,
	}, logger)
	return w, orders, contacts
}

func testOrder() *models.Order {
	return &models.Order{
		ID:              1,
		CustomerName:    "Anna",
		CustomerEmail:   "a@x.com",
		CustomerPhone:   "123",
		ProductType:     "T-shirt",
		Description:     "custom print",
		Colors:          "red,blue",
		Sizes:           "M",
		DeliveryAddress: "Main St 1",
		CreatedAt:       time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC),
		Status:          models.StatusNew,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestAppendOrderWritesBlock(t *testing.T) {
	w, orders, _ := newTestWriter(t, 0)

	require.NoError(t, w.AppendOrder(testOrder()))

	content := readFile(t, orders)
	assert.Contains(t, content, "=== NEW ORDER #1 ===")
	assert.Contains(t, content, "Date: 17.10.2026 14:05")
	assert.Contains(t, content, "Name: Anna")
	assert.Contains(t, content, "Email: a@x.com")
	assert.Contains(t, content, "Description: custom print")
	assert.Contains(t, content, "Colors: red,blue")
	assert.Contains(t, content, "Address: Main St 1")
	assert.True(t, strings.HasSuffix(content, strings.Repeat("=", 50)+"\n"))
}

func TestAppendOrderKeepsPreviousBlocks(t *testing.T) {
	w, orders, _ := newTestWriter(t, 0)

	first := testOrder()
	second := testOrder()
	second.ID = 2
	second.CustomerName = "Boris"

	require.NoError(t, w.AppendOrder(first))
	require.NoError(t, w.AppendOrder(second))

	content := readFile(t, orders)
	assert.Equal(t, 1, strings.Count(content, "=== NEW ORDER #1 ==="))
	assert.Equal(t, 1, strings.Count(content, "=== NEW ORDER #2 ==="))
	assert.Less(t, strings.Index(content, "Anna"), strings.Index(content, "Boris"))
}

func TestAppendContactUsesMarkerForOptionalFields(t *testing.T) {
	w, _, contacts := newTestWriter(t, 0)

	msg := &models.ContactMessage{
		Method:  "email",
		Name:    "Anna",
		Subject: "Sizes",
		Message: "Do you have XS?",
		SentAt:  time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, w.AppendContact(msg))

	content := readFile(t, contacts)
	assert.Contains(t, content, "=== NEW MESSAGE ===")
	assert.Contains(t, content, "Date: 17.10.2026 08:00")
	assert.Contains(t, content, "Phone: Not provided")
	assert.Contains(t, content, "Username: Not provided")
	assert.Contains(t, content, "Contact method: email")
	assert.Contains(t, content, "Text: Do you have XS?")
}

func TestAppendFailsWhenDirectoryMissing(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	w := NewWriter(Config{
		OrdersPath:   filepath.Join(t.TempDir(), "missing", "orders.txt"),
		ContactsPath: filepath.Join(t.TempDir(), "contacts.txt"),
	}, logger)

	err := w.AppendOrder(testOrder())
	assert.Error(t, err)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	w, orders, _ := newTestWriter(t, 0)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			order := testOrder()
			order.ID = id
			assert.NoError(t, w.AppendOrder(order))
		}(int64(i + 1))
	}
	wg.Wait()

	content := readFile(t, orders)
	assert.Equal(t, writers, strings.Count(content, "=== NEW ORDER #"))
	assert.Equal(t, writers, strings.Count(content, strings.Repeat("=", 50)+"\n"))
}

func TestRotationMovesOversizedLog(t *testing.T) {
	w, orders, _ := newTestWriter(t, 10)
	w.now = func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, w.AppendOrder(testOrder()))
	second := testOrder()
	second.ID = 2
	require.NoError(t, w.AppendOrder(second))

	content := readFile(t, orders)
	assert.NotContains(t, content, "#1 ===")
	assert.Contains(t, content, "#2 ===")

	matches, err := filepath.Glob(orders + ".*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, readFile(t, matches[0]), "#1 ===")
}
