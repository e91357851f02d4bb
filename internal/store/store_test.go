package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	dsn := "file:" + filepath.Join(t.TempDir(), "storefront.db") + "?_time_format=sqlite"
	s, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: dsn}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleOrder(name string, createdAt time.Time) *models.Order {
	return &models.Order{
		CustomerName:    name,
		CustomerEmail:   "a@x.com",
		CustomerPhone:   "123",
		ProductType:     "T-shirt",
		Description:     "custom print",
		Colors:          "red,blue",
		Sizes:           "M",
		DeliveryAddress: "Main St 1",
		CreatedAt:       createdAt,
		Status:          models.StatusNew,
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle"}, logrus.New())
	require.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestCreateAndGetOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createdAt := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	order := sampleOrder("Anna", createdAt)
	require.NoError(t, s.CreateOrder(ctx, order))
	assert.Equal(t, int64(1), order.ID)

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.CustomerName)
	assert.Equal(t, "custom print", got.Description)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.True(t, createdAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, createdAt)
}

func TestOrderIDsAreMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		order := sampleOrder("Buyer", time.Now().UTC())
		require.NoError(t, s.CreateOrder(ctx, order))
		assert.Greater(t, order.ID, last)
		last = order.ID
	}
}

func TestGetOrderNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetOrder(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{2 * time.Hour, 0, 5 * time.Hour, time.Hour} {
		order := sampleOrder("Buyer", base.Add(offset))
		order.Description = []string{"b", "a", "d", "c"}[i]
		require.NoError(t, s.CreateOrder(ctx, order))
	}

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 4)

	var descriptions []string
	for i, order := range orders {
		descriptions = append(descriptions, order.Description)
		if i > 0 {
			assert.False(t, order.CreatedAt.After(orders[i-1].CreatedAt))
		}
	}
	assert.Equal(t, []string{"d", "c", "b", "a"}, descriptions)
}

func TestUpdateOrderStatusChangesOnlyStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order := sampleOrder("Anna", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	require.NoError(t, s.CreateOrder(ctx, order))

	before, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, "Shipped"))

	after, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shipped", after.Status)

	after.Status = before.Status
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	after.CreatedAt = before.CreatedAt
	assert.Equal(t, before, after)
}

func TestUpdateOrderStatusUnknownID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpdateOrderStatus(ctx, 99, "Shipped")
	assert.ErrorIs(t, err, ErrNotFound)

	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.EnsureAdmin(ctx, "admin", "hash-1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAdmin(ctx, "admin", "hash-2")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := s.AdminByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", admin.PasswordHash)

	count, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAdminByUsernameNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AdminByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
