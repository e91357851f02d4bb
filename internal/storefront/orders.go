package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/jogardn/storefront/internal/notify"
	"github.com/jogardn/storefront/internal/websocket"
	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
)

const eventSource = "storefront"

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context) ([]*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
}

type Broadcaster interface {
	Broadcast(messageType string, data interface{}, source string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, interface{}, string) {}

type OrderService struct {
	store       OrderStore
	dispatcher  notify.Dispatcher
	broadcaster Broadcaster
	logger      *logrus.Logger
	now         func() time.Time
}

func NewOrderService(store OrderStore, dispatcher notify.Dispatcher, broadcaster Broadcaster, logger *logrus.Logger) *OrderService {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	return &OrderService{
		store:       store,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// SubmitOrder stores the order and then hands the operator notification to
// the dispatcher. Once the row is committed the order is accepted no matter
// what happens to the notification.
func (s *OrderService) SubmitOrder(ctx context.Context, form OrderForm) (*models.Order, error) {
	if err := form.Normalize(); err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerName:    form.CustomerName,
		CustomerEmail:   form.CustomerEmail,
		CustomerPhone:   form.CustomerPhone,
		ProductType:     form.ProductType,
		Description:     form.Description,
		Colors:          form.Colors,
		Sizes:           form.Sizes,
		DeliveryAddress: form.DeliveryAddress,
		CreatedAt:       s.now().UTC(),
		Status:          models.StatusNew,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		s.logger.WithError(err).Error("Failed to store order")
		return nil, &StorageError{Op: "create order", Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"product_type": order.ProductType,
	}).Info("Order created")

	if err := s.dispatcher.Dispatch(ctx, notify.NewOrderNotification(order)); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("Order notification not sent")
	}

	s.broadcaster.Broadcast(websocket.TypeOrderCreated, order, eventSource)
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list orders", Err: err}
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get order", Err: err}
	}
	return order, nil
}

// UpdateStatus overwrites the status label and nothing else. It is neither
// notified nor written to the fallback log.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status string) error {
	status, err := normalizeStatus(status)
	if err != nil {
		return err
	}

	err = s.store.UpdateOrderStatus(ctx, id, status)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return &StorageError{Op: "update order status", Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"status":   status,
	}).Info("Order status updated")

	s.broadcaster.Broadcast(websocket.TypeOrderStatusUpdated, map[string]interface{}{
		"id":     id,
		"status": status,
	}, eventSource)
	return nil
}
