package store

import (
	"context"
	"fmt"

	"github.com/jogardn/storefront/pkg/models"
)

const orderColumns = `id, customer_name, customer_email, customer_phone, product_type,
	description, colors, sizes, delivery_address, created_at, status`

// CreateOrder inserts the order in one statement and fills in the assigned id.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := s.db.Rebind(`
		INSERT INTO orders (customer_name, customer_email, customer_phone, product_type,
			description, colors, sizes, delivery_address, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := s.db.QueryRowxContext(ctx, query,
		order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.ProductType,
		order.Description, order.Colors, order.Sizes, order.DeliveryAddress,
		order.CreatedAt.UTC(), order.Status,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// ListOrders returns every order, newest first.
func (s *Store) ListOrders(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	for _, order := range orders {
		order.CreatedAt = order.CreatedAt.UTC()
	}
	return orders, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order := &models.Order{}
	query := s.db.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE id = ?`)
	if err := s.db.GetContext(ctx, order, query, id); err != nil {
		return nil, notFound(err)
	}

	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}

// UpdateOrderStatus overwrites the status column only.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	query := s.db.Rebind(`UPDATE orders SET status = ? WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
