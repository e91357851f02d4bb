package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jogardn/storefront/pkg/models"
)

func (s *Store) AdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	admin := &models.Admin{}
	query := s.db.Rebind(`SELECT id, username, password_hash, created_at FROM admins WHERE username = ?`)
	if err := s.db.GetContext(ctx, admin, query, username); err != nil {
		return nil, notFound(err)
	}
	return admin, nil
}

func (s *Store) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

func (s *Store) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}

	query := s.db.Rebind(`
		INSERT INTO admins (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)
	err := s.db.QueryRowxContext(ctx, query, admin.Username, admin.PasswordHash, admin.CreatedAt).
		Scan(&admin.ID)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// EnsureAdmin creates the admin only when the table is empty. It reports
// whether a row was inserted.
func (s *Store) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	count, err := s.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := s.CreateAdmin(ctx, &models.Admin{Username: username, PasswordHash: passwordHash}); err != nil {
		return false, err
	}
	return true, nil
}
