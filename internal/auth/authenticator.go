package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jogardn/storefront/internal/store"
	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const DefaultAdminPassword = "admin123"

var ErrInvalidCredentials = errors.New("invalid username or password")

type AdminStore interface {
	AdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error)
}

// Unknown usernames are checked against this hash so both paths cost one
// bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), bcrypt.DefaultCost)
	return hash
})

type Authenticator struct {
	store  AdminStore
	logger *logrus.Logger
}

func NewAuthenticator(store AdminStore, logger *logrus.Logger) *Authenticator {
	return &Authenticator{store: store, logger: logger}
}

func (a *Authenticator) Login(ctx context.Context, username, password string) (*models.Admin, error) {
	admin, err := a.store.AdminByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		a.logger.WithField("username", username).Warn("Login attempt for unknown admin")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	if !CheckPassword(password, admin.PasswordHash) {
		a.logger.WithField("username", username).Warn("Login attempt with wrong password")
		return nil, ErrInvalidCredentials
	}

	a.logger.WithField("username", username).Info("Admin logged in")
	return admin, nil
}

// SeedDefaultAdmin creates the first admin when the table is empty.
func (a *Authenticator) SeedDefaultAdmin(ctx context.Context, username, password string) error {
	if password == DefaultAdminPassword {
		a.logger.Warn("Default admin password in use, set DEFAULT_ADMIN_PASSWORD")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	created, err := a.store.EnsureAdmin(ctx, username, hash)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		a.logger.WithField("username", username).Info("Default admin created")
	}
	return nil
}
