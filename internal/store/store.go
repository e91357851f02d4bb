package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrNotFound = errors.New("record not found")

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by name.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Options struct {
	Driver       string
	DSN          string
	PingAttempts int
	PingInterval time.Duration
}

type Store struct {
	db     *sqlx.DB
	driver string
	logger *logrus.Logger
}

// Open connects and waits for the database to answer a ping.
func Open(ctx context.Context, opts Options, logger *logrus.Logger) (*Store, error) {
	if opts.Driver != DriverPostgres && opts.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if opts.PingAttempts <= 0 {
		opts.PingAttempts = 1
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 2 * time.Second
	}

	db, err := sqlx.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}
	if opts.Driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY on concurrent inserts.
		db.SetMaxOpenConns(1)
	}

	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt >= opts.PingAttempts {
			db.Close()
			return nil, fmt.Errorf("ping %s database: %w", opts.Driver, err)
		}
		logger.WithField("attempt", attempt).Info("Waiting for database...")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.PingInterval):
		}
	}

	logger.WithField("driver", opts.Driver).Info("Database connection established")

	return &Store{db: db, driver: opts.Driver, logger: logger}, nil
}

// Migrate creates the tables if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	queries := postgresSchema
	if s.driver == DriverSQLite {
		queries = sqliteSchema
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	s.logger.Info("Database schema is up to date")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Driver() string {
	return s.driver
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		customer_name VARCHAR(100) NOT NULL,
		customer_email VARCHAR(120) NOT NULL,
		customer_phone VARCHAR(20) NOT NULL,
		product_type VARCHAR(50) NOT NULL,
		description TEXT NOT NULL,
		colors VARCHAR(200) NOT NULL,
		sizes VARCHAR(100) NOT NULL,
		delivery_address TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		status VARCHAR(64) NOT NULL DEFAULT 'New'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(80) NOT NULL UNIQUE,
		password_hash VARCHAR(120) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		product_type TEXT NOT NULL,
		description TEXT NOT NULL,
		colors TEXT NOT NULL,
		sizes TEXT NOT NULL,
		delivery_address TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		status TEXT NOT NULL DEFAULT 'New'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}
