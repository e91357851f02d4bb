// Package app wires configuration into the running storefront components.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jogardn/storefront/internal/auth"
	"github.com/jogardn/storefront/internal/circuitbreaker"
	"github.com/jogardn/storefront/internal/config"
	"github.com/jogardn/storefront/internal/events"
	"github.com/jogardn/storefront/internal/fallback"
	"github.com/jogardn/storefront/internal/notify"
	"github.com/jogardn/storefront/internal/store"
	"github.com/jogardn/storefront/internal/storefront"
	"github.com/jogardn/storefront/internal/web"
	"github.com/jogardn/storefront/internal/websocket"
	"github.com/sirupsen/logrus"
)

// Delivery is the mail side of the system. The notifier worker needs only
// this part, without a database.
type Delivery struct {
	Fallback  *fallback.Writer
	Breaker   *circuitbreaker.CircuitBreaker
	Deliverer *notify.Deliverer
}

func NewDelivery(cfg *config.Config, logger *logrus.Logger) (*Delivery, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	writer := fallback.NewWriter(fallback.Config{
		OrdersPath:   cfg.Fallback.OrdersPath,
		ContactsPath: cfg.Fallback.ContactsPath,
		MaxBytes:     cfg.Fallback.MaxBytes,
		Location:     loc,
	}, logger)

	if cfg.Mail.Password == "" {
		logger.Warn("MAIL_PASSWORD is not set, every notification will go to the fallback log")
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "smtp",
		MaxFailures: cfg.Notify.BreakerMaxFailures,
		Timeout:     cfg.GetBreakerTimeout(),
		MaxRequests: 1,
	}, logger)

	mailer := notify.NewGuardedMailer(notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		Timeout:  cfg.GetMailTimeout(),
	}), breaker)

	deliverer := notify.NewDeliverer(mailer, writer, notify.DelivererConfig{
		From:      cfg.MailFrom(),
		To:        cfg.MailTo(),
		Formatter: notify.Formatter{Location: loc},
	}, logger)

	return &Delivery{Fallback: writer, Breaker: breaker, Deliverer: deliverer}, nil
}

func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*store.Store, error) {
	return store.Open(ctx, store.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.DSN(),
		PingAttempts: cfg.Database.PingAttempts,
	}, logger)
}

// App holds every long-lived component of the web process.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Delivery   *Delivery
	Dispatcher notify.Dispatcher
	Hub        *websocket.Hub
	Auth       *auth.Authenticator
	Sessions   *auth.Sessions
	Orders     *storefront.OrderService
	Contacts   *storefront.ContactService

	closers []func(ctx context.Context) error
	logger  *logrus.Logger
}

// Build opens the database, creates the tables, seeds the default admin and
// starts the notification dispatcher. Close releases all of it.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, logger: logger}

	db, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = db
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	if err := db.Migrate(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Auth = auth.NewAuthenticator(db, logger)
	if err := a.Auth.SeedDefaultAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Sessions, err = auth.NewSessions(auth.SessionConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.GetSessionTTL(),
		Secure: cfg.Session.CookieSecure,
	})
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Delivery, err = NewDelivery(cfg, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	if err := a.buildDispatcher(); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Hub = websocket.NewHub(logger)
	a.Orders = storefront.NewOrderService(db, a.Dispatcher, a.Hub, logger)
	a.Contacts = storefront.NewContactService(a.Delivery.Fallback, a.Dispatcher, cfg.Fallback.ContactAuditAlways, logger)

	return a, nil
}

func (a *App) buildDispatcher() error {
	cfg := a.Config
	deliverer := a.Delivery.Deliverer

	switch cfg.Notify.Mode {
	case config.NotifyInline:
		a.Dispatcher = notify.NewInline(deliverer, cfg.GetSendTimeout())

	case config.NotifyQueue:
		queue := notify.NewQueue(deliverer, notify.QueueConfig{
			Workers:     cfg.Notify.Workers,
			Size:        cfg.Notify.QueueSize,
			SendTimeout: cfg.GetSendTimeout(),
		}, a.logger)
		a.Dispatcher = queue
		a.closers = append(a.closers, queue.Close)

	case config.NotifyKafka:
		producer, err := events.NewNotificationProducer(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic, deliverer, a.logger)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		a.Dispatcher = producer
		a.closers = append(a.closers, func(context.Context) error { return producer.Close() })

	default:
		return fmt.Errorf("unknown notify mode %q", cfg.Notify.Mode)
	}

	a.logger.WithField("mode", cfg.Notify.Mode).Info("Notification dispatcher ready")
	return nil
}

func (a *App) Handler() (http.Handler, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}

	srv, err := web.NewServer(web.Deps{
		Orders:   a.Orders,
		Contacts: a.Contacts,
		Auth:     a.Auth,
		Sessions: a.Sessions,
		DB:       a.Store,
		Breaker:  a.Delivery.Breaker,
		Hub:      http.HandlerFunc(a.Hub.HandleWebSocket),
		Location: loc,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}
	return srv.Router(), nil
}

// Close shuts components down in reverse order: the dispatcher drains
// before the database goes away.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
