// Package config loads storefront settings from an optional YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	NotifyInline = "inline"
	NotifyQueue  = "queue"
	NotifyKafka  = "kafka"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Mail     MailConfig     `yaml:"mail"`
	Notify   NotifyConfig   `yaml:"notify"`
	Fallback FallbackConfig `yaml:"fallback"`
	Admin    AdminConfig    `yaml:"admin"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
	Timezone string         `yaml:"timezone"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, sqlite
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	// DSN wins over the individual fields. For sqlite it is the file path
	// or a full file: URI.
	DSN          string `yaml:"dsn"`
	PingAttempts int    `yaml:"ping_attempts"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Timeout  string `yaml:"timeout"`
}

type NotifyConfig struct {
	Mode               string `yaml:"mode"` // inline, queue, kafka
	Workers            int    `yaml:"workers"`
	QueueSize          int    `yaml:"queue_size"`
	SendTimeout        string `yaml:"send_timeout"`
	KafkaBrokers       string `yaml:"kafka_brokers"`
	KafkaTopic         string `yaml:"kafka_topic"`
	KafkaGroup         string `yaml:"kafka_group"`
	BreakerMaxFailures int    `yaml:"breaker_max_failures"`
	BreakerTimeout     string `yaml:"breaker_timeout"`
}

type FallbackConfig struct {
	OrdersPath         string `yaml:"orders_path"`
	ContactsPath       string `yaml:"contacts_path"`
	MaxBytes           int64  `yaml:"max_bytes"`
	ContactAuditAlways bool   `yaml:"contact_audit_always"`
}

type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SessionConfig struct {
	Secret       string `yaml:"secret"`
	TTL          string `yaml:"ttl"`
	CookieSecure bool   `yaml:"cookie_secure"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: "30s",
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         "5432",
			User:         "storefront",
			Password:     "storefront",
			Name:         "storefront",
			SSLMode:      "disable",
			PingAttempts: 30,
		},
		Mail: MailConfig{
			Host:    "smtp.gmail.com",
			Port:    587,
			Timeout: "10s",
		},
		Notify: NotifyConfig{
			Mode:               NotifyQueue,
			Workers:            2,
			QueueSize:          100,
			SendTimeout:        "15s",
			KafkaBrokers:       "localhost:9092",
			KafkaTopic:         "storefront.notifications",
			KafkaGroup:         "storefront-notifier",
			BreakerMaxFailures: 5,
			BreakerTimeout:     "30s",
		},
		Fallback: FallbackConfig{
			OrdersPath:         "orders_backup.txt",
			ContactsPath:       "contacts_backup.txt",
			ContactAuditAlways: true,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "admin123",
		},
		Session: SessionConfig{
			TTL: "12h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Timezone: "Local",
	}
}

// Load reads the YAML file at path when one is given, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	var errs []error

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("SERVER_PORT", &c.Server.Port)
	str("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("DB_DRIVER", &c.Database.Driver)
	str("DB_HOST", &c.Database.Host)
	str("DB_PORT", &c.Database.Port)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	str("DB_SSLMODE", &c.Database.SSLMode)
	str("DB_DSN", &c.Database.DSN)
	num("DB_PING_ATTEMPTS", &c.Database.PingAttempts)

	str("MAIL_HOST", &c.Mail.Host)
	num("MAIL_PORT", &c.Mail.Port)
	str("MAIL_USERNAME", &c.Mail.Username)
	str("MAIL_PASSWORD", &c.Mail.Password)
	str("MAIL_FROM", &c.Mail.From)
	str("MAIL_TO", &c.Mail.To)
	str("MAIL_TIMEOUT", &c.Mail.Timeout)

	str("NOTIFY_MODE", &c.Notify.Mode)
	num("NOTIFY_WORKERS", &c.Notify.Workers)
	num("NOTIFY_QUEUE_SIZE", &c.Notify.QueueSize)
	str("NOTIFY_SEND_TIMEOUT", &c.Notify.SendTimeout)
	str("KAFKA_BROKERS", &c.Notify.KafkaBrokers)
	str("KAFKA_NOTIFY_TOPIC", &c.Notify.KafkaTopic)
	str("KAFKA_GROUP", &c.Notify.KafkaGroup)
	num("BREAKER_MAX_FAILURES", &c.Notify.BreakerMaxFailures)
	str("BREAKER_TIMEOUT", &c.Notify.BreakerTimeout)

	str("FALLBACK_ORDERS_PATH", &c.Fallback.OrdersPath)
	str("FALLBACK_CONTACTS_PATH", &c.Fallback.ContactsPath)
	if v := os.Getenv("FALLBACK_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FALLBACK_MAX_BYTES: %w", err))
		} else {
			c.Fallback.MaxBytes = n
		}
	}
	flag("CONTACT_AUDIT_ALWAYS", &c.Fallback.ContactAuditAlways)

	str("DEFAULT_ADMIN_USERNAME", &c.Admin.Username)
	str("DEFAULT_ADMIN_PASSWORD", &c.Admin.Password)

	str("SESSION_SECRET", &c.Session.Secret)
	str("SESSION_TTL", &c.Session.TTL)
	flag("SESSION_COOKIE_SECURE", &c.Session.CookieSecure)

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("TIMEZONE", &c.Timezone)

	return errors.Join(errs...)
}

// Validate reports every problem at once so a misconfigured deployment can
// be fixed in one pass.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("invalid database driver: %s (valid: postgres, sqlite)", c.Database.Driver))
	}
	switch c.Notify.Mode {
	case NotifyInline, NotifyQueue, NotifyKafka:
	default:
		errs = append(errs, fmt.Errorf("invalid notify mode: %s (valid: inline, queue, kafka)", c.Notify.Mode))
	}
	if c.Notify.Mode == NotifyKafka && strings.TrimSpace(c.Notify.KafkaBrokers) == "" {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when NOTIFY_MODE=kafka"))
	}
	if c.Admin.Username == "" || c.Admin.Password == "" {
		errs = append(errs, errors.New("default admin username and password must not be empty"))
	}
	if c.Fallback.MaxBytes < 0 {
		errs = append(errs, errors.New("fallback max_bytes must not be negative"))
	}

	for name, value := range map[string]string{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"mail.timeout":            c.Mail.Timeout,
		"notify.send_timeout":     c.Notify.SendTimeout,
		"notify.breaker_timeout":  c.Notify.BreakerTimeout,
		"session.ttl":             c.Session.TTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// DSN builds the connection string for the configured driver.
func (c *Config) DSN() string {
	db := c.Database
	if db.Driver == "sqlite" {
		dsn := db.DSN
		if dsn == "" {
			dsn = db.Name + ".db"
		}
		if !strings.HasPrefix(dsn, "file:") {
			dsn = "file:" + dsn
		}
		if !strings.Contains(dsn, "_time_format=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_time_format=sqlite"
		}
		return dsn
	}

	if db.DSN != "" {
		return db.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.Name, db.SSLMode)
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 30*time.Second)
}

func (c *Config) GetMailTimeout() time.Duration {
	return parseDuration(c.Mail.Timeout, 10*time.Second)
}

func (c *Config) GetSendTimeout() time.Duration {
	return parseDuration(c.Notify.SendTimeout, 15*time.Second)
}

func (c *Config) GetBreakerTimeout() time.Duration {
	return parseDuration(c.Notify.BreakerTimeout, 30*time.Second)
}

func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, 12*time.Hour)
}

func parseDuration(value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Sender and recipient both fall back to the SMTP account, which is the
// usual setup of one mailbox notifying itself.
func (c *Config) MailFrom() string {
	if c.Mail.From != "" {
		return c.Mail.From
	}
	return c.Mail.Username
}

func (c *Config) MailTo() string {
	if c.Mail.To != "" {
		return c.Mail.To
	}
	return c.Mail.Username
}
