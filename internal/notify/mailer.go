package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jogardn/storefront/internal/circuitbreaker"
	"github.com/wneessen/go-mail"
)

var ErrMailNotConfigured = errors.New("mail credentials are not configured")

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer delivers one message per connection. It upgrades to TLS when
// the server offers STARTTLS and authenticates with PLAIN.
type SMTPMailer struct {
	config SMTPConfig
}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Port <= 0 {
		config.Port = 587
	}
	return &SMTPMailer{config: config}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.config.Host == "" || m.config.Password == "" {
		return ErrMailNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}

	email, err := newMsg(msg, time.Now())
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTimeout(m.config.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}

	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.config.Host, err)
	}
	return nil
}

// newMsg builds a UTF-8 text/plain message.
func newMsg(msg Message, date time.Time) (*mail.Msg, error) {
	email := mail.NewMsg()
	if err := email.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := email.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	email.Subject(msg.Subject)
	email.SetDateWithValue(date)
	email.SetBodyString(mail.TypeTextPlain, msg.Body)
	return email, nil
}

// GuardedMailer fails fast while the breaker is open so requests stop waiting
// on a mail server that is known to be down.
type GuardedMailer struct {
	next    Mailer
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedMailer(next Mailer, breaker *circuitbreaker.CircuitBreaker) *GuardedMailer {
	return &GuardedMailer{next: next, breaker: breaker}
}

func (g *GuardedMailer) Send(ctx context.Context, msg Message) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.Send(ctx, msg)
	})
}
