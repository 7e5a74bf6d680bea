package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// SMTPConfig holds host, port, and credentials for an authenticated relay.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPTransport delivers through an SMTP relay using PLAIN auth.
type SMTPTransport struct {
	client    smtpClient
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSMTPTransport validates cfg and builds the relay client once.
func NewSMTPTransport(cfg SMTPConfig, logger *logging.Logger) (*SMTPTransport, error) {
	var missing []string
	if strings.TrimSpace(cfg.Host) == "" {
		missing = append(missing, "host")
	}
	if cfg.Port <= 0 {
		missing = append(missing, "port")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		missing = append(missing, "username")
	}
	if cfg.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		missing = append(missing, "from address")
	}
	if len(missing) > 0 {
		return nil, configError("smtp", "missing "+strings.Join(missing, ", "))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTimeout(cfg.Timeout),
	}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSLPort(false))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, configError("smtp", err.Error())
	}
	return newSMTPTransportWithClient(client, cfg, logger), nil
}

func newSMTPTransportWithClient(client smtpClient, cfg SMTPConfig, logger *logging.Logger) *SMTPTransport {
	if logger == nil {
		logger = logging.Default()
	}
	return &SMTPTransport{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (t *SMTPTransport) Name() string { return "smtp" }

// Deliver sends msg and returns the generated Message-ID header.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) (string, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(t.fromName, t.fromEmail); err != nil {
		return "", fmt.Errorf("notify: smtp from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return "", fmt.Errorf("notify: smtp recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	m.SetDate()
	m.SetMessageID()

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("notify: smtp send failed: %w", err)
	}
	return m.GetMessageID(), nil
}

var _ Transport = (*SMTPTransport)(nil)
