package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridTransport sends emails via the SendGrid v3 API.
type SendGridTransport struct {
	client    sendgridClient
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSendGridTransport creates a SendGrid transport, failing when the key or sender is missing.
func NewSendGridTransport(cfg SendGridConfig, logger *logging.Logger) (*SendGridTransport, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, configError("sendgrid", "missing api key")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, configError("sendgrid", "missing from address")
	}
	return newSendGridTransportWithClient(sendgrid.NewSendClient(cfg.APIKey), cfg, logger), nil
}

func newSendGridTransportWithClient(client sendgridClient, cfg SendGridConfig, logger *logging.Logger) *SendGridTransport {
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridTransport{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridTransport) Name() string { return "sendgrid" }

// Deliver posts msg to SendGrid and returns the X-Message-Id header.
func (s *SendGridTransport) Deliver(ctx context.Context, msg Message) (string, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("notify: sendgrid send failed: %w", err)
	}

	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return "", &RejectionError{Provider: "sendgrid", Status: response.StatusCode}
	}

	return headerValue(response.Headers, "X-Message-Id"), nil
}

func headerValue(headers map[string][]string, key string) string {
	for k, values := range headers {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

var _ Transport = (*SendGridTransport)(nil)
