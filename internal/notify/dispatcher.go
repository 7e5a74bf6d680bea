// Package notify sends transactional email through a single injected transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/coaching-booking-platform/internal/compliance"
	"github.com/wolfman30/coaching-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// DeliveryResult reports the outcome of one send. Failures are values, not errors.
type DeliveryResult struct {
	OK        bool   `json:"ok"`
	MessageID string `json:"messageId,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Dispatcher appends the recipient-rights footer and delivers through its transport.
type Dispatcher struct {
	transport Transport
	footer    *compliance.Footer
	metrics   *metrics.NotificationMetrics
	logger    *logging.Logger
}

// NewDispatcher wires a dispatcher. Both transport and footer are required.
func NewDispatcher(transport Transport, footer *compliance.Footer, m *metrics.NotificationMetrics, logger *logging.Logger) (*Dispatcher, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: no transport", ErrTransportConfig)
	}
	if footer == nil {
		return nil, fmt.Errorf("%w: no compliance footer", ErrTransportConfig)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		transport: transport,
		footer:    footer,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Provider names the transport in use.
func (d *Dispatcher) Provider() string {
	return d.transport.Name()
}

// Send delivers one HTML email. It never panics and never returns an error;
// provider rejections and network failures come back as a failed result.
func (d *Dispatcher) Send(ctx context.Context, to, subject, htmlBody string) (result DeliveryResult) {
	provider := d.transport.Name()
	result.Provider = provider
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notify: transport panicked", "provider", provider, "panic", r)
			result = DeliveryResult{Provider: provider, Error: "mail transport failed"}
		}
		d.metrics.ObserveSend(provider, result.OK, time.Since(start).Seconds())
	}()

	addr, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		result.Error = fmt.Sprintf("invalid recipient %q", to)
		return result
	}
	if strings.TrimSpace(subject) == "" {
		result.Error = "subject is required"
		return result
	}

	msg := Message{
		To:      addr.Address,
		Subject: subject,
		HTML:    d.footer.Apply(htmlBody),
	}

	id, err := d.transport.Deliver(ctx, msg)
	if err != nil {
		d.logger.Error("notify: email delivery failed", "error", err, "provider", provider, "to", msg.To)
		result.Error = describeFailure(err)
		return result
	}

	d.logger.Info("notify: email sent", "provider", provider, "to", msg.To, "subject", subject, "message_id", id)
	result.OK = true
	result.MessageID = id
	return result
}

func describeFailure(err error) string {
	var rejection *RejectionError
	switch {
	case errors.As(err, &rejection):
		return rejection.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "mail provider timed out"
	case errors.Is(err, context.Canceled):
		return "send cancelled"
	default:
		return err.Error()
	}
}
