package bootstrap

import (
	"strings"

	"github.com/wolfman30/coaching-booking-platform/internal/compliance"
	appconfig "github.com/wolfman30/coaching-booking-platform/internal/config"
	"github.com/wolfman30/coaching-booking-platform/internal/notify"
	"github.com/wolfman30/coaching-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// BuildDispatcher validates the mail settings and returns the dispatcher used
// for every appointment notification. ses may be nil unless MAIL_PROVIDER=ses.
func BuildDispatcher(cfg *appconfig.Config, ses notify.SESAPI, m *metrics.NotificationMetrics, logger *logging.Logger) (*notify.Dispatcher, error) {
	transport, err := notify.NewTransport(cfg.Mail, ses, logger)
	if err != nil {
		return nil, err
	}

	contact := strings.TrimSpace(cfg.Mail.ComplianceContact)
	if contact == "" {
		contact = strings.TrimSpace(cfg.Mail.FromEmail)
	}
	footer, err := compliance.NewFooter(compliance.FooterConfig{
		ContactEmail: contact,
		BusinessName: cfg.Mail.FromName,
	})
	if err != nil {
		return nil, err
	}
	return notify.NewDispatcher(transport, footer, m, logger)
}
