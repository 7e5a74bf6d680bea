package notify

import (
	"fmt"

	"github.com/wolfman30/coaching-booking-platform/internal/config"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// NewTransport builds the transport named by cfg.Provider. ses may be nil
// unless the SES provider is selected.
func NewTransport(cfg config.MailConfig, ses SESAPI, logger *logging.Logger) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportConfig, err)
	}

	switch cfg.Provider {
	case config.MailProviderSMTP:
		t, err := NewSMTPTransport(SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.MailProviderSendGrid:
		t, err := NewSendGridTransport(SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.MailProviderSES:
		t, err := NewSESTransport(ses, SESConfig{FromEmail: cfg.FromEmail, FromName: cfg.FromName}, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return NewStubTransport(logger), nil
	}
}
