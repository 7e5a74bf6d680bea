package notify

import (
	"context"
	"errors"
	"fmt"
)

// Message is one outgoing email after the compliance footer has been applied.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Transport hands a rendered message to a mail provider. It returns the
// provider's message id when the provider reports one.
type Transport interface {
	Name() string
	Deliver(ctx context.Context, msg Message) (string, error)
}

// ErrTransportConfig marks a transport that cannot be built from its configuration.
var ErrTransportConfig = errors.New("notify: transport misconfigured")

// RejectionError is returned when a provider answered but refused the message.
type RejectionError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("notify: %s rejected message with status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("notify: %s rejected message with status %d: %s", e.Provider, e.Status, e.Detail)
}

func configError(provider, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrTransportConfig, provider, detail)
}
