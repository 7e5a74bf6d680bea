package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// StubTransport logs messages instead of sending them. Used in development.
type StubTransport struct {
	logger *logging.Logger
}

// NewStubTransport creates a stub transport that logs but doesn't send.
func NewStubTransport(logger *logging.Logger) *StubTransport {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubTransport{logger: logger}
}

func (s *StubTransport) Name() string { return "stub" }

func (s *StubTransport) Deliver(_ context.Context, msg Message) (string, error) {
	id := "stub-" + uuid.NewString()
	s.logger.Info("stub transport: would send email", "to", msg.To, "subject", msg.Subject, "message_id", id)
	return id, nil
}
