package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// SESAPI is the slice of the SES v2 client the transport uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	FromEmail string
	FromName  string
}

// SESTransport sends emails via AWS SES.
type SESTransport struct {
	client    SESAPI
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSESTransport creates an SES transport.
func NewSESTransport(client SESAPI, cfg SESConfig, logger *logging.Logger) (*SESTransport, error) {
	if client == nil {
		return nil, configError("ses", "missing client")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, configError("ses", "missing from address")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SESTransport{
		client:    client,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}, nil
}

func (s *SESTransport) Name() string { return "ses" }

// Deliver sends msg via SES and returns the SES message id.
func (s *SESTransport) Deliver(ctx context.Context, msg Message) (string, error) {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTML),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return "", &RejectionError{Provider: "ses", Status: 400, Detail: apiErr.ErrorCode()}
		}
		return "", fmt.Errorf("notify: SES send failed: %w", err)
	}

	return aws.ToString(output.MessageId), nil
}

// Ensure interface compliance
var _ Transport = (*SESTransport)(nil)
