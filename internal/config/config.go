package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mail providers accepted by MAIL_PROVIDER.
const (
	MailProviderSMTP     = "smtp"
	MailProviderSendGrid = "sendgrid"
	MailProviderSES      = "ses"
	MailProviderStub     = "stub"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AdminJWTSecret string
	AdminTokenTTL  time.Duration

	// Hosted auth service. When AuthURL is empty the local users table is used.
	AuthURL     string
	AuthAPIKey  string
	AuthTimeout time.Duration

	ProbeMaxFailures   int
	ProbeLockoutWindow time.Duration
	ProbeRateLimit     int

	CORSAllowedOrigins []string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	Mail MailConfig
}

// MailConfig is the explicit transport configuration handed to the notification
// dispatcher. Nothing downstream reads the environment.
type MailConfig struct {
	Provider string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	SendGridAPIKey string

	FromEmail string
	FromName  string

	// OperatorInbox receives the operator copy of every appointment change.
	OperatorInbox string

	// ComplianceContact is the address printed in the recipient-rights footer.
	ComplianceContact string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),
		AdminJWTSecret:      getEnv("ADMIN_JWT_SECRET", ""),
		AdminTokenTTL:       getEnvAsDuration("ADMIN_TOKEN_TTL", 30*time.Minute),
		AuthURL:             strings.TrimRight(getEnv("AUTH_URL", ""), "/"),
		AuthAPIKey:          getEnv("AUTH_API_KEY", ""),
		AuthTimeout:         getEnvAsDuration("AUTH_TIMEOUT", 10*time.Second),
		ProbeMaxFailures:    getEnvAsInt("PROBE_MAX_FAILURES", 5),
		ProbeLockoutWindow:  getEnvAsDuration("PROBE_LOCKOUT_WINDOW", 15*time.Minute),
		ProbeRateLimit:      getEnvAsInt("PROBE_RATE_LIMIT", 10),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		Mail: MailConfig{
			Provider:          strings.ToLower(strings.TrimSpace(getEnv("MAIL_PROVIDER", MailProviderSMTP))),
			SMTPHost:          getEnv("SMTP_HOST", ""),
			SMTPPort:          getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:      getEnv("SMTP_USERNAME", ""),
			SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
			SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail:         getEnv("MAIL_FROM_EMAIL", ""),
			FromName:          getEnv("MAIL_FROM_NAME", "Coaching Bookings"),
			OperatorInbox:     getEnv("OPERATOR_INBOX", ""),
			ComplianceContact: getEnv("COMPLIANCE_CONTACT_EMAIL", ""),
		},
	}
}

// Validate reports every missing or malformed mail setting for the selected provider.
func (m MailConfig) Validate() error {
	var errs []error
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	switch m.Provider {
	case MailProviderSMTP:
		require(m.SMTPHost, "SMTP_HOST")
		require(m.SMTPUsername, "SMTP_USERNAME")
		require(m.SMTPPassword, "SMTP_PASSWORD")
		if m.SMTPPort <= 0 || m.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("SMTP_PORT %d is out of range", m.SMTPPort))
		}
	case MailProviderSendGrid:
		require(m.SendGridAPIKey, "SENDGRID_API_KEY")
	case MailProviderSES, MailProviderStub:
	default:
		errs = append(errs, fmt.Errorf("MAIL_PROVIDER %q is not supported", m.Provider))
	}

	if m.Provider != MailProviderStub {
		require(m.FromEmail, "MAIL_FROM_EMAIL")
	}
	require(m.OperatorInbox, "OPERATOR_INBOX")

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: mail: %w", errors.Join(errs...))
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
