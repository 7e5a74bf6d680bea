// Package authprobe verifies credentials against the auth service and reports
// whether the account holds the admin role, without keeping a session.
package authprobe

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
	"github.com/wolfman30/coaching-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

var probeTracer = otel.Tracer("coaching.internal.authprobe")

const lockedMessage = "too many failed attempts; try again later"

// AdminRole is the role value that grants admin access.
const AdminRole = "admin"

// Session is what a successful sign-in yields.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
}

// Authenticator signs users in and revokes the sessions it issued.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, session *Session) error
}

// RoleStore resolves a user's role. It returns ErrRoleNotFound when no row exists.
type RoleStore interface {
	RoleForUser(ctx context.Context, userID string) (string, error)
}

// Auditor records probe outcomes.
type Auditor interface {
	LogAuthProbe(ctx context.Context, email string, authenticated, isAdmin bool) error
}

// Limiter tracks failed attempts per email.
type Limiter interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// ProbeResult is the outcome of one probe. IsAdmin is true only when both
// authentication and role lookup succeeded and the role is "admin".
type ProbeResult struct {
	Authenticated bool        `json:"authenticated"`
	RoleLookupOK  bool        `json:"roleLookupOk"`
	IsAdmin       bool        `json:"isAdmin"`
	Error         string      `json:"error,omitempty"`
	ErrorKind     apperr.Kind `json:"errorKind,omitempty"`

	UserID string `json:"-"`
	Email  string `json:"-"`
}

// Err returns the classified failure carried by the result, or nil.
func (r ProbeResult) Err() error {
	if r.Error == "" {
		return nil
	}
	return apperr.New(r.ErrorKind, r.Error)
}

// Options tunes optional collaborators.
type Options struct {
	Limiter Limiter
	Auditor Auditor
	Metrics *metrics.ProbeMetrics
	// SignOutTimeout bounds the session revoke, which runs even if the request was cancelled.
	SignOutTimeout time.Duration
}

// Service runs auth/role probes.
type Service struct {
	auth           Authenticator
	roles          RoleStore
	limiter        Limiter
	auditor        Auditor
	metrics        *metrics.ProbeMetrics
	logger         *logging.Logger
	signOutTimeout time.Duration
}

// NewService wires a probe service.
func NewService(auth Authenticator, roles RoleStore, opts Options, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.SignOutTimeout <= 0 {
		opts.SignOutTimeout = 5 * time.Second
	}
	return &Service{
		auth:           auth,
		roles:          roles,
		limiter:        opts.Limiter,
		auditor:        opts.Auditor,
		metrics:        opts.Metrics,
		logger:         logger,
		signOutTimeout: opts.SignOutTimeout,
	}
}

// Probe signs in with email and password, looks up the role only after a
// successful sign-in, and revokes the session before returning.
func (s *Service) Probe(ctx context.Context, email, password string) (result ProbeResult) {
	ctx, span := probeTracer.Start(ctx, "authprobe.probe")
	defer span.End()

	email = strings.TrimSpace(email)
	result.Email = email
	if email == "" || password == "" {
		result.Error = "email and password are required"
		result.ErrorKind = apperr.KindValidation
		return result
	}

	defer func() {
		span.SetAttributes(
			attribute.Bool("coaching.authenticated", result.Authenticated),
			attribute.Bool("coaching.is_admin", result.IsAdmin),
		)
		s.metrics.ObserveProbe(outcome(result))
		if s.auditor != nil {
			if err := s.auditor.LogAuthProbe(ctx, email, result.Authenticated, result.IsAdmin); err != nil {
				s.logger.Warn("authprobe: audit failed", "error", err)
			}
		}
	}()

	if s.limiter != nil {
		locked, err := s.limiter.Locked(ctx, email)
		if err != nil {
			s.logger.Warn("authprobe: lockout check failed", "error", err)
		}
		if locked {
			result.Error = lockedMessage
			result.ErrorKind = apperr.KindAuthentication
			return result
		}
	}

	session, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		result.Error, result.ErrorKind = describeSignInError(err)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			s.recordFailure(ctx, email)
		case result.ErrorKind != apperr.KindAuthentication:
			span.RecordError(err)
			s.logger.Error("authprobe: sign-in failed", "error", err)
		}
		return result
	}
	defer s.discard(ctx, session)

	result.Authenticated = true
	result.UserID = session.UserID
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("authprobe: lockout reset failed", "error", err)
		}
	}

	role, err := s.roles.RoleForUser(ctx, session.UserID)
	if err != nil {
		result.ErrorKind = apperr.KindLookup
		if errors.Is(err, ErrRoleNotFound) {
			result.Error = "no role assigned to this account"
		} else {
			result.Error = "role lookup failed"
			span.RecordError(err)
			s.logger.Error("authprobe: role lookup failed", "error", err, "user_id", session.UserID)
		}
		return result
	}

	result.RoleLookupOK = true
	result.IsAdmin = strings.TrimSpace(role) == AdminRole
	return result
}

// discard revokes the probe's session. A failed revoke is logged only.
func (s *Service) discard(ctx context.Context, session *Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.signOutTimeout)
	defer cancel()
	if err := s.auth.SignOut(ctx, session); err != nil {
		s.logger.Warn("authprobe: session revoke failed", "error", err, "user_id", session.UserID)
	}
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("authprobe: record failure failed", "error", err)
	}
}

func describeSignInError(err error) (string, apperr.Kind) {
	var authErr *AuthError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid login credentials", apperr.KindAuthentication
	case errors.As(err, &authErr) && authErr.Status == 429:
		return "auth service is rate limiting sign-ins", apperr.KindAuthentication
	case errors.As(err, &authErr) && authErr.Misconfigured():
		return "auth service rejected the server configuration", apperr.KindInternal
	case errors.Is(err, context.DeadlineExceeded):
		return "auth service timed out", apperr.KindInternal
	default:
		return "auth service unavailable", apperr.KindInternal
	}
}

func outcome(r ProbeResult) string {
	switch {
	case r.IsAdmin:
		return "admin"
	case r.RoleLookupOK:
		return "member"
	case r.Authenticated:
		return "role_failed"
	case r.Error == lockedMessage:
		return "locked"
	default:
		return "auth_failed"
	}
}
