// Package appointments implements booking, rescheduling, and cancellation of
// coaching sessions with client and operator notifications.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
	"github.com/wolfman30/coaching-booking-platform/internal/notify"
	"github.com/wolfman30/coaching-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

var appointmentsTracer = otel.Tracer("coaching.internal.appointments")

// Notifier delivers one email and reports the outcome as a value.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) notify.DeliveryResult
}

// Auditor records appointment changes in the compliance trail.
type Auditor interface {
	LogAppointmentRescheduled(ctx context.Context, appointmentID, actor, previous, current string) error
	LogAppointmentCancelled(ctx context.Context, appointmentID, actor string) error
	LogNotificationFailed(ctx context.Context, subjectID, audience, provider, reason string) error
}

// Audience names who a notification was addressed to.
type Audience string

const (
	AudienceClient   Audience = "client"
	AudienceOperator Audience = "operator"
)

// Delivery is the outcome of one notification.
type Delivery struct {
	Audience  Audience `json:"audience"`
	Recipient string   `json:"recipient"`
	notify.DeliveryResult
}

// Result is returned by every mutating workflow. A failed notification never
// undoes the write; it is reported in Notifications and Warnings.
type Result struct {
	Appointment   Appointment `json:"appointment"`
	Previous      *Schedule   `json:"previous,omitempty"`
	Notifications []Delivery  `json:"notifications"`
	Warnings      []string    `json:"-"`
}

// ServiceConfig holds the operator inbox and notification timeout.
type ServiceConfig struct {
	OperatorInbox string
	// NotifyTimeout bounds both sends; they outlive a cancelled request.
	NotifyTimeout time.Duration
}

// Service runs appointment workflows.
type Service struct {
	repo          Repository
	notifier      Notifier
	auditor       Auditor
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
	validate      *validator.Validate
	operatorInbox string
	notifyTimeout time.Duration
}

// NewService wires the workflow. auditor and m may be nil.
func NewService(repo Repository, notifier Notifier, cfg ServiceConfig, auditor Auditor, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 30 * time.Second
	}
	return &Service{
		repo:          repo,
		notifier:      notifier,
		auditor:       auditor,
		metrics:       m,
		logger:        logger,
		validate:      newValidator(),
		operatorInbox: strings.TrimSpace(cfg.OperatorInbox),
		notifyTimeout: cfg.NotifyTimeout,
	}
}

// Book stores a pending appointment and notifies the client and operator.
func (s *Service) Book(ctx context.Context, req BookRequest) (result *Result, err error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.book")
	defer s.finish(span, "book", time.Now(), &result, &err)

	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	clock, _ := normalizeClock(req.Time)

	appt, err := s.repo.Create(ctx, Appointment{
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.TrimSpace(req.Email),
		SessionType: strings.TrimSpace(req.SessionType),
		Date:        req.Date,
		Time:        clock,
		Status:      StatusPending,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "could not save appointment", err)
	}
	span.SetAttributes(attribute.String("coaching.appointment_id", appt.ID))

	result = &Result{Appointment: *appt}
	s.fanOut(ctx, result, bookingClientEmail(*appt), bookingOperatorEmail(*appt))
	return result, nil
}

// Reschedule moves an appointment to a new date and time. The slot and
// updated_at are written atomically before any notification is attempted;
// nothing is sent when validation, lookup, or persistence fails.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (result *Result, err error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.reschedule")
	defer s.finish(span, "reschedule", time.Now(), &result, &err)
	span.SetAttributes(attribute.String("coaching.appointment_id", req.AppointmentID))

	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	clock, _ := normalizeClock(req.Time)
	target := Schedule{Date: req.Date, Time: clock}

	change, err := s.repo.Reschedule(ctx, req.AppointmentID, target)
	if err != nil {
		return nil, classifyStoreError(err, "could not save appointment")
	}

	previous := change.Before.Schedule()
	if s.auditor != nil {
		if err := s.auditor.LogAppointmentRescheduled(ctx, change.After.ID, req.Actor, previous.String(), target.String()); err != nil {
			s.logger.Warn("appointments: audit reschedule failed", "error", err, "appointment_id", change.After.ID)
		}
	}

	result = &Result{Appointment: change.After, Previous: &previous}
	s.fanOut(ctx, result,
		rescheduleClientEmail(change.After, previous),
		rescheduleOperatorEmail(change.After, previous),
	)
	return result, nil
}

// Cancel marks an appointment cancelled. Cancelling twice sends nothing the second time.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (result *Result, err error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.cancel")
	defer s.finish(span, "cancel", time.Now(), &result, &err)
	span.SetAttributes(attribute.String("coaching.appointment_id", req.AppointmentID))

	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	change, err := s.repo.Cancel(ctx, req.AppointmentID)
	if err != nil {
		return nil, classifyStoreError(err, "could not save appointment")
	}

	result = &Result{Appointment: change.After}
	if change.Before.Status == StatusCancelled {
		result.Warnings = append(result.Warnings, "appointment was already cancelled")
		return result, nil
	}

	if s.auditor != nil {
		if err := s.auditor.LogAppointmentCancelled(ctx, change.After.ID, req.Actor); err != nil {
			s.logger.Warn("appointments: audit cancel failed", "error", err, "appointment_id", change.After.ID)
		}
	}

	s.fanOut(ctx, result, cancelClientEmail(change.After), cancelOperatorEmail(change.After))
	return result, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return nil, apperr.Validation("appointmentId must be a valid appointment id")
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, classifyStoreError(err, "could not load appointment")
	}
	return appt, nil
}

// ListByEmail returns a client's appointments ordered by slot.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Appointment, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, apperr.Validation("email must be a valid email address")
	}
	list, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, classifyStoreError(err, "could not load appointments")
	}
	if list == nil {
		list = []Appointment{}
	}
	return list, nil
}

// Stats counts appointments per status.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, classifyStoreError(err, "could not load appointment stats")
	}
	stats := Stats{
		Pending:   counts[StatusPending],
		Confirmed: counts[StatusConfirmed],
		Cancelled: counts[StatusCancelled],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// fanOut sends the client and operator emails concurrently. Neither send can
// cancel or block the other's outcome.
func (s *Service) fanOut(ctx context.Context, result *Result, client, operator email) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	deliveries := []Delivery{
		{Audience: AudienceClient, Recipient: result.Appointment.Email},
		{Audience: AudienceOperator, Recipient: s.operatorInbox},
	}
	messages := []email{client, operator}

	var g errgroup.Group
	for i := range deliveries {
		i := i
		g.Go(func() error {
			deliveries[i].DeliveryResult = s.notifier.Send(sendCtx, deliveries[i].Recipient, messages[i].subject, messages[i].html)
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range deliveries {
		if d.OK {
			continue
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s notification failed: %s", d.Audience, d.Error))
		s.logger.Warn("appointments: notification failed", "audience", d.Audience, "appointment_id", result.Appointment.ID, "error", d.Error)
		if s.auditor != nil {
			if err := s.auditor.LogNotificationFailed(sendCtx, result.Appointment.ID, string(d.Audience), d.Provider, d.Error); err != nil {
				s.logger.Warn("appointments: audit notification failure failed", "error", err)
			}
		}
	}
	result.Notifications = deliveries
}

func (s *Service) finish(span trace.Span, operation string, start time.Time, result **Result, err *error) {
	outcome := "ok"
	switch {
	case *err != nil:
		outcome = string(apperr.KindOf(*err))
		span.RecordError(*err)
		span.SetStatus(codes.Error, apperr.MessageOf(*err))
	case *result != nil && len((*result).Warnings) > 0:
		outcome = "warning"
	}
	s.metrics.ObserveWorkflow(operation, outcome, time.Since(start).Seconds())
	span.End()
}

func classifyStoreError(err error, failure string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.KindLookup, "appointment not found", err)
	case errors.Is(err, ErrCancelled):
		return apperr.Wrap(apperr.KindValidation, "cannot reschedule a cancelled appointment", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindPersistence, "request cancelled before the change was saved", err)
	default:
		return apperr.Wrap(apperr.KindPersistence, failure, err)
	}
}
