// Package compliance carries the recipient-rights email footer and the audit
// trail of appointment changes, notification failures, and auth probes.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	EventAppointmentRescheduled AuditEventType = "appointment.rescheduled"
	EventAppointmentCancelled   AuditEventType = "appointment.cancelled"
	// EventNotificationFailed is logged when a client or operator email was not accepted by the provider.
	EventNotificationFailed AuditEventType = "notification.failed"
	EventAuthProbe          AuditEventType = "auth.probe"
)

// AuditEvent represents an immutable compliance audit record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	SubjectID string          `json:"subject_id"`
	Actor     string          `json:"actor,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	PreviousSchedule string `json:"previous_schedule,omitempty"`
	NewSchedule      string `json:"new_schedule,omitempty"`

	Audience string `json:"audience,omitempty"`
	Provider string `json:"provider,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Authenticated *bool `json:"authenticated,omitempty"`
	IsAdmin       *bool `json:"is_admin,omitempty"`
}

// AuditService handles compliance audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// LogEvent records a compliance audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO compliance_audit_events (
			id, event_type, subject_id, actor, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.SubjectID,
		event.Actor,
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogAppointmentRescheduled records a date/time change made by actor.
func (s *AuditService) LogAppointmentRescheduled(ctx context.Context, appointmentID, actor, previous, current string) error {
	return s.logDetails(ctx, EventAppointmentRescheduled, appointmentID, actor, AuditDetails{
		PreviousSchedule: previous,
		NewSchedule:      current,
	})
}

// LogAppointmentCancelled records a cancellation made by actor.
func (s *AuditService) LogAppointmentCancelled(ctx context.Context, appointmentID, actor string) error {
	return s.logDetails(ctx, EventAppointmentCancelled, appointmentID, actor, AuditDetails{})
}

// LogNotificationFailed records an email the provider did not accept.
func (s *AuditService) LogNotificationFailed(ctx context.Context, subjectID, audience, provider, reason string) error {
	return s.logDetails(ctx, EventNotificationFailed, subjectID, "", AuditDetails{
		Audience: audience,
		Provider: provider,
		Reason:   reason,
	})
}

// LogAuthProbe records the outcome of a credential probe. Only the normalized
// email is stored; credentials never reach the audit trail.
func (s *AuditService) LogAuthProbe(ctx context.Context, email string, authenticated, isAdmin bool) error {
	return s.logDetails(ctx, EventAuthProbe, strings.ToLower(strings.TrimSpace(email)), "", AuditDetails{
		Authenticated: &authenticated,
		IsAdmin:       &isAdmin,
	})
}

func (s *AuditService) logDetails(ctx context.Context, eventType AuditEventType, subjectID, actor string, details AuditDetails) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("compliance: marshal audit details: %w", err)
	}
	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Details:   detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, subject_id, actor, details, created_at
		FROM compliance_audit_events
		WHERE subject_id = $1
	`
	args := []interface{}{filter.SubjectID}
	argIdx := 2

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var actor sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.SubjectID, &actor, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.Actor = actor.String
		e.Details = json.RawMessage(details)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	SubjectID string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}
