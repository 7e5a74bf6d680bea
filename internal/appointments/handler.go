package appointments

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
	"github.com/wolfman30/coaching-booking-platform/internal/compliance"
	"github.com/wolfman30/coaching-booking-platform/internal/http/httpx"
	"github.com/wolfman30/coaching-booking-platform/internal/http/middleware"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// HistoryReader lists audit events for an appointment.
type HistoryReader interface {
	QueryEvents(ctx context.Context, filter compliance.AuditFilter) ([]compliance.AuditEvent, error)
}

// Handler handles HTTP requests for appointments
type Handler struct {
	service *Service
	history HistoryReader
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler. history may be nil.
func NewHandler(service *Service, history HistoryReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, history: history, logger: logger}
}

// Book handles POST /api/appointments
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Fail(w, err, nil)
		return
	}
	result, err := h.service.Book(r.Context(), req)
	h.respond(w, "book", result, err)
}

// Reschedule handles POST /admin/appointments/reschedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Fail(w, err, nil)
		return
	}
	req.Actor = middleware.AdminSubject(r.Context())
	result, err := h.service.Reschedule(r.Context(), req)
	h.respond(w, "reschedule", result, err)
}

// Cancel handles POST /admin/appointments/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Fail(w, err, nil)
		return
	}
	req.Actor = middleware.AdminSubject(r.Context())
	result, err := h.service.Cancel(r.Context(), req)
	h.respond(w, "cancel", result, err)
}

// Get handles GET /admin/appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	httpx.OK(w, appt)
}

// List handles GET /admin/appointments?email=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	httpx.OK(w, map[string]any{"appointments": list, "count": len(list)})
}

// Stats handles GET /admin/appointments/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, "stats", err)
		return
	}
	httpx.OK(w, stats)
}

// History handles GET /admin/appointments/{id}/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		httpx.Fail(w, apperr.Lookup("audit history is not configured"), nil)
		return
	}
	appt, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "history", err)
		return
	}
	events, err := h.history.QueryEvents(r.Context(), compliance.AuditFilter{SubjectID: appt.ID, Limit: 100})
	if err != nil {
		h.fail(w, "history", apperr.Wrap(apperr.KindPersistence, "could not load history", err))
		return
	}
	if events == nil {
		events = []compliance.AuditEvent{}
	}
	httpx.OK(w, map[string]any{"appointmentId": appt.ID, "events": events})
}

func (h *Handler) respond(w http.ResponseWriter, op string, result *Result, err error) {
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.OK(w, result, result.Warnings...)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindPersistence, apperr.KindInternal:
		h.logger.Error("appointments: request failed", "op", op, "error", err)
	default:
		h.logger.Info("appointments: request rejected", "op", op, "error", err)
	}
	httpx.Fail(w, err, nil)
}
