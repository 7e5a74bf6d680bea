package authprobe

import (
	"net/http"
	"time"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
	"github.com/wolfman30/coaching-booking-platform/internal/http/httpx"
	"github.com/wolfman30/coaching-booking-platform/internal/http/middleware"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Handler exposes the probe and the admin login built on it.
type Handler struct {
	service  *Service
	secret   string
	tokenTTL time.Duration
	logger   *logging.Logger
}

// NewHandler creates a handler. An empty secret disables admin login.
func NewHandler(service *Service, secret string, tokenTTL time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	return &Handler{service: service, secret: secret, tokenTTL: tokenTTL, logger: logger}
}

// Probe handles POST /api/auth/probe
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := httpx.DecodeJSON(w, r, &creds); err != nil {
		httpx.Fail(w, err, nil)
		return
	}
	result := h.service.Probe(r.Context(), creds.Email, creds.Password)
	if err := result.Err(); err != nil {
		httpx.Fail(w, err, result)
		return
	}
	httpx.OK(w, result)
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminLogin handles POST /api/admin/login. A token is issued only when the
// probe reports isAdmin.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := httpx.DecodeJSON(w, r, &creds); err != nil {
		httpx.Fail(w, err, nil)
		return
	}
	result := h.service.Probe(r.Context(), creds.Email, creds.Password)
	if err := result.Err(); err != nil {
		httpx.Fail(w, err, nil)
		return
	}
	if !result.IsAdmin {
		httpx.Fail(w, apperr.Authentication("admin access required"), nil)
		return
	}
	token, expires, err := middleware.IssueAdminToken(h.secret, result.UserID, result.Email, h.tokenTTL)
	if err != nil {
		h.logger.Error("authprobe: issue admin token", "error", err)
		httpx.Fail(w, apperr.Wrap(apperr.KindInternal, "", err), nil)
		return
	}
	httpx.OK(w, loginResponse{Token: token, ExpiresAt: expires})
}
