package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/coaching-booking-platform/internal/http/httpx"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// DiagnosticsHandler serves liveness and dependency status.
type DiagnosticsHandler struct {
	checks       map[string]Check
	mailProvider string
	authMode     string
	timeout      time.Duration
	logger       *logging.Logger
}

// DiagnosticsConfig names the configured collaborators.
type DiagnosticsConfig struct {
	Checks       map[string]Check
	MailProvider string
	AuthMode     string
	Timeout      time.Duration
}

// NewDiagnosticsHandler creates a diagnostics handler.
func NewDiagnosticsHandler(cfg DiagnosticsConfig, logger *logging.Logger) *DiagnosticsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	checks := make(map[string]Check, len(cfg.Checks))
	for name, check := range cfg.Checks {
		if check != nil {
			checks[name] = check
		}
	}
	return &DiagnosticsHandler{
		checks:       checks,
		mailProvider: cfg.MailProvider,
		authMode:     cfg.AuthMode,
		timeout:      cfg.Timeout,
		logger:       logger,
	}
}

// Health handles GET /health
func (h *DiagnosticsHandler) Health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DependencyStatus is the result of one check.
type DependencyStatus struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// DiagnosticsResponse is returned by GET /admin/diagnostics.
type DiagnosticsResponse struct {
	Status       string             `json:"status"`
	MailProvider string             `json:"mailProvider"`
	AuthMode     string             `json:"authMode"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// Diagnostics handles GET /admin/diagnostics
func (h *DiagnosticsHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		statuses = make([]DependencyStatus, 0, len(h.checks))
	)
	var g errgroup.Group
	for name, check := range h.checks {
		name, check := name, check
		g.Go(func() error {
			start := time.Now()
			err := check(ctx)
			status := DependencyStatus{Name: name, OK: err == nil, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				status.Error = err.Error()
				h.logger.Warn("diagnostics: dependency check failed", "dependency", name, "error", err)
			}
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

	resp := DiagnosticsResponse{
		Status:       "ok",
		MailProvider: h.mailProvider,
		AuthMode:     h.authMode,
		Dependencies: statuses,
	}
	for _, s := range statuses {
		if !s.OK {
			resp.Status = "degraded"
			break
		}
	}
	httpx.OK(w, resp)
}
