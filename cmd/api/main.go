package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/coaching-booking-platform/cmd/mainconfig"
	"github.com/wolfman30/coaching-booking-platform/internal/api/router"
	"github.com/wolfman30/coaching-booking-platform/internal/app/bootstrap"
	"github.com/wolfman30/coaching-booking-platform/internal/appointments"
	"github.com/wolfman30/coaching-booking-platform/internal/authprobe"
	"github.com/wolfman30/coaching-booking-platform/internal/compliance"
	appconfig "github.com/wolfman30/coaching-booking-platform/internal/config"
	"github.com/wolfman30/coaching-booking-platform/internal/http/handlers"
	"github.com/wolfman30/coaching-booking-platform/internal/notify"
	"github.com/wolfman30/coaching-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/coaching-booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting coaching-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"mail_provider", cfg.Mail.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

type application struct {
	handler http.Handler
	closers []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires storage, mail, auth, and HTTP. Mail misconfiguration fails
// startup; missing Postgres or Redis degrades to in-memory storage and no lockout.
func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{}
	metricsHandler, registry := setupMetrics()

	var ses notify.SESAPI
	if cfg.Mail.Provider == appconfig.MailProviderSES {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		ses = mainconfig.NewSESClient(awsCfg, cfg)
	}
	dispatcher, err := bootstrap.BuildDispatcher(cfg, ses, metrics.NewNotificationMetrics(registry), logger)
	if err != nil {
		return nil, err
	}

	checks := map[string]handlers.Check{}

	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	var (
		repo    appointments.Repository = appointments.NewInMemoryRepository()
		audit   *compliance.AuditService
		history appointments.HistoryReader
	)
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
		checks["postgres"] = pool.Ping
		repo = appointments.NewPostgresRepository(pool)
		auditDB := stdlib.OpenDBFromPool(pool)
		app.closers = append(app.closers, func() { _ = auditDB.Close() })
		audit = compliance.NewAuditService(auditDB)
		history = audit
	} else {
		logger.Warn("DATABASE_URL not set or unreachable; appointments are kept in memory")
	}

	var lockout authprobe.Limiter
	if redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true); redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		lockout = authprobe.NewRedisLockout(redisClient, cfg.ProbeMaxFailures, cfg.ProbeLockoutWindow)
	}

	var apptAuditor appointments.Auditor
	var probeAuditor authprobe.Auditor
	if audit != nil {
		apptAuditor = audit
		probeAuditor = audit
	}

	apptService := appointments.NewService(repo, dispatcher, appointments.ServiceConfig{
		OperatorInbox: cfg.Mail.OperatorInbox,
	}, apptAuditor, metrics.NewBookingMetrics(registry), logger)

	authMode := "disabled"
	var probeHandler *authprobe.Handler
	if pool != nil {
		auth, mode, err := bootstrap.BuildAuthenticator(cfg, pool, logger)
		if err != nil {
			return nil, err
		}
		authMode = mode
		if pinger, ok := auth.(interface{ Ping(context.Context) error }); ok {
			checks["auth"] = pinger.Ping
		}
		probe := authprobe.NewService(auth, authprobe.NewPostgresRoleStore(pool), authprobe.Options{
			Limiter: lockout,
			Auditor: probeAuditor,
			Metrics: metrics.NewProbeMetrics(registry),
		}, logger)
		probeHandler = authprobe.NewHandler(probe, cfg.AdminJWTSecret, cfg.AdminTokenTTL, logger)
	} else {
		logger.Warn("role store unavailable; auth probe and admin login are disabled")
	}

	app.handler = router.New(&router.Config{
		Logger:       logger,
		Appointments: appointments.NewHandler(apptService, history, logger),
		AuthProbe:    probeHandler,
		Diagnostics: handlers.NewDiagnosticsHandler(handlers.DiagnosticsConfig{
			Checks:       checks,
			MailProvider: dispatcher.Provider(),
			AuthMode:     authMode,
		}, logger),
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Production:         cfg.IsProduction(),
		PublicRateLimit:    cfg.ProbeRateLimit,
		PublicRateWindow:   time.Minute,
	})
	return app, nil
}

func setupMetrics() (http.Handler, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), registry
}
