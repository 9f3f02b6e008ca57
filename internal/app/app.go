package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"lingobar/internal/config"
	apperrors "lingobar/internal/errors"
	"lingobar/internal/infrastructure"
	"lingobar/internal/keystore"
	"lingobar/internal/licensing"
	customMiddleware "lingobar/internal/middleware"
	"lingobar/internal/secrets"
	"lingobar/internal/security"
	"lingobar/internal/services"
	handlers "lingobar/internal/transport/http"
	"lingobar/internal/trial"
)

// API-wide request budget. The agent only serves the local UI.
const (
	apiRateLimit = 20
	apiRateBurst = 40
)

// Application wires the agent's components together
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	Store          keystore.Store
	Identifier     *security.InstanceIdentifier
	Trial          *trial.Manager
	APIKeys        *secrets.APIKeys
	LicenseService services.LicenseService
	SecretsService services.SecretsService
	HealthService  *services.HealthService

	Router *chi.Mux
	Server *http.Server

	mu       sync.Mutex
	listener net.Listener
	serveErr chan error
}

// Option overrides a component built by New.
type Option func(*options)

type options struct {
	store     keystore.Store
	validator licensing.Validator
	ids       *security.InstanceIdentifier
	trialOpts []trial.Option
}

// WithStore replaces the configured keystore backend.
func WithStore(s keystore.Store) Option {
	return func(o *options) { o.store = s }
}

// WithValidator replaces the HTTP license validator.
func WithValidator(v licensing.Validator) Option {
	return func(o *options) { o.validator = v }
}

// WithInstanceIdentifier replaces the platform hardware probe.
func WithInstanceIdentifier(ids *security.InstanceIdentifier) Option {
	return func(o *options) { o.ids = ids }
}

// WithTrialOptions passes extra options to the trial manager.
func WithTrialOptions(opts ...trial.Option) Option {
	return func(o *options) { o.trialOpts = append(o.trialOpts, opts...) }
}

// NewApplication loads configuration and the process logger, then builds
// the application.
func NewApplication(ctx context.Context, opts ...Option) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(ctx, cfg, logger, opts...)
}

// New builds every component from cfg. The HTTP server is created but not
// started.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger.InfoContext(ctx, "Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("store_backend", cfg.Store.Backend))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Identifier:    o.ids,
	}
	if a.Identifier == nil {
		a.Identifier = security.NewInstanceIdentifier(logger)
	}

	if err := a.initializeServices(ctx, o); err != nil {
		_ = otelProviders.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

func (a *Application) initializeServices(ctx context.Context, o options) error {
	store := o.store
	if store == nil {
		s, err := keystore.New(ctx, a.Config.Store, a.Identifier, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to open keystore: %w", err)
		}
		store = s
	}
	a.Store = store

	validator := o.validator
	if validator == nil {
		validator = licensing.NewHTTPValidator(a.Config.License, licensing.WithLogger(a.Logger))
	}

	metrics, err := trial.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create trial metrics: %w", err)
	}

	trialOpts := []trial.Option{
		trial.WithTrialLength(a.Config.Trial.LengthDays),
		trial.WithNamespace(a.Config.Store.LicenseNamespace()),
		trial.WithActivationTimeout(a.Config.License.Timeout),
		trial.WithLogger(a.Logger),
		trial.WithMetrics(metrics),
		trial.WithTracer(a.OTelProviders.Tracer),
	}
	a.Trial = trial.NewManager(store, validator, a.Identifier, append(trialOpts, o.trialOpts...)...)

	// A keystore outage here is not fatal; status reads treat it as absent.
	if err := a.Trial.EnsureInitialized(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Trial initialization deferred",
			slog.String("error", err.Error()))
	}

	a.APIKeys = secrets.NewAPIKeys(store, a.Config.Store.APIKeysNamespace())
	a.LicenseService = services.NewLicenseService(a.Trial, a.Logger)
	a.SecretsService = services.NewSecretsService(a.APIKeys, a.Logger)
	a.HealthService = services.NewHealthService(store, a.Config.Store.LicenseNamespace(), a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	errorHandler := apperrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug")

	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.LoopbackOnly(a.Logger))
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(errorHandler.Recoverer)
	r.Use(customMiddleware.NewRateLimiter(apiRateLimit, apiRateBurst, a.Logger).Handler)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.Timeout(a.requestTimeout()))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		licenseHandler := handlers.NewLicenseHandler(a.LicenseService, errorHandler, a.Logger)
		r.Mount("/license", licenseHandler.Routes())

		gate := customMiddleware.TrialGate(a.LicenseService, a.Logger)
		secretsHandler := handlers.NewSecretsHandler(a.SecretsService, errorHandler, gate, a.Logger)
		r.Mount("/secrets", secretsHandler.Routes())
	})

	a.Router = r
}

// requestTimeout leaves room for a full activation round trip.
func (a *Application) requestTimeout() time.Duration {
	d := a.Config.License.Timeout + 5*time.Second
	if a.Config.Server.WriteTimeout > 0 && d > a.Config.Server.WriteTimeout {
		d = a.Config.Server.WriteTimeout
	}
	return d
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Router,
		ReadTimeout:       a.Config.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.Config.Server.WriteTimeout,
	}
}

// Start binds the listener and serves in the background.
func (a *Application) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return errors.New("application already started")
	}

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	a.serveErr = make(chan error, 1)

	go func() {
		err := a.Server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		a.serveErr <- err
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", "http://"+ln.Addr().String()),
		slog.String("license_state", string(a.Trial.Status(ctx).State)))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.Server.Addr
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// server fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received interrupt signal")
	case serveErr = <-a.serveErr:
		if serveErr != nil {
			a.Logger.Error("Server error", slog.String("error", serveErr.Error()))
		}
	}

	// Shutdown gets a fresh context; ctx is already done here.
	if err := a.Stop(context.Background()); err != nil {
		return err
	}
	return serveErr
}

// Close releases telemetry for applications that were never started.
func (a *Application) Close(ctx context.Context) error {
	if a.OTelProviders == nil {
		return nil
	}
	return a.OTelProviders.Shutdown(ctx)
}
