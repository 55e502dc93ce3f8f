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
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/infrastructure"
	customMiddleware "github.com/patrickmlong/Data-Intensive-PML/internal/middleware"
	"github.com/patrickmlong/Data-Intensive-PML/internal/operations"
	"github.com/patrickmlong/Data-Intensive-PML/internal/services"
	"github.com/patrickmlong/Data-Intensive-PML/internal/store"
	handlers "github.com/patrickmlong/Data-Intensive-PML/internal/transport/http"
	"github.com/patrickmlong/Data-Intensive-PML/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Paths           *config.Paths
	Router          *chi.Mux
	Server          *http.Server
	Runs            store.RunStore
	PipelineService *services.PipelineService
	DataService     *services.DataService
	HealthService   *services.HealthService
	Hub             *websocket.Hub
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders

	errorHandler *apperrors.ErrorHandler
}

// NewApplication wires every component from cfg. The caller owns logger.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.FromConfig(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFromTelemetry(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		errorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		app.Runs.Close()
		providers.Shutdown(context.Background())
		return nil, err
	}
	app.createServer()

	return app, nil
}

// initializeServices opens the run store and builds the services on top of it
func (a *Application) initializeServices() error {
	runs, err := store.Open(a.Config.Store, a.Paths)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	a.Runs = runs

	tracer, err := operations.NewOperationTracer(a.OTelProviders)
	if err != nil {
		runs.Close()
		return fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		runs.Close()
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	a.Hub = websocket.NewHub(metrics, a.Logger)

	a.PipelineService = services.NewPipelineService(a.Config, a.Paths, runs, tracer, a.Logger)
	a.PipelineService.SetNotifier(a.Hub)
	a.DataService = services.NewDataService(a.Paths, a.Config.Pipeline.Datasets, a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, a.Paths, runs, a.PipelineService, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Order: RequestID → RealIP → OTel → Logger → Recoverer → RateLimit
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.errorHandler, a.Logger))

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Mount("/healthz", healthHandler.Routes())
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))
	r.Get("/ws", websocket.Handler(a.Hub))

	a.setupAPIRoutes(r, healthHandler)

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, healthHandler *handlers.HealthHandler) {
	validator := customMiddleware.NewRequestValidator(a.errorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		rl := a.Config.Server.RateLimit
		if rl.Enabled && rl.RPS > 0 {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		r.Get("/version", healthHandler.Version)
		r.Mount("/runs", handlers.NewRunsHandler(a.PipelineService, validator, a.errorHandler, a.Logger).Routes())
		tablesHandler := handlers.NewTablesHandler(a.DataService, validator, a.errorHandler, a.Logger)
		r.Mount("/tables", tablesHandler.Routes())
		r.Get("/datasets", tablesHandler.ListDatasets)
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start listens on the configured port and serves in the background.
// A serve failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("address", ln.Addr().String()),
		slog.String("data_dir", a.Paths.BaseDir),
		slog.String("store", a.Config.Store.Driver),
		slog.String("level", a.Config.Logging.Level))

	a.Hub.Start()
	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	// In-flight runs are cancelled and their final status written before the store closes
	if err := a.PipelineService.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("pipeline shutdown: %w", err))
	}
	a.Hub.Stop()
	if err := a.Runs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("run store close: %w", err))
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run serves until SIGINT or SIGTERM, then shuts down
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.InfoContext(ctx, "Received shutdown signal")
	return a.Stop(ctx)
}
