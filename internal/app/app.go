package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NurulloMahmud/tafakkur/internal/auth"
	"github.com/NurulloMahmud/tafakkur/internal/config"
	"github.com/NurulloMahmud/tafakkur/internal/event"
	handler "github.com/NurulloMahmud/tafakkur/internal/handler/http"
	"github.com/NurulloMahmud/tafakkur/internal/service"
	"github.com/NurulloMahmud/tafakkur/pkg/health"
	pkgkafka "github.com/NurulloMahmud/tafakkur/pkg/kafka"
	"github.com/NurulloMahmud/tafakkur/pkg/middleware"
	"github.com/NurulloMahmud/tafakkur/pkg/pagination"
	"github.com/NurulloMahmud/tafakkur/pkg/tracing"
)

// App wires together all dependencies and runs the catalog search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	core           *Core
	kafka          *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		_ = tracerShutdown(ctx)
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		core:           core,
		tracerShutdown: tracerShutdown,
	}

	// Domain events are optional; a nil publisher drops them.
	var pub event.Publisher
	if cfg.KafkaEnabled {
		a.kafka = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		pub = a.kafka
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	producer := event.NewProducer(pub, logger)

	var pageCache service.PageCache
	if core.Cache != nil {
		pageCache = core.Cache
	}

	var indexer service.Indexer
	if cfg.SearchIndexOnWrite {
		indexer = core.Projector
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	svcs := handler.Services{
		Catalog:   service.NewCatalogService(core.Products, core.Categories, core.Links, indexer, producer, logger),
		Users:     service.NewUserService(core.Users, jwtManager, indexer, producer, logger),
		Search:    service.NewSearchService(core.Engine, core.Registry, pageCache, a.searchOptions(), logger),
		Hydrator:  service.NewHydrator(core.Registry, logger),
		Projector: core.Projector,
	}

	a.limiter = middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger)
	router := handler.NewRouter(svcs, jwtManager, a.healthHandler(), handler.RouterConfig{
		CORS: middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		Pagination: pagination.Options{
			DefaultPageSize: cfg.SearchDefaultPageSize,
			MaxPageSize:     cfg.SearchMaxPageSize,
		},
		AuthLimiter: a.limiter,
	}, logger)

	// WriteTimeout is generous because bootstrap answers synchronously.
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *App) searchOptions() service.SearchOptions {
	return service.SearchOptions{
		DefaultPageSize: a.cfg.SearchDefaultPageSize,
		MaxPageSize:     a.cfg.SearchMaxPageSize,
		FuzzyFallback:   a.cfg.SearchFuzzyFallback,
	}
}

// healthHandler registers Postgres and the search engine as critical
// dependencies, Redis and Kafka as degradable ones.
func (a *App) healthHandler() *health.Handler {
	h := health.NewHandler()
	h.RegisterCritical("postgres", a.core.Pool.Ping)
	h.RegisterCritical(a.cfg.SearchEngine, a.core.Engine.Ping)
	if a.core.Cache != nil {
		h.Register("redis", a.core.Cache.Ping)
	}
	if a.kafka != nil {
		h.Register("kafka", a.kafka.Ping)
	}
	return h
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.limiter.Stop()

	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.core.Close(); err != nil {
		a.logger.Error("core close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
