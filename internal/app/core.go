package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/NurulloMahmud/tafakkur/internal/cache"
	"github.com/NurulloMahmud/tafakkur/internal/config"
	"github.com/NurulloMahmud/tafakkur/internal/engine"
	esengine "github.com/NurulloMahmud/tafakkur/internal/engine/elasticsearch"
	"github.com/NurulloMahmud/tafakkur/internal/engine/memory"
	"github.com/NurulloMahmud/tafakkur/internal/repository/postgres"
	"github.com/NurulloMahmud/tafakkur/internal/service"
	"github.com/NurulloMahmud/tafakkur/migrations"
	"github.com/NurulloMahmud/tafakkur/pkg/database"
	"github.com/NurulloMahmud/tafakkur/pkg/httpclient"
)

// ServiceName labels logs, traces and metrics.
const ServiceName = "catalog-search"

// Core holds the dependencies shared by the HTTP service and searchctl: the
// record store, the search engine and the projector over them.
type Core struct {
	Pool      *pgxpool.Pool
	Engine    engine.SearchEngine
	Registry  *service.Registry
	Projector *service.Projector
	Cache     *cache.PageCache

	Products   *postgres.ProductRepository
	Categories *postgres.CategoryRepository
	Links      *postgres.ProductCategoryRepository
	Users      *postgres.UserRepository

	closers []func() error
}

// NewCore connects to Postgres, applies migrations when configured, and
// builds the engine, optional page cache and projector.
func NewCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Core, error) {
	database.SetSlowQueryLogging(cfg.SlowQuery(), logger)

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	c := &Core{Pool: pool}
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if cfg.AutoMigrate {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	c.Products = postgres.NewProductRepository(pool)
	c.Categories = postgres.NewCategoryRepository(pool)
	c.Links = postgres.NewProductCategoryRepository(pool)
	c.Users = postgres.NewUserRepository(pool)

	c.Engine, err = NewEngine(cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Cache, err = NewPageCache(ctx, cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	var invalidator service.PageInvalidator
	if c.Cache != nil {
		invalidator = c.Cache
		c.closers = append(c.closers, c.Cache.Close)
	}

	c.Registry = service.NewRegistry(cfg.SearchIndexPrefix, service.Repositories{
		Products:   c.Products,
		Categories: c.Categories,
		Users:      c.Users,
	})
	c.Projector = service.NewProjector(c.Engine, c.Registry, cfg.SearchBulkBatchSize, invalidator, logger)
	return c, nil
}

// NewEngine builds the configured search engine. The Elasticsearch client
// talks through a circuit breaker so a failing cluster is short-circuited.
func NewEngine(cfg *config.Config, logger *slog.Logger) (engine.SearchEngine, error) {
	switch cfg.SearchEngine {
	case config.EngineMemory:
		logger.Info("in-memory search engine initialized")
		return memory.New(), nil
	case config.EngineElasticsearch:
		transport := httpclient.NewBreakerTransport(
			httpclient.NewTransport(httpclient.DefaultTransportConfig()),
			cfg.Breaker(),
			logger,
		)
		eng, err := esengine.New(esengine.Config{
			Addresses: []string{cfg.ElasticsearchURL},
			Username:  cfg.ElasticsearchUsername,
			Password:  cfg.ElasticsearchPassword,
			Transport: transport,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		logger.Info("elasticsearch search engine initialized", slog.String("url", cfg.ElasticsearchURL))
		return eng, nil
	}
	return nil, fmt.Errorf("unknown search engine %q", cfg.SearchEngine)
}

// NewPageCache connects the Redis page cache. It returns nil when caching is
// disabled (SEARCH_CACHE_TTL=0) or Redis is unreachable; searches then go
// straight to the engine.
func NewPageCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*cache.PageCache, error) {
	if cfg.SearchCacheTTL <= 0 {
		return nil, nil
	}
	client, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("search page cache disabled", slog.String("error", err.Error()))
		return nil, nil
	}
	logger.Info("search page cache enabled",
		slog.String("addr", cfg.Redis().Addr()),
		slog.Duration("ttl", cfg.SearchCacheTTL),
		slog.Duration("settle", cfg.SearchCacheSettle),
	)
	return cache.NewPageCache(client, cfg.SearchCacheTTL, cfg.SearchCacheSettle), nil
}

// Close releases every connection Core opened, newest first.
func (c *Core) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
