package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NurulloMahmud/tafakkur/internal/auth"
	"github.com/NurulloMahmud/tafakkur/internal/service"
	"github.com/NurulloMahmud/tafakkur/pkg/health"
	"github.com/NurulloMahmud/tafakkur/pkg/middleware"
	"github.com/NurulloMahmud/tafakkur/pkg/pagination"
)

const serviceName = "catalog-search"

// Services groups the application services the router dispatches to.
type Services struct {
	Catalog   *service.CatalogService
	Users     *service.UserService
	Search    *service.SearchService
	Hydrator  *service.Hydrator
	Projector *service.Projector
}

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	CORS        middleware.CORSConfig
	Pagination  pagination.Options
	AuthLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with every catalog and search route registered.
func NewRouter(
	svcs Services,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	authenticate := middleware.Auth(jwtManager.Middleware)
	staffOnly := func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.RequireStaff)
	}

	searchHandler := NewSearchHandler(svcs.Search, svcs.Hydrator, logger)
	catalogHandler := NewCatalogHandler(svcs.Catalog, cfg.Pagination, logger)
	authHandler := NewAuthHandler(svcs.Users, logger)
	adminHandler := NewAdminHandler(svcs.Projector, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Handler)
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Use(middleware.RequestLogger(logger))
				r.Get("/me", authHandler.Me)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/search", searchHandler.Products)
			r.Get("/", catalogHandler.ListProducts)
			r.Post("/", catalogHandler.CreateProduct)
			r.Get("/{id}", catalogHandler.GetProduct)
			r.Get("/{id}/categories", catalogHandler.ProductCategories)
			r.Post("/{id}/categories", catalogHandler.LinkCategory)
			r.Group(func(r chi.Router) {
				staffOnly(r)
				r.Delete("/{id}", catalogHandler.DeleteProduct)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/search", searchHandler.Categories)
			r.Get("/", catalogHandler.ListCategories)
			r.Post("/", catalogHandler.CreateCategory)
			r.Get("/{id}", catalogHandler.GetCategory)
			r.Group(func(r chi.Router) {
				staffOnly(r)
				r.Delete("/{id}", catalogHandler.DeleteCategory)
			})
		})

		r.Route("/users", func(r chi.Router) {
			staffOnly(r)
			r.Get("/search", searchHandler.Users)
		})

		r.Route("/admin/search", func(r chi.Router) {
			staffOnly(r)
			r.Post("/bootstrap", adminHandler.Bootstrap)
			r.Post("/{entity}/{id}/project", adminHandler.Project)
		})
	})

	return r
}
