package config

import (
	"fmt"
	"slices"
	"time"

	pkgconfig "github.com/NurulloMahmud/tafakkur/pkg/config"
	"github.com/NurulloMahmud/tafakkur/pkg/database"
	"github.com/NurulloMahmud/tafakkur/pkg/httpclient"
	"github.com/NurulloMahmud/tafakkur/pkg/tracing"
)

const (
	defaultJWTSecret = "change-this-to-a-secure-secret"

	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Config holds all configuration for the catalog search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// PostgreSQL
	PostgresHost       string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass       string `env:"POSTGRES_PASSWORD" envDefault:"catalog"`
	PostgresDB         string `env:"DB_NAME" envDefault:"catalog"`
	PostgresSSL        string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns         int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns         int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	SlowQueryThreshold int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`
	AutoMigrate        bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Elasticsearch
	ElasticsearchURL      string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchUsername string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string `env:"ELASTICSEARCH_PASSWORD"`

	// Search
	SearchEngine          string        `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	SearchIndexPrefix     string        `env:"SEARCH_INDEX_PREFIX"`
	SearchBulkBatchSize   int           `env:"SEARCH_BULK_BATCH_SIZE" envDefault:"500"`
	SearchDefaultPageSize int           `env:"SEARCH_DEFAULT_PAGE_SIZE" envDefault:"10"`
	SearchMaxPageSize     int           `env:"SEARCH_MAX_PAGE_SIZE" envDefault:"100"`
	SearchFuzzyFallback   bool          `env:"SEARCH_FUZZY_FALLBACK" envDefault:"false"`
	SearchIndexOnWrite    bool          `env:"SEARCH_INDEX_ON_WRITE" envDefault:"true"`
	SearchCacheTTL        time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"0s"`
	SearchCacheSettle     time.Duration `env:"SEARCH_CACHE_SETTLE" envDefault:"2s"`

	// Elasticsearch circuit breaker
	BreakerTimeout      time.Duration `env:"SEARCH_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"SEARCH_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"SEARCH_BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"5m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"24h"`

	// Auth rate limiting
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !slices.Contains([]string{EngineElasticsearch, EngineMemory}, c.SearchEngine) {
		return fmt.Errorf("SEARCH_ENGINE must be %q or %q, got %q", EngineElasticsearch, EngineMemory, c.SearchEngine)
	}
	if c.SearchDefaultPageSize < 1 || c.SearchMaxPageSize < c.SearchDefaultPageSize {
		return fmt.Errorf("invalid search page sizes: default %d, max %d", c.SearchDefaultPageSize, c.SearchMaxPageSize)
	}
	if c.SearchBulkBatchSize < 1 {
		return fmt.Errorf("SEARCH_BULK_BATCH_SIZE must be positive, got %d", c.SearchBulkBatchSize)
	}
	if c.SearchCacheTTL < 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL must not be negative, got %s", c.SearchCacheTTL)
	}
	if c.SearchCacheSettle < 0 {
		return fmt.Errorf("SEARCH_CACHE_SETTLE must not be negative, got %s", c.SearchCacheSettle)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	// Outside development an explicit, strong JWT secret is mandatory.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	pc := database.DefaultPostgresConfig()
	pc.Host = c.PostgresHost
	pc.Port = c.PostgresPort
	pc.User = c.PostgresUser
	pc.Password = c.PostgresPass
	pc.DBName = c.PostgresDB
	pc.SSLMode = c.PostgresSSL
	pc.MaxConns = c.DBMaxConns
	pc.MinConns = c.DBMinConns
	return &pc
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// Breaker returns the circuit breaker settings for the search backend.
func (c *Config) Breaker() httpclient.BreakerConfig {
	bc := httpclient.DefaultBreakerConfig("elasticsearch")
	bc.Timeout = c.BreakerTimeout
	bc.FailureRatio = c.BreakerFailureRatio
	bc.MinRequests = c.BreakerMinRequests
	return bc
}

// Tracing returns the OpenTelemetry configuration for service.
func (c *Config) Tracing(service string) tracing.Config {
	tc := tracing.DefaultConfig(service)
	tc.Environment = c.Environment
	tc.Enabled = c.OTelEnabled
	tc.OTLPEndpoint = c.OTelEndpoint
	tc.SampleRate = c.OTelSampleRate
	return tc
}

// SlowQuery returns the slow query threshold. Zero disables the warning.
func (c *Config) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryThreshold) * time.Millisecond
}
