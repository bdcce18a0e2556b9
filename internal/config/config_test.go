package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, EngineElasticsearch, cfg.SearchEngine)
	assert.Equal(t, 10, cfg.SearchDefaultPageSize)
	assert.Equal(t, 100, cfg.SearchMaxPageSize)
	assert.Equal(t, 500, cfg.SearchBulkBatchSize)
	assert.True(t, cfg.SearchIndexOnWrite)
	assert.False(t, cfg.SearchFuzzyFallback)
	assert.Zero(t, cfg.SearchCacheTTL)
	assert.Equal(t, 2*time.Second, cfg.SearchCacheSettle)
	assert.Equal(t, 5*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 24*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("SEARCH_ENGINE", "memory")
	t.Setenv("SEARCH_CACHE_TTL", "30s")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, EngineMemory, cfg.SearchEngine)
	assert.Equal(t, 30*time.Second, cfg.SearchCacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int32(25), cfg.Postgres().MaxConns)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"port", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"engine", map[string]string{"SEARCH_ENGINE": "solr"}, "SEARCH_ENGINE"},
		{"page sizes", map[string]string{"SEARCH_DEFAULT_PAGE_SIZE": "50", "SEARCH_MAX_PAGE_SIZE": "20"}, "page sizes"},
		{"batch", map[string]string{"SEARCH_BULK_BATCH_SIZE": "0"}, "SEARCH_BULK_BATCH_SIZE"},
		{"settle", map[string]string{"SEARCH_CACHE_SETTLE": "-1s"}, "SEARCH_CACHE_SETTLE"},
		{"default secret in production", map[string]string{"ENVIRONMENT": "production"}, "explicitly set"},
		{"short secret", map[string]string{"ENVIRONMENT": "staging", "JWT_SECRET": "short"}, "at least 32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ProductionWithStrongSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", strings.Repeat("x", 32))

	_, err := Load()
	require.NoError(t, err)
}

func TestDerivedConfigs(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "p@ss")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("SEARCH_BREAKER_MIN_REQUESTS", "9")
	t.Setenv("SLOW_QUERY_THRESHOLD_MS", "150")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Postgres().DSN(), "p%40ss")
	assert.Equal(t, "localhost:6380", cfg.Redis().Addr())
	assert.Equal(t, uint32(9), cfg.Breaker().MinRequests)
	assert.Equal(t, "elasticsearch", cfg.Breaker().Name)
	assert.Equal(t, 150*time.Millisecond, cfg.SlowQuery())
	assert.Equal(t, "catalog-service", cfg.Tracing("catalog-service").ServiceName)
}
