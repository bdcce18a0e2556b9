package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchTestConfig struct {
	Port      int           `env:"SEARCH_TEST_PORT" envDefault:"8000"`
	Engine    string        `env:"SEARCH_TEST_ENGINE" envDefault:"memory"`
	CacheTTL  time.Duration `env:"SEARCH_TEST_CACHE_TTL" envDefault:"0s"`
	Brokers   []string      `env:"SEARCH_TEST_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	IndexOnWR bool          `env:"SEARCH_TEST_INDEX_ON_WRITE" envDefault:"true"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg searchTestConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "memory", cfg.Engine)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.True(t, cfg.IndexOnWR)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("SEARCH_TEST_PORT", "9090")
	t.Setenv("SEARCH_TEST_ENGINE", "elasticsearch")
	t.Setenv("SEARCH_TEST_CACHE_TTL", "30s")
	t.Setenv("SEARCH_TEST_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SEARCH_TEST_INDEX_ON_WRITE", "false")

	var cfg searchTestConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "elasticsearch", cfg.Engine)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.False(t, cfg.IndexOnWR)
}

type requiredConfig struct {
	Secret string `env:"SEARCH_TEST_SECRET,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("SEARCH_TEST_PORT", "not-a-number")

	var cfg searchTestConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

type prefixedConfig struct {
	Port int `env:"PORT" envDefault:"1"`
}

func TestLoadWithPrefix_StripsPrefix(t *testing.T) {
	t.Setenv("SEARCHCTL_PORT", "7000")
	t.Setenv("PORT", "6000")

	var cfg prefixedConfig
	require.NoError(t, LoadWithPrefix(&cfg, "SEARCHCTL_"))

	assert.Equal(t, 7000, cfg.Port)
}
