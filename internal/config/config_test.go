package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"HTTP_PORT", "GRPC_PORT", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT", "API_BASE_URL", "API_TIMEOUT",
	"STORE_BACKEND", "SQLITE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "MONGO_URI", "MONGO_DB_NAME",
	"MONGO_MAX_POOL_SIZE", "MONGO_MIN_POOL_SIZE", "MONGO_CONNECT_TIMEOUT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"PAYMENT_REDIRECT_PREFERENCE", "LOG_LEVEL", "LOG_DEVELOPMENT",
}

// clearEnv blanks every key for the duration of the test; an empty value
// falls back to the default.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, uint64(20), cfg.MongoMaxPoolSize)
	assert.Equal(t, uint64(1), cfg.MongoMinPoolSize)
	assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "production", cfg.RedirectPreference)
	assert.False(t, cfg.LogDevelopment)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_DEVELOPMENT", "true")

	cfg, err := LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.LogDevelopment)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	// godotenv only fills unset variables
	os.Unsetenv("HTTP_PORT")
	os.Unsetenv("DB_NAME")
	t.Setenv("GRPC_PORT", "6000")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=9090\nGRPC_PORT=7000\nDB_NAME=shop\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("HTTP_PORT")
		os.Unsetenv("DB_NAME")
	})

	cfg, err := LoadFiles(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "6000", cfg.GRPCPort)
	assert.Equal(t, "shop", cfg.DBName)
}

func TestLoad_MongoPool(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_MAX_POOL_SIZE", "64")
	t.Setenv("MONGO_MIN_POOL_SIZE", "8")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "2s")

	cfg, err := LoadFiles()
	require.NoError(t, err)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, uint64(64), cfg.MongoMaxPoolSize)
	assert.Equal(t, uint64(8), cfg.MongoMinPoolSize)
	assert.Equal(t, 2*time.Second, cfg.MongoConnectTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STORE_BACKEND", "cassandra"},
		{"API_TIMEOUT", "soon"},
		{"API_TIMEOUT", "-1s"},
		{"DB_PORT", "pg"},
		{"LOG_DEVELOPMENT", "maybe"},
		{"MONGO_MAX_POOL_SIZE", "-5"},
		{"MONGO_MIN_POOL_SIZE", "50"},
		{"MONGO_CONNECT_TIMEOUT", "later"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadFiles()
			assert.Error(t, err)
		})
	}
}
