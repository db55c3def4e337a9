// Package config loads process settings from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	APIBaseURL string
	APITimeout time.Duration

	StoreBackend string
	SQLitePath   string

	RedisAddr     string
	RedisPassword string

	MongoURI            string
	MongoDBName         string
	MongoMaxPoolSize    uint64
	MongoMinPoolSize    uint64
	MongoConnectTimeout time.Duration

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	KafkaBrokers []string
	KafkaTopic   string

	RedirectPreference string

	LogLevel       string
	LogDevelopment bool
}

// Load reads .env (if present) and then the environment. Variables already
// set in the environment win over the file.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50060"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:3000/api"),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		SQLitePath:         getEnv("SQLITE_PATH", "storefront.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "storefront"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "storefront"),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "checkout-events"),
		RedirectPreference: getEnv("PAYMENT_REDIRECT_PREFERENCE", "production"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.APITimeout, err = getDuration("API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MongoConnectTimeout, err = getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MongoMaxPoolSize, err = strconv.ParseUint(getEnv("MONGO_MAX_POOL_SIZE", "20"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid MONGO_MAX_POOL_SIZE: %w", err)
	}
	if cfg.MongoMinPoolSize, err = strconv.ParseUint(getEnv("MONGO_MIN_POOL_SIZE", "1"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid MONGO_MIN_POOL_SIZE: %w", err)
	}
	if cfg.DBPort, err = strconv.Atoi(getEnv("DB_PORT", "5432")); err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if cfg.LogDevelopment, err = strconv.ParseBool(getEnv("LOG_DEVELOPMENT", "false")); err != nil {
		return nil, fmt.Errorf("invalid LOG_DEVELOPMENT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendRedis, BackendMongo, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.APITimeout <= 0 {
		return errors.New("API_TIMEOUT must be positive")
	}
	if c.MongoMaxPoolSize > 0 && c.MongoMinPoolSize > c.MongoMaxPoolSize {
		return errors.New("MONGO_MIN_POOL_SIZE must not exceed MONGO_MAX_POOL_SIZE")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
