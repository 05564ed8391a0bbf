package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "NETBONS"

// Config holds process configuration. Every field can be set through a
// NETBONS_ prefixed environment variable, e.g. NETBONS_KV_BACKEND=redis.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`
	PublicURL   string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`
	DataDir     string `envconfig:"DATA_DIR" default:".netbons"`

	// Key-value persistence
	KVBackend     string `envconfig:"KV_BACKEND" default:"file"`
	KeyVersion    string `envconfig:"KEY_VERSION" default:"v5"`
	KVQuotaBytes  int    `envconfig:"KV_QUOTA_BYTES" default:"5242880"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"netbons:"`

	// Blob store
	BlobBackend string `envconfig:"BLOB_BACKEND" default:"sqlite"`
	BlobPath    string `envconfig:"BLOB_PATH" default:""`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"netbons"`
	DBPassword  string `envconfig:"DB_PASSWORD" default:""`
	DBName      string `envconfig:"DB_NAME" default:"netbons"`

	// AI metadata assistant. The API key is only ever read from the
	// environment and is never written to persistence.
	AIAPIKey     string        `envconfig:"AI_API_KEY" default:""`
	AIBaseURL    string        `envconfig:"AI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	AIModel      string        `envconfig:"AI_MODEL" default:"gemini-3-flash-preview"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	AIMaxRetries int           `envconfig:"AI_MAX_RETRIES" default:"3"`
	AIRetryDelay time.Duration `envconfig:"AI_RETRY_DELAY" default:"2s"`
	AIRateLimit  time.Duration `envconfig:"AI_RATE_LIMIT" default:"1s"`

	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	PlaybackTTL time.Duration `envconfig:"PLAYBACK_TTL" default:"1h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"auto"`
}

// Load reads the optional dotenv file and then the environment.
func Load() (*Config, error) {
	envFile := GetEnv(envPrefix+"_ENV_FILE", ".env.local")
	// a missing dotenv file is normal outside development
	_ = godotenv.Load(envFile)

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if cfg.AIAPIKey == "" {
		cfg.AIAPIKey = GetEnv("API_KEY", "")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend names and durations.
func (c *Config) Validate() error {
	switch c.KVBackend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unsupported KV_BACKEND: %s", c.KVBackend)
	}

	switch c.BlobBackend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported BLOB_BACKEND: %s", c.BlobBackend)
	}

	if c.KeyVersion == "" {
		return fmt.Errorf("KEY_VERSION cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.PlaybackTTL <= 0 {
		return fmt.Errorf("PLAYBACK_TTL must be positive, got %s", c.PlaybackTTL)
	}
	if c.AIMaxRetries < 1 {
		return fmt.Errorf("AI_MAX_RETRIES must be at least 1, got %d", c.AIMaxRetries)
	}
	return nil
}

// RedisConfig returns host, port, password
func (c *Config) RedisConfig() (string, string, string) {
	return c.RedisHost, c.RedisPort, c.RedisPassword
}

// DatabaseConfig returns host, port, user, password and database name
func (c *Config) DatabaseConfig() (string, string, string, string, string) {
	return c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
