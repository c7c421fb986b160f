package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Server     ServerConfig
	Tournament TournamentConfig
	Webhook    WebhookConfig
	Auth       AuthConfig
	Jobs       JobsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration. The mirror is off unless Enabled.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	DB       int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	AllowedOrigins string
	DebugRoutes    bool
}

// TournamentConfig holds the ledger settings
type TournamentConfig struct {
	Backend         string
	EntryFeeCents   int64
	LeaderboardSize int
}

// WebhookConfig holds payment webhook settings
type WebhookConfig struct {
	Secret          string
	SignatureHeader string
	// Tolerance bounds the age of timestamped signatures; zero disables it
	Tolerance time.Duration
}

// AuthConfig holds caller identity settings
type AuthConfig struct {
	JWTSecret      string
	DefaultUserID  string
	ScoreRateLimit float64
	ScoreRateBurst int
}

// JobsConfig holds background job settings
type JobsConfig struct {
	SimulatorEnabled bool
	RetentionDays    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file from the parent directory first, then the working directory
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using environment variables")
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "tournament"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Username: getEnv("REDIS_USERNAME", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("BACKEND_PORT", 8000),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
			DebugRoutes:    getEnvAsBool("DEBUG_ROUTES", false),
		},
		Tournament: TournamentConfig{
			Backend:         strings.ToLower(getEnv("LEDGER_BACKEND", BackendMemory)),
			EntryFeeCents:   int64(getEnvAsInt("ENTRY_FEE_CENTS", 200)),
			LeaderboardSize: getEnvAsInt("LEADERBOARD_SIZE", 10),
		},
		Webhook: WebhookConfig{
			Secret:          getEnv("WHOP_WEBHOOK_SECRET", ""),
			SignatureHeader: getEnv("WEBHOOK_SIGNATURE_HEADER", "X-Whop-Signature"),
			Tolerance:       getEnvAsDuration("WEBHOOK_TOLERANCE", 0),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", ""),
			DefaultUserID:  getEnv("DEFAULT_USER_ID", ""),
			ScoreRateLimit: getEnvAsFloat("SCORE_RATE_LIMIT", 5),
			ScoreRateBurst: getEnvAsInt("SCORE_RATE_BURST", 10),
		},
		Jobs: JobsConfig{
			SimulatorEnabled: getEnvAsBool("SIMULATOR_ENABLED", false),
			RetentionDays:    getEnvAsInt("RETENTION_DAYS", 7),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	switch c.Tournament.Backend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Tournament.Backend)
	}
	if c.Tournament.EntryFeeCents <= 0 {
		return fmt.Errorf("ENTRY_FEE_CENTS must be positive, got %d", c.Tournament.EntryFeeCents)
	}
	if c.Tournament.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE must be positive, got %d", c.Tournament.LeaderboardSize)
	}
	if c.Webhook.Tolerance < 0 {
		return fmt.Errorf("WEBHOOK_TOLERANCE must not be negative")
	}
	return nil
}

// GetDSN returns the PostgreSQL DSN
func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5m") or plain seconds ("300")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
