package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultMaxTokens      = 512
	MinMaxTokens          = 1
	MaxMaxTokens          = 2048
	DefaultTemperature    = 0.7
	DefaultRequestTimeout = 30 * time.Second

	// DefaultSessionSecret is only acceptable outside production.
	DefaultSessionSecret = "default_secret_key_for_development"
)

// Dispatch modes for the aggregator.
const (
	DispatchParallel   = "parallel"
	DispatchSequential = "sequential"
)

// Store backends for votes and history.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Generation    GenerationConfig
	Providers     ProvidersConfig
	Store         StoreConfig
	Database      DatabaseConfig
	Session       SessionConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// GenerationConfig holds the parameters shared by every provider call.
type GenerationConfig struct {
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
	DispatchMode   string
}

// ProvidersConfig holds credentials and endpoints for each provider family
type ProvidersConfig struct {
	HuggingFace HuggingFaceConfig
	Anthropic   AnthropicConfig
	Cohere      CohereConfig
	Gemini      GeminiConfig

	// CatalogFile optionally points at a YAML file with extra inference models.
	CatalogFile string
}

type HuggingFaceConfig struct {
	APIKey  string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	APIVersion string
}

type CohereConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// StoreConfig selects where votes and history are kept.
type StoreConfig struct {
	Backend     string
	RedisURL    string
	RedisPrefix string
	HistoryTTL  time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SessionConfig controls the signed browser session cookie.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string // json or console
	MetricsEnabled    bool
	TracingEnabled    bool
	TracingEndpoint   string
	TracingSampleRate float64
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://*"}),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Generation: GenerationConfig{
			MaxTokens:      getMaxTokens(),
			Temperature:    getTemperature(),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", DefaultRequestTimeout),
			DispatchMode:   strings.ToLower(getEnv("DISPATCH_MODE", DispatchParallel)),
		},
		Providers: ProvidersConfig{
			HuggingFace: HuggingFaceConfig{
				APIKey:  getEnv("HUGGINGFACE_API_KEY", ""),
				BaseURL: getEnv("HUGGINGFACE_BASE_URL", "https://api-inference.huggingface.co"),
			},
			Anthropic: AnthropicConfig{
				APIKey:     getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL:    getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Model:      getEnv("ANTHROPIC_MODEL", "claude-3-opus-20240229"),
				APIVersion: getEnv("ANTHROPIC_API_VERSION", "2023-06-01"),
			},
			Cohere: CohereConfig{
				APIKey:  getEnv("COHERE_API_KEY", ""),
				BaseURL: getEnv("COHERE_BASE_URL", "https://api.cohere.ai"),
				Model:   getEnv("COHERE_MODEL", "command"),
			},
			Gemini: GeminiConfig{
				APIKey: getEnv("GEMINI_API_KEY", ""),
				Model:  getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
			},
			CatalogFile: getEnv("PROVIDER_CATALOG_FILE", ""),
		},
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix: getEnv("REDIS_PREFIX", "arena"),
			HistoryTTL:  getEnvAsDuration("HISTORY_TTL", 7*24*time.Hour),
		},
		Database: loadDatabaseConfig(),
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", getEnv("FLASK_SECRET_KEY", DefaultSessionSecret)),
			CookieName: getEnv("SESSION_COOKIE_NAME", "arena_session"),
			TTL:        getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
			Secure:     getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			LogFormat:         getEnv("LOG_FORMAT", "json"),
			MetricsEnabled:    getEnvAsBool("METRICS_ENABLED", true),
			TracingEnabled:    getEnvAsBool("TRACING_ENABLED", false),
			TracingEndpoint:   getEnv("TRACING_ENDPOINT", ""),
			TracingSampleRate: getEnvAsFloat("TRACING_SAMPLE_RATE", 0.1),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields that cannot be silently defaulted
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Store.Backend == StorePostgres {
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" && c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Store.Backend == StoreRedis && c.Store.RedisURL == "" {
		return fmt.Errorf("redis url is required for the redis store")
	}

	switch c.Generation.DispatchMode {
	case DispatchParallel, DispatchSequential:
	default:
		return fmt.Errorf("unknown dispatch mode %q", c.Generation.DispatchMode)
	}

	if c.Generation.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if c.IsProduction() && (c.Session.Secret == "" || c.Session.Secret == DefaultSessionSecret) {
		return fmt.Errorf("session secret must be set in production")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}
	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "arena")
	pool.Password = getEnv("DB_PASSWORD", "")
	pool.Database = getEnv("DB_NAME", "arena")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getMaxTokens reads MAX_TOKENS and falls back to the default when the value
// is unparsable or outside 1..2048.
func getMaxTokens() int {
	v := getEnvAsInt("MAX_TOKENS", DefaultMaxTokens)
	if v < MinMaxTokens || v > MaxMaxTokens {
		return DefaultMaxTokens
	}
	return v
}

// getTemperature reads TEMPERATURE and falls back to the default outside 0..1.
func getTemperature() float64 {
	v := getEnvAsFloat("TEMPERATURE", DefaultTemperature)
	if v < 0 || v > 1 {
		return DefaultTemperature
	}
	return v
}

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		// Bare integers are read as seconds.
		if secs, convErr := strconv.Atoi(valueStr); convErr == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
