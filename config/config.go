// Package config loads and validates application configuration from the
// environment using viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength = 32
)

// Marker store backends for the notification tracker.
const (
	MarkerBackendRedis  = "redis"
	MarkerBackendSQLite = "sqlite"
	MarkerBackendMemory = "memory"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// TrustedProxies empty means X-Forwarded-For is ignored.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// DatabaseConfig holds PostgreSQL connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST" yaml:"host"`
	Port         int    `mapstructure:"PORT" yaml:"port"`
	User         string `mapstructure:"USER" yaml:"user"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	Name         string `mapstructure:"NAME" yaml:"name"`
	SSLMode      string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"MAX_IDLE_CONNS" yaml:"max_idle_conns"`
	ConnMaxLife  string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL for pgxpool and golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// AuthConfig holds identity provider settings. Tokens are Supabase-issued JWTs.
type AuthConfig struct {
	SupabaseURL       string `mapstructure:"SUPABASE_URL" yaml:"supabase_url"`
	SupabaseAnonKey   string `mapstructure:"SUPABASE_ANON_KEY" yaml:"supabase_anon_key"`
	SupabaseJWTSecret string `mapstructure:"SUPABASE_JWT_SECRET" yaml:"supabase_jwt_secret"`
}

// StorageConfig configures the S3-compatible bucket used for trip cover images.
// An empty Bucket disables uploads.
type StorageConfig struct {
	Endpoint        string `mapstructure:"ENDPOINT" yaml:"endpoint"`
	Region          string `mapstructure:"REGION" yaml:"region"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY" yaml:"secret_access_key"`
	Bucket          string `mapstructure:"BUCKET" yaml:"bucket"`
	PublicBaseURL   string `mapstructure:"PUBLIC_BASE_URL" yaml:"public_base_url"`
	MaxUploadBytes  int64  `mapstructure:"MAX_UPLOAD_BYTES" yaml:"max_upload_bytes"`
}

// Enabled reports whether cover uploads are configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// NotificationConfig holds configuration for the external notification facade API.
type NotificationConfig struct {
	Enabled        bool   `mapstructure:"ENABLED" yaml:"enabled"`
	APIUrl         string `mapstructure:"API_URL" yaml:"api_url"`
	APIKey         string `mapstructure:"API_KEY" yaml:"api_key"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// EmailConfig holds configuration for budget alert emails.
type EmailConfig struct {
	Enabled      bool   `mapstructure:"ENABLED" yaml:"enabled"`
	FromAddress  string `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	FromName     string `mapstructure:"FROM_NAME" yaml:"from_name"`
	ResendAPIKey string `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`
}

// TrackerConfig configures the budget notification tracker.
type TrackerConfig struct {
	// DailyLimit caps notifications per user per calendar day.
	DailyLimit int `mapstructure:"DAILY_LIMIT" yaml:"daily_limit"`
	// Timezone is the IANA zone used to truncate timestamps to calendar days.
	Timezone string `mapstructure:"TIMEZONE" yaml:"timezone"`
	// MarkerBackend is one of redis, sqlite, memory.
	MarkerBackend string `mapstructure:"MARKER_BACKEND" yaml:"marker_backend"`
	SQLitePath    string `mapstructure:"SQLITE_PATH" yaml:"sqlite_path"`
	// ReminderIntervalMinutes is how often the upcoming-trip sweep runs; 0 disables it.
	ReminderIntervalMinutes int `mapstructure:"REMINDER_INTERVAL_MINUTES" yaml:"reminder_interval_minutes"`
}

// Location resolves Timezone, falling back to UTC.
func (t TrackerConfig) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventServiceConfig holds configuration for the Redis expense-change feed.
type EventServiceConfig struct {
	PublishTimeoutSeconds int `mapstructure:"PUBLISH_TIMEOUT_SECONDS" yaml:"publish_timeout_seconds"`
	EventBufferSize       int `mapstructure:"EVENT_BUFFER_SIZE" yaml:"event_buffer_size"`
}

// RateLimitConfig holds configuration for API rate limiting.
type RateLimitConfig struct {
	WriteRequestsPerMinute int `mapstructure:"WRITE_REQUESTS_PER_MINUTE" yaml:"write_requests_per_minute"`
	AuthRequestsPerMinute  int `mapstructure:"AUTH_REQUESTS_PER_MINUTE" yaml:"auth_requests_per_minute"`
	WindowSeconds          int `mapstructure:"WINDOW_SECONDS" yaml:"window_seconds"`
}

// WorkerPoolConfig holds configuration for the notification delivery pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	QueueSize              int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// ExternalServices holds API keys for third-party lookups.
type ExternalServices struct {
	PexelsAPIKey string `mapstructure:"PEXELS_API_KEY" yaml:"pexels_api_key"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server           ServerConfig       `mapstructure:"SERVER" yaml:"server"`
	Database         DatabaseConfig     `mapstructure:"DATABASE" yaml:"database"`
	Redis            RedisConfig        `mapstructure:"REDIS" yaml:"redis"`
	Auth             AuthConfig         `mapstructure:"AUTH" yaml:"auth"`
	Storage          StorageConfig      `mapstructure:"STORAGE" yaml:"storage"`
	Notification     NotificationConfig `mapstructure:"NOTIFICATION" yaml:"notification"`
	Email            EmailConfig        `mapstructure:"EMAIL" yaml:"email"`
	Tracker          TrackerConfig      `mapstructure:"TRACKER" yaml:"tracker"`
	EventService     EventServiceConfig `mapstructure:"EVENT_SERVICE" yaml:"event_service"`
	RateLimit        RateLimitConfig    `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
	WorkerPool       WorkerPoolConfig   `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
	ExternalServices ExternalServices   `mapstructure:"EXTERNAL_SERVICES" yaml:"external_services"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds {configKey, envVar} pairs.
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "nomadbudget_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("DATABASE.MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("AUTH.SUPABASE_URL", "")
	v.SetDefault("AUTH.SUPABASE_ANON_KEY", "")
	v.SetDefault("AUTH.SUPABASE_JWT_SECRET", "")
	v.SetDefault("STORAGE.ENDPOINT", "")
	v.SetDefault("STORAGE.REGION", "auto")
	v.SetDefault("STORAGE.ACCESS_KEY_ID", "")
	v.SetDefault("STORAGE.SECRET_ACCESS_KEY", "")
	v.SetDefault("STORAGE.BUCKET", "")
	v.SetDefault("STORAGE.PUBLIC_BASE_URL", "")
	v.SetDefault("STORAGE.MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("NOTIFICATION.ENABLED", false)
	v.SetDefault("NOTIFICATION.API_URL", "")
	v.SetDefault("NOTIFICATION.API_KEY", "")
	v.SetDefault("NOTIFICATION.TIMEOUT_SECONDS", 10)
	v.SetDefault("EMAIL.ENABLED", false)
	v.SetDefault("EMAIL.FROM_ADDRESS", "")
	v.SetDefault("EMAIL.FROM_NAME", "NomadCrew Budget")
	v.SetDefault("EMAIL.RESEND_API_KEY", "")
	v.SetDefault("TRACKER.DAILY_LIMIT", 10)
	v.SetDefault("TRACKER.TIMEZONE", "UTC")
	v.SetDefault("TRACKER.MARKER_BACKEND", MarkerBackendRedis)
	v.SetDefault("TRACKER.SQLITE_PATH", "markers.db")
	v.SetDefault("TRACKER.REMINDER_INTERVAL_MINUTES", 60)
	v.SetDefault("EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", 5)
	v.SetDefault("EVENT_SERVICE.EVENT_BUFFER_SIZE", 16)
	v.SetDefault("RATE_LIMIT.WRITE_REQUESTS_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT.AUTH_REQUESTS_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 4)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 256)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("EXTERNAL_SERVICES.PEXELS_API_KEY", "")
}

var envBindings = [][2]string{
	{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
	{"SERVER.PORT", "PORT"},
	{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
	{"SERVER.VERSION", "VERSION"},
	{"DATABASE.HOST", "DB_HOST"},
	{"DATABASE.PORT", "DB_PORT"},
	{"DATABASE.USER", "DB_USER"},
	{"DATABASE.PASSWORD", "DB_PASSWORD"},
	{"DATABASE.NAME", "DB_NAME"},
	{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
	{"REDIS.ADDRESS", "REDIS_ADDRESS"},
	{"REDIS.PASSWORD", "REDIS_PASSWORD"},
	{"REDIS.DB", "REDIS_DB"},
	{"REDIS.USE_TLS", "REDIS_USE_TLS"},
	{"AUTH.SUPABASE_URL", "SUPABASE_URL"},
	{"AUTH.SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY"},
	{"AUTH.SUPABASE_JWT_SECRET", "SUPABASE_JWT_SECRET"},
	{"STORAGE.ENDPOINT", "R2_ENDPOINT"},
	{"STORAGE.ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"},
	{"STORAGE.SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"},
	{"STORAGE.BUCKET", "R2_BUCKET"},
	{"STORAGE.PUBLIC_BASE_URL", "R2_PUBLIC_BASE_URL"},
	{"NOTIFICATION.ENABLED", "NOTIFICATION_ENABLED"},
	{"NOTIFICATION.API_URL", "NOTIFICATION_API_URL"},
	{"NOTIFICATION.API_KEY", "NOTIFICATION_API_KEY"},
	{"EMAIL.ENABLED", "EMAIL_ENABLED"},
	{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
	{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
	{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
	{"TRACKER.DAILY_LIMIT", "TRACKER_DAILY_LIMIT"},
	{"TRACKER.TIMEZONE", "TRACKER_TIMEZONE"},
	{"TRACKER.MARKER_BACKEND", "TRACKER_MARKER_BACKEND"},
	{"TRACKER.SQLITE_PATH", "TRACKER_SQLITE_PATH"},
	{"TRACKER.REMINDER_INTERVAL_MINUTES", "TRACKER_REMINDER_INTERVAL_MINUTES"},
	{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
	{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
	{"EXTERNAL_SERVICES.PEXELS_API_KEY", "PEXELS_API_KEY"},
}

// LoadConfig reads defaults and environment variables, unmarshals them and
// validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"db_host", v.GetString("DATABASE.HOST"),
		"marker_backend", v.GetString("TRACKER.MARKER_BACKEND"),
		"tracker_timezone", v.GetString("TRACKER.TIMEZONE"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}

	if len(cfg.Auth.SupabaseJWTSecret) < minJWTLength {
		return fmt.Errorf("supabase JWT secret must be at least %d characters long", minJWTLength)
	}

	if err := validateTrackerConfig(&cfg.Tracker, cfg.Redis); err != nil {
		return err
	}
	if err := validateStorageConfig(&cfg.Storage); err != nil {
		return err
	}
	if err := validateNotificationConfig(&cfg.Notification, log); err != nil {
		return err
	}
	if cfg.Email.Enabled && (cfg.Email.FromAddress == "" || cfg.Email.ResendAPIKey == "") {
		log.Warn("Email sink enabled without sender or API key, disabling")
		cfg.Email.Enabled = false
	}

	if cfg.EventService.PublishTimeoutSeconds <= 0 {
		return fmt.Errorf("event service publish timeout must be positive")
	}
	if cfg.EventService.EventBufferSize <= 0 {
		return fmt.Errorf("event service buffer size must be positive")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}
	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}
	return nil
}

func validateTrackerConfig(cfg *TrackerConfig, redisCfg RedisConfig) error {
	if cfg.DailyLimit <= 0 {
		return fmt.Errorf("tracker daily limit must be positive")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid tracker timezone %q: %w", cfg.Timezone, err)
	}
	switch cfg.MarkerBackend {
	case MarkerBackendRedis:
		if redisCfg.Address == "" {
			return fmt.Errorf("redis address is required for the redis marker backend")
		}
	case MarkerBackendSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite marker backend")
		}
	case MarkerBackendMemory:
	default:
		return fmt.Errorf("unknown marker backend %q", cfg.MarkerBackend)
	}
	if cfg.ReminderIntervalMinutes < 0 {
		return fmt.Errorf("reminder interval must not be negative")
	}
	return nil
}

func validateStorageConfig(cfg *StorageConfig) error {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.PublicBaseURL == "" {
		return fmt.Errorf("storage public base URL is required when a bucket is set")
	}
	if _, err := url.ParseRequestURI(cfg.PublicBaseURL); err != nil {
		return fmt.Errorf("invalid storage public base URL: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage max upload bytes must be positive")
	}
	return nil
}

// validateNotificationConfig auto-disables the facade when enabled without a key.
func validateNotificationConfig(cfg *NotificationConfig, log *zap.SugaredLogger) error {
	if !cfg.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(cfg.APIUrl); err != nil {
		return fmt.Errorf("invalid notification API URL: %w", err)
	}
	if cfg.APIKey == "" {
		log.Warn("Notification API key not set, auto-disabling notification facade")
		cfg.Enabled = false
		return nil
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("notification timeout must be positive")
	}
	return nil
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
