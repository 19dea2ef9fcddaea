// Package config provides centralized configuration management for the dashboard.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Source kinds.
const (
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Database DatabaseConfig
	Query    QueryConfig
	Schedule ScheduleConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// SourceConfig selects where solicitudes and their results are read from.
type SourceConfig struct {
	// Kind is "postgres" (read the consulta_judicial database directly)
	// or "http" (call the backend REST API).
	Kind string `env:"SOURCE_KIND" default:"postgres"`

	// BackendURL is the base URL of the backend API, used when Kind is "http".
	BackendURL string `env:"BACKEND_URL" envAlt:"API_URL" default:"http://localhost:8000"`

	// BackendToken is sent as a bearer token when set.
	BackendToken string `env:"BACKEND_TOKEN"`

	// Timeout bounds a single fetch (default: 10s)
	Timeout time.Duration `env:"SOURCE_TIMEOUT" default:"10s"`

	// SnapshotTTL is how long fetched records are served before refetching (default: 1m)
	SnapshotTTL time.Duration `env:"SOURCE_SNAPSHOT_TTL" default:"1m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, required for the postgres source.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// QueryConfig holds table query defaults.
type QueryConfig struct {
	// DefaultPageSize applies when a request does not specify one (default: 10)
	DefaultPageSize int `env:"QUERY_DEFAULT_PAGE_SIZE" default:"10"`

	// MaxPageSize caps client-requested page sizes (default: 200)
	MaxPageSize int `env:"QUERY_MAX_PAGE_SIZE" default:"200"`

	// ViewsFile is an optional YAML file overriding view labels and defaults.
	ViewsFile string `env:"VIEWS_FILE"`

	// MaxConcurrentExports caps CSV exports rendered at once (default: 4)
	MaxConcurrentExports int `env:"EXPORT_MAX_CONCURRENT" default:"4"`

	// ExportWait is how long an export waits for a free slot (default: 10s)
	ExportWait time.Duration `env:"EXPORT_MAX_WAIT" default:"10s"`
}

// ScheduleConfig holds cron expressions for the execution countdown and
// the snapshot refresh job.
type ScheduleConfig struct {
	// ExecutionCron is when the backend runs the daily inquiries (default: 7:00 PM)
	ExecutionCron string `env:"SCHEDULE_EXECUTION_CRON" default:"0 19 * * *"`

	// RefreshCron is when snapshots are refreshed in the background (default: every 5 minutes)
	RefreshCron string `env:"SCHEDULE_REFRESH_CRON" default:"*/5 * * * *"`

	// Timezone is the IANA zone the cron expressions are evaluated in.
	Timezone string `env:"SCHEDULE_TIMEZONE" envAlt:"TZ" default:"America/Bogota"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ExportLimit is requests per minute for CSV export endpoints (default: 10)
	ExportLimit int `env:"RATE_LIMIT_EXPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// SessionCookie names the cookie that keys saved table state (default: lexia_session)
	SessionCookie string `env:"SESSION_COOKIE" default:"lexia_session"`

	// SecureCookies marks the session cookie Secure; enable behind HTTPS.
	SecureCookies bool `env:"SECURITY_SECURE_COOKIES" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Location resolves the schedule timezone, falling back to UTC.
func (c *ScheduleConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
