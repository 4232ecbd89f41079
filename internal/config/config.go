// Package config provides centralized configuration management for the dashboard.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// History drivers accepted by HISTORY_DRIVER.
const (
	HistoryNone     = "none"
	HistoryPostgres = "postgres"
	HistorySQLite   = "sqlite"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	History  HistoryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatasetConfig describes the transaction file and how results are presented.
type DatasetConfig struct {
	// Path is the semicolon-delimited transaction file (default: Groceries_dataset.csv)
	Path string `env:"DATASET_PATH" default:"Groceries_dataset.csv"`

	// Delimiter is the single-character field separator (default: ;)
	Delimiter string `env:"DATASET_DELIMITER" default:";"`

	// TopN is the number of products drawn in the bar chart (default: 20)
	TopN int `env:"CHART_TOP_N" default:"20"`

	// ExportFileName is the download name of the CSV export
	ExportFileName string `env:"EXPORT_FILE_NAME" default:"frequenza_relativa_prodotti.csv"`

	// MaxConcurrent is the number of analyses allowed to read the file at once (default: 4)
	MaxConcurrent int `env:"ANALYSIS_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a request waits for a free analysis slot (default: 10s)
	MaxWait time.Duration `env:"ANALYSIS_MAX_WAIT" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per client IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// AllowedOrigins is a comma-separated list of origins allowed to call /api
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// HistoryConfig selects where analysis runs are recorded.
type HistoryConfig struct {
	// Driver is one of none, postgres, sqlite (default: none)
	Driver string `env:"HISTORY_DRIVER" default:"none"`

	// DatabaseURL is the PostgreSQL connection string for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `env:"HISTORY_SQLITE_PATH" default:"basketfreq_history.sqlite"`

	// MaxConns is the maximum number of pooled postgres connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of pooled postgres connections (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// BreakerFailures is the number of consecutive store failures that stops
	// recording for BreakerTimeout (default: 3)
	BreakerFailures int `env:"HISTORY_BREAKER_FAILURES" default:"3"`

	// BreakerTimeout is how long recording stays suspended (default: 30s)
	BreakerTimeout time.Duration `env:"HISTORY_BREAKER_TIMEOUT" default:"30s"`

	// Limit is how many runs /api/history returns (default: 50)
	Limit int `env:"HISTORY_LIMIT" default:"50"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DelimiterRune returns the dataset delimiter as a rune.
// Validate guarantees exactly one character.
func (c *DatasetConfig) DelimiterRune() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ';'
}
