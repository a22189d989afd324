// Package config provides configuration management for the impact dashboard.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Trend granularity constants for the time-series widget.
const (
	// GranularityMonth buckets the publication trend by calendar month.
	GranularityMonth = "month"
	// GranularityYear buckets the publication trend by calendar year.
	GranularityYear = "year"
)

// defaultQuery is the Dimensions DSL query for the fixed research-network
// search. Operators may override it via IMPACT_DIMENSIONS_QUERY or the
// config file.
const defaultQuery = `search publications for "\"Australian Urban Research Infrastructure Network\"" return publications[id+title+type+authors+journal+times_cited+year+date+research_orgs+research_org_countries]`

// Config holds all configuration for the impact dashboard.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Dimensions contains Dimensions Analytics API client settings.
	Dimensions DimensionsConfig `mapstructure:"dimensions"`
	// Dashboard contains derived-view and widget settings.
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port" validate:"gt=0,lte=65535"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port" validate:"gt=0,lte=65535"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	// Must cover a full synchronous load against the Dimensions API.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the maximum time to wait for the next request.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the prefix for all metric names.
	Namespace string `mapstructure:"namespace"`
}

// DimensionsConfig holds Dimensions Analytics API client settings.
type DimensionsConfig struct {
	// BaseURL is the Dimensions API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// APIKey is an optional operator-provided default credential, loaded
	// exclusively from IMPACT_DIMENSIONS_API_KEY. Users normally supply
	// their own key per session.
	APIKey string `mapstructure:"-"`
	// Query is the DSL query issued on every load.
	Query string `mapstructure:"query"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size" validate:"gt=0"`
	// PageSize is the bounded number of records requested per load.
	PageSize int `mapstructure:"page_size" validate:"gt=0"`
}

// DashboardConfig holds derived-view and widget settings.
type DashboardConfig struct {
	// TopCitedCount is the number of rows in the top-cited table.
	TopCitedCount int `mapstructure:"top_cited_count" validate:"gt=0"`
	// RecentPapersCount is the number of rows in the recent-papers table.
	RecentPapersCount int `mapstructure:"recent_papers_count" validate:"gt=0"`
	// RecentWindowMonths is the trailing window for the recent-publications table.
	RecentWindowMonths int `mapstructure:"recent_window_months" validate:"gt=0"`
	// TrendGranularity buckets the trend chart by month or year.
	TrendGranularity string `mapstructure:"trend_granularity" validate:"oneof=month year"`
	// HistogramBins is the number of bins in the citation histogram.
	HistogramBins int `mapstructure:"histogram_bins" validate:"gt=0"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("IMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/impact-dashboard")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets are loaded exclusively from environment variables.
	// The field uses mapstructure:"-" to prevent loading from config files.
	cfg.Dimensions.APIKey = os.Getenv("IMPACT_DIMENSIONS_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	// Loads block on the single Dimensions call, so the write timeout is generous.
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.idle_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "impact_dashboard")

	// Dimensions defaults
	v.SetDefault("dimensions.base_url", "https://app.dimensions.ai")
	v.SetDefault("dimensions.query", defaultQuery)
	v.SetDefault("dimensions.timeout", "60s")
	v.SetDefault("dimensions.rate_limit", 0.5) // Dimensions allows 30 req/min
	v.SetDefault("dimensions.burst_size", 2)
	v.SetDefault("dimensions.page_size", 1000)

	// Dashboard defaults
	v.SetDefault("dashboard.top_cited_count", 5)
	v.SetDefault("dashboard.recent_papers_count", 5)
	v.SetDefault("dashboard.recent_window_months", 6)
	v.SetDefault("dashboard.trend_granularity", GranularityMonth)
	v.SetDefault("dashboard.histogram_bins", 20)
}

var validate = validator.New()

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// The required tag accepts whitespace-only strings.
	if strings.TrimSpace(c.Dimensions.Query) == "" {
		return fmt.Errorf("dimensions query is required")
	}
	return nil
}
