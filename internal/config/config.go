// Package config loads configuration from defaults, an optional YAML file,
// POMEGRANATE_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable: POMEGRANATE_DATABASE_DSN.
const EnvPrefix = "POMEGRANATE"

// Config holds the application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Log           LogConfig           `mapstructure:"log"`
	ImageHost     ImageHostConfig     `mapstructure:"imagehost"`
	GeoIP         GeoIPConfig         `mapstructure:"geoip"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	List          ListConfig          `mapstructure:"list"`
	Idempotency   IdempotencyConfig   `mapstructure:"idempotency"`
	Worker        WorkerConfig        `mapstructure:"worker"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection parameters.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	MigrateOnStart   bool          `mapstructure:"migrate_on_start"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ImageHostConfig holds the image host collaborator settings. An empty
// endpoint disables uploads.
type ImageHostConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint64        `mapstructure:"max_retries"`
}

// GeoIPConfig holds the IP geolocation collaborator settings. An empty
// endpoint disables lookups.
type GeoIPConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	ServiceName      string  `mapstructure:"service_name"`
	Environment      string  `mapstructure:"environment"`
	MetricsEnabled   bool    `mapstructure:"metrics_enabled"`
	TracingEndpoint  string  `mapstructure:"tracing_endpoint"`
	TracingInsecure  bool    `mapstructure:"tracing_insecure"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`
}

// ListConfig bounds list queries.
type ListConfig struct {
	MaxLimit int `mapstructure:"max_limit"`
}

// IdempotencyConfig controls X-Idempotency-Key handling.
type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// WorkerConfig controls the maintenance loop.
type WorkerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	AuditRetention time.Duration `mapstructure:"audit_retention"`
}

var drivers = map[string]bool{"postgres": true, "mysql": true, "sqlite": true}

// Validate fails fast on settings the process cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if !drivers[c.Database.Driver] {
		errs = append(errs, fmt.Errorf("database.driver %q must be one of postgres, mysql, sqlite", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.List.MaxLimit < 1 {
		errs = append(errs, fmt.Errorf("list.max_limit must be positive, got %d", c.List.MaxLimit))
	}
	if c.Observability.TraceSampleRatio < 0 || c.Observability.TraceSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("observability.trace_sample_ratio must be within [0,1], got %v", c.Observability.TraceSampleRatio))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:pomegranate.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.statement_timeout", 30*time.Second)
	v.SetDefault("database.migrate_on_start", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "pomegranate")
	v.SetDefault("auth.access_ttl", time.Hour)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("imagehost.endpoint", "")
	v.SetDefault("imagehost.token", "")
	v.SetDefault("imagehost.timeout", 30*time.Second)
	v.SetDefault("imagehost.max_retries", 2)

	v.SetDefault("geoip.endpoint", "")
	v.SetDefault("geoip.timeout", 2*time.Second)
	v.SetDefault("geoip.cache_ttl", 6*time.Hour)
	v.SetDefault("geoip.cache_size", 10000)

	v.SetDefault("observability.service_name", "pomegranate")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_endpoint", "")
	v.SetDefault("observability.tracing_insecure", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)

	v.SetDefault("list.max_limit", 100)

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("worker.interval", time.Minute)
	v.SetDefault("worker.audit_retention", 90*24*time.Hour)
}

// RegisterFlags defines the command line flags Load understands. Flag names
// are the canonical dotted keys, e.g. --database.dsn.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")

	fs.String("server.addr", "", "HTTP listen address")
	fs.String("database.driver", "", "Database driver: postgres, mysql or sqlite")
	fs.String("database.dsn", "", "Database connection string")
	fs.Int("database.max_open_conns", 0, "Maximum open database connections")
	fs.Bool("database.migrate_on_start", false, "Apply migrations before serving")
	fs.String("auth.jwt_secret", "", "Secret used to sign admin tokens")
	fs.String("log.level", "", "Log level: debug, info, warn, error")
	fs.Bool("log.development", false, "Human readable console logs")
	fs.String("imagehost.endpoint", "", "Image host base URL")
	fs.String("geoip.endpoint", "", "IP geolocation base URL")
	fs.String("observability.tracing_endpoint", "", "OTLP/HTTP trace collector")
	fs.Int("list.max_limit", 0, "Largest accepted page size")
	fs.Duration("worker.interval", 0, "Maintenance loop interval")
}

// Load resolves the configuration. fs must already be parsed; only flags the
// caller set explicitly override other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		fs.Visit(func(f *pflag.Flag) {
			if f.Name != "config" {
				v.Set(f.Name, f.Value.String())
			}
		})
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
