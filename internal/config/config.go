// Package config provides configuration management for CyberGuard.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/lvonguyen/cyberguard/internal/observability"
	"github.com/lvonguyen/cyberguard/internal/osint"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// Config holds all CyberGuard configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Environment    string               `yaml:"environment"`
	Storage        StorageConfig        `yaml:"storage"`
	Redis          RedisConfig          `yaml:"redis"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	OSINT          osint.Config         `yaml:"osint"`
	Logging        LoggingConfig        `yaml:"logging"`
	Observability  observability.Config `yaml:"observability"`
	CheckCacheSize int                  `yaml:"check_cache_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver string      `yaml:"driver"` // memory, mongo
	Mongo  MongoConfig `yaml:"mongo"`
}

// MongoConfig holds MongoDB connection settings. The URI is read from URIEnv
// when that variable is set.
type MongoConfig struct {
	URI         string        `yaml:"uri"`
	URIEnv      string        `yaml:"uri_env"`
	Database    string        `yaml:"database"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxPoolSize uint64        `yaml:"max_pool_size"`
}

// RedisConfig holds Redis connection settings. An empty Addr disables rate
// limiting.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
}

// RateLimitConfig holds the /api rate limit.
type RateLimitConfig struct {
	Requests       int           `yaml:"requests"`
	Window         time.Duration `yaml:"window"`
	IncludeHeaders bool          `yaml:"include_headers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// ErrNoConfigFile is returned by Load when the file does not exist. The
// returned config then holds the defaults.
var ErrNoConfigFile = errors.New("config file not found")

// Load reads configuration from a YAML file over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg.applyEnv()
		return cfg, fmt.Errorf("%w: %s", ErrNoConfigFile, path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()

	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            4000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Environment: "production",
		Storage: StorageConfig{
			Driver: DriverMemory,
			Mongo: MongoConfig{
				URI:         "mongodb://localhost:27017",
				URIEnv:      "MONGO_URI",
				Database:    "cyberguard",
				Timeout:     10 * time.Second,
				MaxPoolSize: 50,
			},
		},
		Redis: RedisConfig{
			PasswordEnv: "REDIS_PASSWORD",
			PoolSize:    10,
		},
		RateLimit: RateLimitConfig{
			Requests:       100,
			Window:         15 * time.Minute,
			IncludeHeaders: true,
		},
		OSINT: osint.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: observability.Config{
			ServiceName:    "cyberguard",
			MetricsEnabled: true,
			SamplingRate:   0.1,
		},
		CheckCacheSize: 1024,
	}
}

func (c *Config) applyEnv() {
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Environment = env
	}
	if c.Storage.Mongo.URIEnv != "" {
		if uri := os.Getenv(c.Storage.Mongo.URIEnv); uri != "" {
			c.Storage.Mongo.URI = uri
		}
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ActiveSchedule returns the ingestion schedule for the environment.
func (c *Config) ActiveSchedule() string {
	if c.IsDevelopment() && c.OSINT.DevSchedule != "" {
		return c.OSINT.DevSchedule
	}
	return c.OSINT.Schedule
}

// RedisPassword resolves the Redis password from its env var.
func (c *Config) RedisPassword() string {
	if c.Redis.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.Redis.PasswordEnv)
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.Storage.Mongo.URI == "" {
			errs = append(errs, errors.New("storage.mongo.uri is required for the mongo driver"))
		}
		if c.Storage.Mongo.Timeout <= 0 {
			errs = append(errs, errors.New("storage.mongo.timeout must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be positive"))
	}
	if c.OSINT.Timeout <= 0 {
		errs = append(errs, errors.New("osint.timeout must be positive"))
	}
	if c.OSINT.DuplicateWindow <= 0 {
		errs = append(errs, errors.New("osint.duplicate_window must be positive"))
	}
	for name, sc := range map[string]osint.SourceConfig{
		osint.KeyPhishTank:  c.OSINT.PhishTank,
		osint.KeyAbuseCh:    c.OSINT.AbuseCh,
		osint.KeyVirusTotal: c.OSINT.VirusTotal,
	} {
		if sc.MaxItems <= 0 {
			errs = append(errs, fmt.Errorf("osint.%s.max_items must be positive", name))
		}
	}
	for _, spec := range []string{c.OSINT.Schedule, c.OSINT.DevSchedule} {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("invalid osint schedule %q: %w", spec, err))
		}
	}
	if c.CheckCacheSize <= 0 {
		errs = append(errs, errors.New("check_cache_size must be positive"))
	}

	return errors.Join(errs...)
}

// Telemetry returns the observability config with the logging and
// environment settings filled in.
func (c *Config) Telemetry(version string) observability.Config {
	t := c.Observability
	t.ServiceVersion = version
	t.Environment = c.Environment
	t.LogLevel = c.Logging.Level
	t.LogFormat = c.Logging.Format
	return t
}
