package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names a config file when LoadConfig is given none.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Security  SecurityConfig  `koanf:"security"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Cache     CacheConfig     `koanf:"cache"`
	Narration NarrationConfig `koanf:"narration"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Logging   LoggingConfig   `koanf:"logging"`
	Features  FeaturesConfig  `koanf:"features"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string        `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CatalogConfig selects where the benefit catalog is loaded from.
type CatalogConfig struct {
	Source       string `koanf:"source"` // file or sqlite
	OffersPath   string `koanf:"offers_path"`
	EventsPath   string `koanf:"events_path"`
	DatabasePath string `koanf:"database_path"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64    `koanf:"max_request_body_size"`
	AllowedOrigins     []string `koanf:"allowed_origins"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Rate    int           `koanf:"rate"`
	Window  time.Duration `koanf:"window"`
}

// CacheConfig configures the narration cache.
type CacheConfig struct {
	Backend       string        `koanf:"backend"` // none, memory or redis
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
}

// NarrationConfig configures the remote narration endpoint.
type NarrationConfig struct {
	Endpoint         string        `koanf:"endpoint"`
	Timeout          time.Duration `koanf:"timeout"`
	RetryMax         int           `koanf:"retry_max"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
}

type TracingConfig struct {
	Enabled        bool    `koanf:"enabled"`
	ServiceName    string  `koanf:"service_name"`
	JaegerEndpoint string  `koanf:"jaeger_endpoint"`
	Environment    string  `koanf:"environment"`
	SampleRatio    float64 `koanf:"sample_ratio"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// FeaturesConfig holds the initial feature flag states.
type FeaturesConfig struct {
	NarrationCache    bool `koanf:"narration_cache"`
	RemoteNarration   bool `koanf:"remote_narration"`
	EventHooks        bool `koanf:"event_hooks"`
	DayOfWeekFilter   bool `koanf:"day_of_week_filter"`
	PlanNormalization bool `koanf:"plan_normalization"`
}

// Flags returns the feature states keyed by flag name.
func (f FeaturesConfig) Flags() map[string]bool {
	return map[string]bool{
		"narration_cache":    f.NarrationCache,
		"remote_narration":   f.RemoteNarration,
		"event_hooks":        f.EventHooks,
		"day_of_week_filter": f.DayOfWeekFilter,
		"plan_normalization": f.PlanNormalization,
	}
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Catalog: CatalogConfig{
			Source:       "file",
			OffersPath:   "./data/offers.json",
			EventsPath:   "./data/events.json",
			DatabasePath: "./benefit_catalog.db",
		},
		Security: SecurityConfig{
			MaxRequestBodySize: 1 << 20,
			AllowedOrigins:     []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  time.Minute,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       10 * time.Minute,
		},
		Narration: NarrationConfig{
			Timeout:          5 * time.Second,
			RetryMax:         2,
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
		},
		Tracing: TracingConfig{
			ServiceName:    "benefit-recommendation-api",
			JaegerEndpoint: "http://localhost:14268/api/traces",
			Environment:    "development",
			SampleRatio:    1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Features: FeaturesConfig{
			NarrationCache: true,
			EventHooks:     true,
		},
	}
}

// LoadConfig layers defaults, an optional YAML file and environment
// variables, in that order of precedence. An empty configFile falls back to
// $CONFIG_PATH.
func LoadConfig(configFile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configFile == "" {
		configFile = os.Getenv(ConfigPathEnvVar)
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

var sliceConfigPaths = []string{
	"security.allowed_origins",
}

// processSliceFields splits comma-separated env values for slice settings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"server_port":             "server.port",
	"server_host":             "server.host",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",

	"catalog_source":      "catalog.source",
	"catalog_offers_path": "catalog.offers_path",
	"catalog_events_path": "catalog.events_path",
	"database_path":       "catalog.database_path",

	"max_request_body_size": "security.max_request_body_size",
	"allowed_origins":       "security.allowed_origins",

	"rate_limit_enabled": "rate_limit.enabled",
	"rate_limit_rate":    "rate_limit.rate",
	"rate_limit_window":  "rate_limit.window",

	"cache_backend":  "cache.backend",
	"redis_addr":     "cache.redis_addr",
	"redis_password": "cache.redis_password",
	"redis_db":       "cache.redis_db",
	"cache_ttl":      "cache.ttl",

	"narration_endpoint":          "narration.endpoint",
	"narration_timeout":           "narration.timeout",
	"narration_retry_max":         "narration.retry_max",
	"narration_failure_threshold": "narration.failure_threshold",
	"narration_open_timeout":      "narration.open_timeout",

	"tracing_enabled":    "tracing.enabled",
	"otel_service_name":  "tracing.service_name",
	"jaeger_endpoint":    "tracing.jaeger_endpoint",
	"environment":        "tracing.environment",
	"trace_sample_ratio": "tracing.sample_ratio",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"feature_narration_cache":    "features.narration_cache",
	"feature_remote_narration":   "features.remote_narration",
	"feature_event_hooks":        "features.event_hooks",
	"feature_day_of_week_filter": "features.day_of_week_filter",
	"feature_plan_normalization": "features.plan_normalization",
}

// envTransformFunc maps environment variable names to config paths. Unknown
// variables are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	switch c.Catalog.Source {
	case "file":
		if c.Catalog.OffersPath == "" && c.Catalog.EventsPath == "" {
			return fmt.Errorf("catalog source file needs offers_path or events_path")
		}
	case "sqlite":
		if c.Catalog.DatabasePath == "" {
			return fmt.Errorf("catalog source sqlite needs database_path")
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	switch c.Cache.Backend {
	case "none", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend redis needs redis_addr")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Features.RemoteNarration && c.Narration.Endpoint == "" {
		return fmt.Errorf("remote narration is enabled but narration endpoint is empty")
	}
	if c.Narration.RetryMax < 0 {
		return fmt.Errorf("narration retry_max must not be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample_ratio must be between 0 and 1")
	}
	return nil
}
