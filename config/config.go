package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// BreakerConfig is the default circuit breaker tuning, applied to any
// service that does not override it.
type BreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
}

// ExecutorConfig is the default retry policy wrapped around service
// primaries.
type ExecutorConfig struct {
	Retries       int     `mapstructure:"retries"`
	BackoffFactor float64 `mapstructure:"backoff_factor"`
	Timeout       string  `mapstructure:"timeout"`
}

type CacheConfig struct {
	ResponseTTL  string `mapstructure:"response_ttl"`
	QueryTTL     string `mapstructure:"query_ttl"`
	KVDefaultTTL string `mapstructure:"kv_default_ttl"`
	MaxEntries   int    `mapstructure:"max_entries"`
}

type ReporterConfig struct {
	Interval string `mapstructure:"interval"`
}

type CollectorConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// ServiceConfig describes one protected upstream: where to reach it,
// its breaker tuning overrides and the canned payload served when both
// the primary and the cached response are gone. Fallback holds raw
// JSON so operators can bind arbitrary payloads from the config file.
// Zero threshold/timeout fields inherit the breaker defaults.
type ServiceConfig struct {
	Name             string `mapstructure:"name"`
	URL              string `mapstructure:"url"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
	Fallback         string `mapstructure:"fallback"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Reporter  ReporterConfig  `mapstructure:"reporter"`
	Collector CollectorConfig `mapstructure:"collector"`
	Services  []ServiceConfig `mapstructure:"services"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("breaker.failure_threshold", 3)
	viper.SetDefault("breaker.recovery_timeout", "10s")
	viper.SetDefault("executor.retries", 3)
	viper.SetDefault("executor.backoff_factor", 0.1)
	viper.SetDefault("executor.timeout", "5s")
	viper.SetDefault("cache.response_ttl", "5m")
	viper.SetDefault("cache.query_ttl", "30s")
	viper.SetDefault("cache.kv_default_ttl", "10m")
	viper.SetDefault("cache.max_entries", 0)
	viper.SetDefault("reporter.interval", "30s")
	viper.SetDefault("collector.buffer_size", 1024)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// FallbackPayload decodes the service's canned fallback. The second
// return is false when no fallback is configured.
func (s ServiceConfig) FallbackPayload() (any, bool, error) {
	if s.Fallback == "" {
		return nil, false, nil
	}

	var payload any
	if err := json.Unmarshal([]byte(s.Fallback), &payload); err != nil {
		return nil, false, err
	}

	return payload, true, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&bc.RecoveryTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Executor,
			validation.Required,
			validation.By(func(value interface{}) error {
				ec, ok := value.(ExecutorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an ExecutorConfig")
				}
				return validation.ValidateStruct(&ec,
					validation.Field(&ec.Retries,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&ec.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Cache,
			validation.Required,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CacheConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CacheConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.ResponseTTL,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&cc.QueryTTL,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&cc.KVDefaultTTL,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&cc.MaxEntries,
						validation.Min(0),
					),
				)
			}),
		),
		validation.Field(&c.Reporter,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(ReporterConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ReporterConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Collector,
			validation.Required,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CollectorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CollectorConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.BufferSize,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Services,
			validation.Each(validation.By(validateServiceConfig)),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be a positive duration")
	}

	return nil
}

func validateServiceConfig(value interface{}) error {
	svc, ok := value.(ServiceConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServiceConfig")
	}

	if svc.Name == "" {
		return validation.NewError("validation_empty_name", "service name cannot be empty")
	}

	if svc.URL == "" {
		return validation.NewError("validation_empty_url", "service URL cannot be empty")
	}

	parsedURL, err := url.Parse(svc.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if svc.FailureThreshold < 0 {
		return validation.NewError("validation_invalid_threshold", "failure threshold cannot be negative")
	}

	if svc.RecoveryTimeout != "" {
		if err := validateDuration(svc.RecoveryTimeout); err != nil {
			return err
		}
	}

	if svc.Fallback != "" && !json.Valid([]byte(svc.Fallback)) {
		return validation.NewError("validation_invalid_fallback", "fallback must be valid JSON")
	}

	return nil
}
