// Package config loads the server configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the trends server configuration.
type Config struct {
	Port string `mapstructure:"PORT" validate:"required,numeric"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0,lte=15"`

	MeliBaseURL string `mapstructure:"MELI_BASE_URL" validate:"required,url"`
	UserAgent   string `mapstructure:"USER_AGENT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	UpstreamTimeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT" validate:"gt=0"`
	UpstreamMaxRetries int           `mapstructure:"UPSTREAM_MAX_RETRIES" validate:"gte=0,lte=10"`

	EnrichConcurrency int `mapstructure:"ENRICH_CONCURRENCY" validate:"gte=1,lte=50"`
	EnrichMaxKeywords int `mapstructure:"ENRICH_MAX_KEYWORDS" validate:"gte=1"`

	LookupCacheTTL  time.Duration `mapstructure:"LOOKUP_CACHE_TTL" validate:"gt=0"`
	LookupCacheSize int           `mapstructure:"LOOKUP_CACHE_SIZE" validate:"gte=1"`

	SessionTTL      time.Duration `mapstructure:"SESSION_TTL" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// defaults for every key. A key must appear here to be read from the environment.
var defaults = map[string]any{
	"PORT":                 "8080",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"MELI_BASE_URL":        "https://api.mercadolibre.com",
	"USER_AGENT":           "meli-trends/1.0",
	"LOG_LEVEL":            "info",
	"LOG_PRETTY":           false,
	"UPSTREAM_TIMEOUT":     "15s",
	"UPSTREAM_MAX_RETRIES": 2,
	"ENRICH_CONCURRENCY":   5,
	"ENRICH_MAX_KEYWORDS":  50,
	"LOOKUP_CACHE_TTL":     "10m",
	"LOOKUP_CACHE_SIZE":    256,
	"SESSION_TTL":          "6h",
	"SHUTDOWN_TIMEOUT":     "30s",
}

// Load reads .env from the working directory if present, then the environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads envFile if it exists, then the environment.
// Variables already set in the environment win over the file.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s failed %q", envName(fe.StructField()), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// String masks secrets.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Port: %s\n", c.Port))
	sb.WriteString(fmt.Sprintf("  RedisAddr: %s\n", c.RedisAddr))
	if c.RedisPassword != "" {
		sb.WriteString("  RedisPassword: ********\n")
	} else {
		sb.WriteString("  RedisPassword: (empty)\n")
	}
	sb.WriteString(fmt.Sprintf("  RedisDB: %d\n", c.RedisDB))
	sb.WriteString(fmt.Sprintf("  MeliBaseURL: %s\n", c.MeliBaseURL))
	sb.WriteString(fmt.Sprintf("  UserAgent: %s\n", c.UserAgent))
	sb.WriteString(fmt.Sprintf("  LogLevel: %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  LogPretty: %v\n", c.LogPretty))
	sb.WriteString(fmt.Sprintf("  UpstreamTimeout: %s\n", c.UpstreamTimeout))
	sb.WriteString(fmt.Sprintf("  UpstreamMaxRetries: %d\n", c.UpstreamMaxRetries))
	sb.WriteString(fmt.Sprintf("  EnrichConcurrency: %d\n", c.EnrichConcurrency))
	sb.WriteString(fmt.Sprintf("  EnrichMaxKeywords: %d\n", c.EnrichMaxKeywords))
	sb.WriteString(fmt.Sprintf("  LookupCacheTTL: %s\n", c.LookupCacheTTL))
	sb.WriteString(fmt.Sprintf("  LookupCacheSize: %d\n", c.LookupCacheSize))
	sb.WriteString(fmt.Sprintf("  SessionTTL: %s\n", c.SessionTTL))
	sb.WriteString(fmt.Sprintf("  ShutdownTimeout: %s\n", c.ShutdownTimeout))
	return sb.String()
}

// envName maps a struct field name to its environment key.
func envName(field string) string {
	var sb strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(field[i-1])
			if prev < 'A' || prev > 'Z' {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(r)
	}
	return strings.ToUpper(sb.String())
}
