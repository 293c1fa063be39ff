// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sage/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Retrieval: top-k, minimum score threshold
//   - Learning: entry weight bounds and feedback learning rate
//   - Server: CORS origins, proxy trust, rate limiting, upload size cap
//   - Archive: optional PostgreSQL URL for durable feedback storage
//   - Refiner: optional Gemini reply refinement
//   - Tracing: OTLP exporter settings (see tracing.go in observability)
//
// Security: sensitive data (database URL credentials, API keys) is never
// logged; MarshalJSON masks it explicitly.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidTopK indicates retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top_k")

	// ErrInvalidMinScore indicates the retrieval score threshold is out of range.
	ErrInvalidMinScore = errors.New("invalid retrieval min_score")

	// ErrInvalidWeightBounds indicates the entry weight bounds are inconsistent.
	ErrInvalidWeightBounds = errors.New("invalid weight bounds")

	// ErrInvalidLearningRate indicates the feedback learning rate is out of range.
	ErrInvalidLearningRate = errors.New("invalid learning_rate")

	// ErrInvalidUploadLimit indicates the upload size cap is out of range.
	ErrInvalidUploadLimit = errors.New("invalid max_upload_bytes")

	// ErrInvalidRateLimit indicates the API rate limit settings are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrMissingRefinerKey indicates refinement is enabled without an API key.
	ErrMissingRefinerKey = errors.New("missing refiner API key")

	// ErrInvalidRefinerModel indicates refinement is enabled without a model.
	ErrInvalidRefinerModel = errors.New("invalid refiner model")
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, URLs with
// credentials), update MarshalJSON.
type Config struct {
	// Retrieval configuration
	TopK     int     `mapstructure:"top_k" json:"top_k"`
	MinScore float64 `mapstructure:"min_score" json:"min_score"`

	// Learning configuration
	WeightMin     float64 `mapstructure:"weight_min" json:"weight_min"`
	WeightMax     float64 `mapstructure:"weight_max" json:"weight_max"`
	WeightNeutral float64 `mapstructure:"weight_neutral" json:"weight_neutral"`
	LearningRate  float64 `mapstructure:"learning_rate" json:"learning_rate"`

	// Dataset upload cap in bytes
	MaxUploadBytes int `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`

	// Server configuration
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy     bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Archive configuration. Empty disables the durable archive.
	DatabaseURL string `mapstructure:"database_url" json:"database_url"` // SENSITIVE: masked in MarshalJSON

	// Refiner configuration
	RefinerEnabled bool   `mapstructure:"refiner_enabled" json:"refiner_enabled"`
	RefinerModel   string `mapstructure:"refiner_model" json:"refiner_model"`
	RefinerAPIKey  string `mapstructure:"refiner_api_key" json:"refiner_api_key"` // SENSITIVE: masked in MarshalJSON

	// Tracing configuration
	TracingEnabled bool   `mapstructure:"tracing_enabled" json:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment    string `mapstructure:"environment" json:"environment"`
	ServiceName    string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sage")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Fail-fast before anything is wired
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Retrieval defaults: low threshold favors recall, the composer's
	// low-confidence phrasing covers marginal matches
	viper.SetDefault("top_k", 3)
	viper.SetDefault("min_score", 0.05)

	// Learning defaults
	viper.SetDefault("weight_min", 0.1)
	viper.SetDefault("weight_max", 2.0)
	viper.SetDefault("weight_neutral", 1.0)
	viper.SetDefault("learning_rate", 0.1)

	// Upload cap
	viper.SetDefault("max_upload_bytes", 5<<20)

	// Server defaults
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 20)

	// Refiner defaults (off until a key and model are configured)
	viper.SetDefault("refiner_enabled", false)
	viper.SetDefault("refiner_model", "gemini-2.5-flash")

	// Tracing defaults
	viper.SetDefault("tracing_enabled", false)
	viper.SetDefault("otlp_endpoint", "localhost:4318")
	viper.SetDefault("environment", "dev")
	viper.SetDefault("service_name", "sage")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a bug in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Archive database (cloud-deployment style single URL)
	mustBind("database_url", "DATABASE_URL")

	// Refiner secrets and toggles
	mustBind("refiner_api_key", "GEMINI_API_KEY")
	mustBind("refiner_enabled", "SAGE_REFINER_ENABLED")
	mustBind("refiner_model", "SAGE_REFINER_MODEL")

	// Server overrides
	mustBind("cors_origins", "SAGE_CORS_ORIGINS")
	mustBind("trust_proxy", "SAGE_TRUST_PROXY")

	// Tracing
	mustBind("tracing_enabled", "SAGE_TRACING_ENABLED")
	mustBind("otlp_endpoint", "SAGE_OTLP_ENDPOINT")
	mustBind("environment", "SAGE_ENVIRONMENT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matching against real secret fragments.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters for secrets longer than 8 chars; fully
// masks short ones to prevent substring matching.
//
// THREAT MODEL: this defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - DatabaseURL (may embed credentials)
//   - RefinerAPIKey
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.DatabaseURL = maskSecret(a.DatabaseURL)
	a.RefinerAPIKey = maskSecret(a.RefinerAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
