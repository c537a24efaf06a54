// Package config defines the global configuration for the solarcast service.
// Configuration is loaded once at process initialization and is immutable
// thereafter, following 12-Factor principles: values come from the OS
// environment, optionally seeded from a .env file for local development.
//
// Any missing required value or invalid format fails the process immediately
// on startup (fail fast).
package config

import "time"

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"solarcast"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Forecast ForecastConfig
	Model    ModelConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// ForecastConfig holds upstream weather provider settings.
type ForecastConfig struct {
	BaseURL string `envconfig:"FORECAST_BASE_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"required,url"`

	// Timeout bounds the whole outbound fetch; expiry is a recoverable
	// upstream failure, never a crash.
	Timeout time.Duration `envconfig:"FORECAST_TIMEOUT" default:"15s"`

	// Days is the forecast horizon requested from the provider.
	Days int `envconfig:"FORECAST_DAYS" default:"7" validate:"min=1,max=16"`

	// MaxRetries controls the resilient HTTP client. The default of 0
	// preserves single-attempt semantics: a failed fetch fails the request.
	MaxRetries int    `envconfig:"FORECAST_MAX_RETRIES" default:"0" validate:"min=0,max=5"`
	UserAgent  string `envconfig:"FORECAST_USER_AGENT" default:"solarcast/1.0"`
}

// ModelConfig holds the serialized model artifact location.
type ModelConfig struct {
	Path string `envconfig:"MODEL_PATH" default:"solar_model.json.zst" validate:"required"`
}

// SecurityConfig holds CORS settings for browser clients.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}
