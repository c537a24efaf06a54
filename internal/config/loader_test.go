package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "solarcast", cfg.Service)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 29*time.Second, cfg.Server.RequestTimeout)

	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.Forecast.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Forecast.Timeout)
	assert.Equal(t, 7, cfg.Forecast.Days)
	assert.Equal(t, 0, cfg.Forecast.MaxRetries)

	assert.Equal(t, "solar_model.json.zst", cfg.Model.Path)
	assert.Equal(t, []string{"*"}, cfg.Security.CorsAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("FORECAST_DAYS", "14")
	t.Setenv("FORECAST_MAX_RETRIES", "2")
	t.Setenv("MODEL_PATH", "/srv/models/forest.json.zst")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 14, cfg.Forecast.Days)
	assert.Equal(t, 2, cfg.Forecast.MaxRetries)
	assert.Equal(t, "/srv/models/forest.json.zst", cfg.Model.Path)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown environment":  {"APP_ENV", "production-ish"},
		"forecast days high":   {"FORECAST_DAYS", "30"},
		"forecast days low":    {"FORECAST_DAYS", "0"},
		"retries out of range": {"FORECAST_MAX_RETRIES", "99"},
		"bad base url":         {"FORECAST_BASE_URL", "not a url"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, ErrValidation, cfgErr.Type)
		})
	}
}

func TestLoadRejectsUnparseableValues(t *testing.T) {
	t.Setenv("FORECAST_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrParsing, cfgErr.Type)
}
