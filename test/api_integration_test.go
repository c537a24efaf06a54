//go:build integration

// Package test contains integration tests that exercise the full API stack:
// a model artifact trained and saved to disk, the Open-Meteo client pointed
// at a stub provider, and the real router with its middleware chain. They
// are skipped during `go test ./...` and run explicitly with:
//
//	go test -v -tags integration ./test/
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcast/internal/api/handlers"
	"solarcast/internal/config"
	"solarcast/internal/core"
	"solarcast/internal/dataset"
	"solarcast/internal/features"
	"solarcast/internal/meteo"
	"solarcast/internal/model"
	"solarcast/internal/predict"
)

// trainArtifact fits a small forest on synthetic data and round-trips it
// through the artifact format, the same path the production binaries use.
func trainArtifact(t *testing.T) *model.RandomForest {
	t.Helper()

	rows := dataset.GenerateSynthetic(dataset.SynthConfig{StartYear: 2022, EndYear: 2023, Seed: 42})
	samples := make([][]float64, len(rows))
	targets := make([]float64, len(rows))
	for i, r := range rows {
		samples[i] = r.Features()
		targets[i] = r.YieldKWhPerAcre
	}

	cfg := model.TrainConfig{
		NumTrees:        20,
		MaxDepth:        8,
		MinSamplesSplit: 10,
		MinSamplesLeaf:  5,
		Seed:            42,
		ReferenceLat:    dataset.PuneLat,
		ReferenceLon:    dataset.PuneLon,
	}
	forest, err := model.Fit(samples, targets, cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "solar_model.json.zst")
	require.NoError(t, model.Save(forest, path))
	loaded, err := model.Load(path)
	require.NoError(t, err)
	return loaded
}

// stubProvider serves a deterministic 7-day hourly forecast.
func stubProvider(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
		var times []string
		var temps, irradiance []float64
		for h := 0; h < 7*24; h++ {
			ts := start.Add(time.Duration(h) * time.Hour)
			times = append(times, ts.Format("2006-01-02T15:04"))
			temps = append(temps, 27.0)
			if hour := ts.Hour(); hour >= 6 && hour < 18 {
				irradiance = append(irradiance, 450.0)
			} else {
				irradiance = append(irradiance, 0.0)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"hourly": map[string]any{
				"time":                times,
				"temperature_2m":      temps,
				"shortwave_radiation": irradiance,
			},
		})
	}))
}

func newStack(t *testing.T, forest *model.RandomForest, providerURL string) http.Handler {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	cfg := &config.Config{
		Environment: "local",
		Service:     "solarcast",
		Server:      config.ServerConfig{RequestTimeout: 10 * time.Second},
		Security:    config.SecurityConfig{CorsAllowedOrigins: []string{"*"}},
	}

	forecastCfg := config.ForecastConfig{
		BaseURL:   providerURL,
		Days:      7,
		UserAgent: "solarcast-integration/1.0",
	}
	client := meteo.NewClient(forecastCfg, &http.Client{Timeout: 5 * time.Second})

	var predictor model.Predictor
	var refLat, refLon float64
	if forest != nil {
		predictor = forest
		refLat, refLon = forest.ReferenceLat, forest.ReferenceLon
	}
	builder := features.NewBuilder(logger, refLat, refLon)
	service := predict.NewService(client, builder, predictor, logger)

	server, err := core.NewServer(cfg, logger)
	require.NoError(t, err)
	handler := handlers.NewPredictHandler(service, server.Validator, logger)
	server.V1RouteRegistrars = []func(chi.Router){handler.RegisterRoutes}
	server.MountRoutes()
	return server.Handler()
}

func postPredict(t *testing.T, stack http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	stack.ServeHTTP(rec, req)
	return rec
}

func TestPredictEndToEnd(t *testing.T) {
	forest := trainArtifact(t)
	provider := stubProvider(t)
	defer provider.Close()

	stack := newStack(t, forest, provider.URL)

	rec := postPredict(t, stack, `{"latitude": 18.5204, "longitude": 73.8567, "acres": 2.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			EstimatedMonthlyKWh float64 `json:"estimated_monthly_kwh"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp.Data.EstimatedMonthlyKWh, 0.0)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestPredictScalesWithAcreage(t *testing.T) {
	forest := trainArtifact(t)
	provider := stubProvider(t)
	defer provider.Close()

	stack := newStack(t, forest, provider.URL)

	estimate := func(acres float64) float64 {
		rec := postPredict(t, stack, fmt.Sprintf(`{"latitude": 18.5204, "longitude": 73.8567, "acres": %g}`, acres))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Data struct {
				EstimatedMonthlyKWh float64 `json:"estimated_monthly_kwh"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.Data.EstimatedMonthlyKWh
	}

	one := estimate(1.0)
	four := estimate(4.0)
	assert.InDelta(t, one*4, four, 1e-6)
}

func TestPredictProviderOutage(t *testing.T) {
	forest := trainArtifact(t)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer provider.Close()

	stack := newStack(t, forest, provider.URL)

	rec := postPredict(t, stack, `{"latitude": 18.5204, "longitude": 73.8567, "acres": 1}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream_forecast_unavailable")
}

func TestPredictWithoutModel(t *testing.T) {
	provider := stubProvider(t)
	defer provider.Close()

	stack := newStack(t, nil, provider.URL)

	rec := postPredict(t, stack, `{"latitude": 18.5204, "longitude": 73.8567, "acres": 1}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "model_unavailable")
}
