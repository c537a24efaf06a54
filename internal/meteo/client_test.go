package meteo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcast/internal/config"
	"solarcast/internal/types"
)

func newTestClient(t *testing.T, server *httptest.Server, days int) *Client {
	t.Helper()
	cfg := config.ForecastConfig{
		BaseURL:   server.URL,
		Days:      days,
		UserAgent: "solarcast-test/1.0",
	}
	return NewClient(cfg, server.Client())
}

func TestFetchHourlyHappyPath(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"latitude":      q.Get("latitude"),
			"longitude":     q.Get("longitude"),
			"hourly":        q.Get("hourly"),
			"forecast_days": q.Get("forecast_days"),
			"timezone":      q.Get("timezone"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"hourly": {
				"time": ["2026-08-31T00:00", "2026-08-31T01:00", "2026-08-31T02:00"],
				"temperature_2m": [21.5, 21.1, null],
				"shortwave_radiation": [0.0, null, 12.5]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	points, err := client.FetchHourly(context.Background(), 18.5204, 73.8567)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "18.5204", gotQuery["latitude"])
	assert.Equal(t, "73.8567", gotQuery["longitude"])
	assert.Equal(t, "temperature_2m,shortwave_radiation", gotQuery["hourly"])
	assert.Equal(t, "7", gotQuery["forecast_days"])
	assert.Equal(t, "auto", gotQuery["timezone"])

	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), points[0].Time)
	assert.Equal(t, 21.5, points[0].TemperatureC)
	assert.Equal(t, 0.0, points[0].IrradianceWM2)

	// Provider nulls must surface as NaN, not zero.
	assert.True(t, math.IsNaN(points[1].IrradianceWM2))
	assert.True(t, math.IsNaN(points[2].TemperatureC))
	assert.Equal(t, 12.5, points[2].IrradianceWM2)
}

func TestFetchHourlyMissingHourlyBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude": 18.52, "longitude": 73.86}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	_, err := client.FetchHourly(context.Background(), 18.52, 73.86)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeForecastUnavailable, appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus())
}

func TestFetchHourlySeriesLengthMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"hourly": {
				"time": ["2026-08-31T00:00", "2026-08-31T01:00"],
				"temperature_2m": [21.5],
				"shortwave_radiation": [0.0, 1.0]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	_, err := client.FetchHourly(context.Background(), 18.52, 73.86)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeForecastUnavailable, appErr.Code)
}

func TestFetchHourlyMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly": {`))
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	_, err := client.FetchHourly(context.Background(), 18.52, 73.86)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeForecastUnavailable, appErr.Code)
}

func TestFetchHourlyBadTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"hourly": {
				"time": ["not-a-timestamp"],
				"temperature_2m": [21.5],
				"shortwave_radiation": [0.0]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	_, err := client.FetchHourly(context.Background(), 18.52, 73.86)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeForecastUnavailable, appErr.Code)
}

func TestFetchHourlyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	_, err := client.FetchHourly(context.Background(), 18.52, 73.86)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeForecastUnavailable, appErr.Code)
}

func TestFetchHourlyRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	_, err := client.FetchHourly(context.Background(), 18.52, 73.86)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus())
}

func TestFetchHourlySingleAttemptByDefault(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server, 7)
	_, err := client.FetchHourly(context.Background(), 18.52, 73.86)
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestFetchHourlyRetriesWhenEnabled(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{
			"hourly": {
				"time": ["2026-08-31T00:00"],
				"temperature_2m": [21.5],
				"shortwave_radiation": [0.0]
			}
		}`))
	}))
	defer server.Close()

	cfg := config.ForecastConfig{
		BaseURL:    server.URL,
		Days:       7,
		MaxRetries: 3,
		UserAgent:  "solarcast-test/1.0",
	}
	client := NewClient(cfg, server.Client())
	client.base.sleepFn = func(time.Duration) {}

	points, err := client.FetchHourly(context.Background(), 18.52, 73.86)
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, 3, attempts)
}

func TestComputeBackoffHonorsRetryAfter(t *testing.T) {
	base := newBaseClient(http.DefaultClient, "test", RetryPolicy{
		MaxRetries: 2,
		MinWait:    100 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}, "")

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "2")
	assert.Equal(t, 2*time.Second, base.computeBackoff(0, resp))

	// Retry-After beyond MaxWait is clamped.
	resp.Header.Set("Retry-After", "60")
	assert.Equal(t, 5*time.Second, base.computeBackoff(0, resp))
}

func TestComputeBackoffJitterBounds(t *testing.T) {
	base := newBaseClient(http.DefaultClient, "test", RetryPolicy{
		MaxRetries: 5,
		MinWait:    100 * time.Millisecond,
		MaxWait:    2 * time.Second,
	}, "")

	for attempt := 0; attempt < 6; attempt++ {
		wait := base.computeBackoff(attempt, nil)
		assert.GreaterOrEqual(t, wait, 100*time.Millisecond)
		assert.LessOrEqual(t, wait, 2*time.Second)
	}
}
