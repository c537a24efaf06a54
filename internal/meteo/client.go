package meteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"solarcast/internal/config"
	"solarcast/internal/types"
)

// hourlyTimeLayout is the timestamp format Open-Meteo uses when
// timezone=auto is requested: local wall-clock time without an offset.
const hourlyTimeLayout = "2006-01-02T15:04"

const maxForecastBodySize = 8 << 20 // 8 MB

// Client fetches hourly temperature and shortwave irradiance forecasts
// from the Open-Meteo API.
type Client struct {
	base    *baseClient
	baseURL string
	days    int
}

// NewClient builds a forecast client from configuration. The passed
// http.Client carries the request timeout; retries stay disabled unless
// MaxRetries is set.
func NewClient(cfg config.ForecastConfig, httpClient *http.Client) *Client {
	policy := DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries

	return &Client{
		base:    newBaseClient(httpClient, "open-meteo", policy, cfg.UserAgent),
		baseURL: cfg.BaseURL,
		days:    cfg.Days,
	}
}

// hourlyPayload mirrors the subset of the provider response the service
// consumes. Value arrays use pointers so provider nulls survive decoding.
type hourlyPayload struct {
	Hourly *hourlySeries `json:"hourly"`
}

type hourlySeries struct {
	Time               []string   `json:"time"`
	Temperature2M      []*float64 `json:"temperature_2m"`
	ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
}

// FetchHourly retrieves the hourly forecast for the given coordinates and
// returns one point per hour in the provider's local timezone. Null
// readings become NaN so downstream imputation can detect them.
func (c *Client) FetchHourly(ctx context.Context, lat, lon float64) ([]types.ForecastPoint, error) {
	reqURL, err := c.buildURL(lat, lon)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeForecastUnavailable, "invalid forecast provider URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeForecastUnavailable, "could not build forecast request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeForecastUnavailable,
			fmt.Sprintf("forecast provider returned %d", resp.StatusCode),
			nil,
		)
	}

	var payload hourlyPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxForecastBodySize)).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeForecastUnavailable, "forecast provider returned malformed JSON", err)
	}

	return pointsFromPayload(payload)
}

func (c *Client) buildURL(lat, lon float64) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("hourly", "temperature_2m,shortwave_radiation")
	q.Set("forecast_days", strconv.Itoa(c.days))
	q.Set("timezone", "auto")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// pointsFromPayload validates the parallel hourly arrays and converts
// them into forecast points. A missing hourly block, missing series, or
// mismatched array lengths are all provider contract violations.
func pointsFromPayload(payload hourlyPayload) ([]types.ForecastPoint, error) {
	h := payload.Hourly
	if h == nil {
		return nil, types.NewAppError(types.ErrCodeForecastUnavailable, "forecast response is missing the hourly block", nil)
	}
	if len(h.Time) == 0 {
		return nil, types.NewAppError(types.ErrCodeForecastUnavailable, "forecast response contains no hourly timestamps", nil)
	}
	if len(h.Temperature2M) != len(h.Time) || len(h.ShortwaveRadiation) != len(h.Time) {
		return nil, types.NewAppError(
			types.ErrCodeForecastUnavailable,
			fmt.Sprintf("forecast series lengths disagree: %d timestamps, %d temperatures, %d irradiance readings",
				len(h.Time), len(h.Temperature2M), len(h.ShortwaveRadiation)),
			nil,
		)
	}

	points := make([]types.ForecastPoint, 0, len(h.Time))
	for i, raw := range h.Time {
		ts, err := time.Parse(hourlyTimeLayout, raw)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeForecastUnavailable,
				fmt.Sprintf("forecast timestamp %q is not parseable", raw),
				err,
			)
		}
		points = append(points, types.ForecastPoint{
			Time:          ts,
			TemperatureC:  deref(h.Temperature2M[i]),
			IrradianceWM2: deref(h.ShortwaveRadiation[i]),
		})
	}

	return points, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
