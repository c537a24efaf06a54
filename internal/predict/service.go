// Package predict orchestrates the yield estimation pipeline: forecast
// fetch, daily feature building, model inference, and monthly scaling.
package predict

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"solarcast/internal/model"
	"solarcast/internal/types"
)

// avgDaysPerMonth converts an average daily yield into a monthly figure.
// The forecast horizon is shorter than a month, so the pipeline
// extrapolates a representative daily rate instead of summing forecast
// days.
const avgDaysPerMonth = 30.4

// ForecastFetcher retrieves hourly forecast points for a site.
type ForecastFetcher interface {
	FetchHourly(ctx context.Context, lat, lon float64) ([]types.ForecastPoint, error)
}

// FeatureBuilder turns hourly points into daily feature vectors.
type FeatureBuilder interface {
	BuildDaily(points []types.ForecastPoint) ([]types.DailyFeatureVector, error)
}

// Service estimates monthly solar yield for a site and panel area. The
// model is optional at construction: when nil, every estimate fails with
// a model-unavailable error so the process can start degraded instead of
// crashing.
type Service struct {
	forecasts ForecastFetcher
	features  FeatureBuilder
	model     model.Predictor
	logger    *slog.Logger
}

func NewService(forecasts ForecastFetcher, features FeatureBuilder, predictor model.Predictor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		forecasts: forecasts,
		features:  features,
		model:     predictor,
		logger:    logger,
	}
}

// EstimateMonthly runs the full pipeline for the given site. Each daily
// per-unit-area prediction is scaled by the requested acreage, averaged
// across the forecast horizon, and extrapolated to a month.
func (s *Service) EstimateMonthly(ctx context.Context, lat, lon, acres float64) (types.PredictionResult, error) {
	var zero types.PredictionResult

	if s.model == nil {
		return zero, types.NewAppError(types.ErrCodeModelUnavailable, "prediction model is not loaded", nil)
	}

	points, err := s.forecasts.FetchHourly(ctx, lat, lon)
	if err != nil {
		return zero, err
	}

	vectors, err := s.features.BuildDaily(points)
	if err != nil {
		return zero, err
	}
	if len(vectors) == 0 {
		return zero, types.NewAppError(types.ErrCodeInvalidPrediction, "no daily feature vectors to predict on", nil)
	}

	sum := 0.0
	for _, v := range vectors {
		daily, err := s.model.Predict(v.Vector())
		if err != nil {
			return zero, types.NewAppError(types.ErrCodeInvalidPrediction, "model prediction failed", err)
		}
		sum += daily * acres
	}

	avgDaily := sum / float64(len(vectors))
	monthly := avgDaily * avgDaysPerMonth

	if math.IsNaN(monthly) || math.IsInf(monthly, 0) {
		return zero, types.NewAppError(
			types.ErrCodeInvalidPrediction,
			fmt.Sprintf("model produced a non-finite monthly estimate (%v)", monthly),
			nil,
		)
	}

	s.logger.DebugContext(ctx, "estimated monthly yield",
		slog.Float64("lat", lat),
		slog.Float64("lon", lon),
		slog.Float64("acres", acres),
		slog.Int("forecast_days", len(vectors)),
		slog.Float64("estimated_monthly_kwh", monthly),
	)

	return types.PredictionResult{EstimatedMonthlyKWh: monthly}, nil
}
