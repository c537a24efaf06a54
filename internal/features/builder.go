// Package features turns hourly forecast points into the daily feature
// vectors the yield model consumes.
package features

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"solarcast/internal/types"
)

// wattHoursPerKilowattHour converts summed W/m2 hourly readings into
// kWh/m2 per day. Each hourly reading contributes one watt-hour per watt.
const wattHoursPerKilowattHour = 1000.0

// Builder aggregates hourly forecasts into one feature vector per
// calendar date, stamped with the model's training reference so the
// irradiance and temperature signals stay comparable to the training
// distribution regardless of the requested site.
type Builder struct {
	logger       *slog.Logger
	referenceLat float64
	referenceLon float64
}

// NewBuilder constructs a Builder. The reference coordinates come from
// the loaded model artifact, not from the caller's request.
func NewBuilder(logger *slog.Logger, referenceLat, referenceLon float64) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger:       logger,
		referenceLat: referenceLat,
		referenceLon: referenceLon,
	}
}

// BuildDaily groups the hourly points by their local calendar date and
// produces one DailyFeatureVector per distinct date, ordered by date.
// Irradiance sums W/m2 readings and converts to kWh/m2; temperature is
// the daily arithmetic mean. Days where a field has no usable readings
// are imputed with the batch mean across the other days, so every
// returned vector is finite.
func (b *Builder) BuildDaily(points []types.ForecastPoint) ([]types.DailyFeatureVector, error) {
	if len(points) == 0 {
		return nil, types.NewAppError(types.ErrCodeFeatureBuildFailed, "no forecast points to aggregate", nil)
	}

	type dayAccum struct {
		date      time.Time
		ghiSum    float64
		tempSum   float64
		ghiCount  int
		tempCount int
	}

	byDate := make(map[string]*dayAccum)
	for _, p := range points {
		key := p.Time.Format("2006-01-02")
		acc, ok := byDate[key]
		if !ok {
			y, m, d := p.Time.Date()
			acc = &dayAccum{date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
			byDate[key] = acc
		}
		// Missing hourly readings are skipped so a day with partial data
		// still aggregates over what the provider did return.
		if !math.IsNaN(p.IrradianceWM2) {
			acc.ghiSum += p.IrradianceWM2
			acc.ghiCount++
		}
		if !math.IsNaN(p.TemperatureC) {
			acc.tempSum += p.TemperatureC
			acc.tempCount++
		}
	}

	days := make([]*dayAccum, 0, len(byDate))
	for _, acc := range byDate {
		days = append(days, acc)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })

	vectors := make([]types.DailyFeatureVector, 0, len(days))
	for _, acc := range days {
		// A day with zero usable readings for a field gets NaN here and
		// is backfilled from the batch mean below.
		ghi := math.NaN()
		if acc.ghiCount > 0 {
			ghi = acc.ghiSum / wattHoursPerKilowattHour
		}
		temp := math.NaN()
		if acc.tempCount > 0 {
			temp = acc.tempSum / float64(acc.tempCount)
		}

		vectors = append(vectors, types.DailyFeatureVector{
			Date:            acc.date,
			Lat:             b.referenceLat,
			Lon:             b.referenceLon,
			Acres:           1.0,
			Month:           int(acc.date.Month()),
			DayOfYear:       acc.date.YearDay(),
			IrradianceKWhM2: ghi,
			MeanTempC:       temp,
		})
	}

	b.imputeMissing(vectors)

	for _, v := range vectors {
		if v.HasNaN() || math.IsInf(v.IrradianceKWhM2, 0) || math.IsInf(v.MeanTempC, 0) {
			return nil, types.NewAppError(types.ErrCodeFeatureBuildFailed, "feature vector contains non-finite values after imputation", nil)
		}
	}

	return vectors, nil
}

// imputeMissing replaces NaN daily aggregates with the mean of the
// finite values across the batch, falling back to zero when a field is
// missing on every day.
func (b *Builder) imputeMissing(vectors []types.DailyFeatureVector) {
	ghiMean, ghiMissing := batchMean(vectors, func(v types.DailyFeatureVector) float64 { return v.IrradianceKWhM2 })
	tempMean, tempMissing := batchMean(vectors, func(v types.DailyFeatureVector) float64 { return v.MeanTempC })

	for i := range vectors {
		if math.IsNaN(vectors[i].IrradianceKWhM2) {
			vectors[i].IrradianceKWhM2 = ghiMean
		}
		if math.IsNaN(vectors[i].MeanTempC) {
			vectors[i].MeanTempC = tempMean
		}
	}

	if ghiMissing > 0 || tempMissing > 0 {
		b.logger.Warn("imputed missing daily aggregates",
			slog.Int("days_missing_irradiance", ghiMissing),
			slog.Int("days_missing_temperature", tempMissing),
			slog.Float64("irradiance_fill", ghiMean),
			slog.Float64("temperature_fill", tempMean),
		)
	}
}

// batchMean returns the mean of the finite values and the count of NaN
// entries. With no finite values it returns 0.
func batchMean(vectors []types.DailyFeatureVector, field func(types.DailyFeatureVector) float64) (float64, int) {
	sum := 0.0
	finite := 0
	missing := 0
	for _, v := range vectors {
		val := field(v)
		if math.IsNaN(val) {
			missing++
			continue
		}
		sum += val
		finite++
	}
	if finite == 0 {
		return 0, missing
	}
	return sum / float64(finite), missing
}
