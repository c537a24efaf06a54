package types

import (
	"math"
	"time"
)

// FeatureNames is the canonical feature order the regression model was
// trained on. DailyFeatureVector.Vector emits values in exactly this order,
// and the model loader rejects artifacts whose recorded feature order
// differs. Any mismatch here silently produces a plausible-looking but wrong
// prediction, so the order must never change without retraining.
var FeatureNames = []string{
	"LAT",
	"LON",
	"ACRES",
	"MONTH",
	"DAY_OF_YEAR",
	"ALLSKY_SFC_SW_DWN", // GHI, kWh/m^2/day
	"T2M",               // temperature, degrees C
}

// ForecastPoint is a single hourly weather sample from the upstream
// forecast provider. Time is hour-resolution in the forecast location's
// local timezone. TemperatureC or IrradianceWM2 is NaN when the provider
// returned null for that hour.
type ForecastPoint struct {
	Time          time.Time
	TemperatureC  float64
	IrradianceWM2 float64
}

// DailyFeatureVector is one day's worth of model input, derived from the
// hourly forecast plus the fixed training-reference coordinates. Area is
// always 1.0 because the model predicts yield per acre; actual area scaling
// happens after prediction.
type DailyFeatureVector struct {
	Date            time.Time
	Lat             float64
	Lon             float64
	Acres           float64
	Month           int
	DayOfYear       int
	IrradianceKWhM2 float64
	MeanTempC       float64
}

// Vector returns the feature values ordered per FeatureNames.
func (v DailyFeatureVector) Vector() []float64 {
	return []float64{
		v.Lat,
		v.Lon,
		v.Acres,
		float64(v.Month),
		float64(v.DayOfYear),
		v.IrradianceKWhM2,
		v.MeanTempC,
	}
}

// HasNaN reports whether any feature value is NaN or infinite.
func (v DailyFeatureVector) HasNaN() bool {
	for _, f := range v.Vector() {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
	}
	return false
}

// PredictionResult is the aggregate monthly yield estimate returned to the
// caller. EstimatedMonthlyKWh is always finite; the predictor rejects NaN
// and infinite model output before a result is produced.
type PredictionResult struct {
	EstimatedMonthlyKWh float64 `json:"estimated_monthly_kwh"`
}
