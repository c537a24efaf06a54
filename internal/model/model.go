// Package model implements loading, inference, and training for the solar
// yield regression model. The serving path treats the model as an opaque
// capability (Predictor) so any regressor -- or a test stub -- can satisfy
// the predictor contract.
package model

// Predictor is the capability contract the prediction service depends on.
// Predict maps one feature vector (ordered per types.FeatureNames) to a
// per-acre daily yield estimate in kWh.
type Predictor interface {
	Predict(features []float64) (float64, error)
}

// PredictorFunc adapts a plain function to the Predictor interface. Used by
// tests to substitute constant or recording stubs.
type PredictorFunc func(features []float64) (float64, error)

// Predict implements Predictor.
func (f PredictorFunc) Predict(features []float64) (float64, error) {
	return f(features)
}
