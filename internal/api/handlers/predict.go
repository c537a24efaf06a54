// Package handlers contains the versioned HTTP handlers of the API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"solarcast/internal/core"
	"solarcast/internal/types"
)

// PredictionService is the capability the handler needs from the
// estimation pipeline.
type PredictionService interface {
	EstimateMonthly(ctx context.Context, lat, lon, acres float64) (types.PredictionResult, error)
}

// PredictHandler exposes the yield estimation endpoint.
type PredictHandler struct {
	service   PredictionService
	validator *core.Validator
	logger    *slog.Logger
}

func NewPredictHandler(service PredictionService, validator *core.Validator, logger *slog.Logger) *PredictHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictHandler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the handler under the given router group.
func (h *PredictHandler) RegisterRoutes(r chi.Router) {
	r.Post("/predict", h.handlePredict)
}

// predictRequest uses pointer fields so a missing key is distinguishable
// from a legitimate zero value (latitude 0 is on the equator, not absent).
type predictRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Acres     *float64 `json:"acres" validate:"required,gt=0"`
}

var predictFieldCodes = map[string]types.ErrorCode{
	"Latitude":  types.ErrCodeValidationInvalidLat,
	"Longitude": types.ErrCodeValidationInvalidLon,
	"Acres":     types.ErrCodeValidationInvalidAcres,
}

func (h *PredictHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStructWithCodes(&req, predictFieldCodes); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.service.EstimateMonthly(r.Context(), *req.Latitude, *req.Longitude, *req.Acres)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "yield estimation failed",
			slog.String("error", err.Error()),
			slog.Float64("lat", *req.Latitude),
			slog.Float64("lon", *req.Longitude),
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}
