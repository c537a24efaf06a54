package core

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"solarcast/internal/types"
)

// Validator wraps go-playground/validator and translates validation failures
// into the AppError taxonomy so handlers return consistent 400 responses.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(),
		logger:   logger,
	}
}

// ValidateStruct validates dst against its struct tags. On failure it
// returns a *types.AppError listing the first offending field and rule.
func (v *Validator) ValidateStruct(dst any) error {
	return v.ValidateStructWithCodes(dst, nil)
}

// ValidateStructWithCodes validates dst and, when a field listed in codes
// fails, returns the mapped error code instead of the generic one. This
// lets handlers expose per-field validation codes without reimplementing
// the translation.
func (v *Validator) ValidateStructWithCodes(dst any, codes map[string]types.ErrorCode) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	if invalid, ok := err.(validator.ValidationErrors); ok && len(invalid) > 0 {
		fe := invalid[0]
		code := types.ErrCodeValidationMissingField
		if mapped, ok := codes[fe.Field()]; ok && fe.Tag() != "required" {
			code = mapped
		}
		return types.NewAppErrorWithDetails(
			code,
			"request validation failed",
			err,
			map[string]any{
				"field": fe.Field(),
				"rule":  fe.Tag(),
			},
		)
	}

	return types.NewAppError(
		types.ErrCodeValidationMissingField,
		"request validation failed",
		err,
	)
}
