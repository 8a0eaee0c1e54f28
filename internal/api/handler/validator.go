package handler

import (
	"github.com/go-playground/validator/v10"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/pkg/validation"
)

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// A nil v gets the shared configuration from the validation package.
func NewValidator(v *validator.Validate) *echoValidator {
	if v == nil {
		v = validation.New()
	}
	return &echoValidator{v: v}
}

// Validate satisfies the echo.Validator interface. Failures come back as a
// ValidationFailed error carrying one message per field.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	fields := validation.Fields(err)
	if fields == nil {
		return err
	}
	return domain.NewValidationError("Please correct the highlighted fields", fields)
}
