package apperror

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// MapValidationError turns the first binding failure into an AppError with the
// json field name in the message.
func MapValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		switch e.Tag() {
		case "required":
			return New(CodeInvalidInput, fmt.Sprintf("%s is required", e.Field()), http.StatusBadRequest)
		default:
			return New(CodeInvalidInput, fmt.Sprintf("%s is invalid", e.Field()), http.StatusBadRequest)
		}
	}

	return ErrInvalidInput
}
