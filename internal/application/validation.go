package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roomline/service-booking/pkg/domain"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		default:
			return name
		}
	})
	return v
}

// validateStruct runs tag validation and folds failures into a single
// VALIDATION error whose details list every field.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return domain.NewValidationError(err.Error())
	}

	fields := make([]FieldError, 0, len(validationErrs))
	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msg := translateFieldError(fe)
		fields = append(fields, FieldError{Field: fe.Field(), Message: msg})
		messages = append(messages, msg)
	}

	de := domain.NewValidationError(strings.Join(messages, "; "))
	de.Details = fields
	return de
}

func translateFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must match layout %s", fe.Field(), fe.Param())
	default:
		return fe.Error()
	}
}
