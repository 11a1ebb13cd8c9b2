package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/aussiebroadwan/siteauth/pkg/httpx"
	"github.com/go-playground/validator/v10"
)

// errValidation marks request bodies that failed decoding or validation.
var errValidation = errors.New("validation failed")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest reads the JSON body into dst and validates it. Returned
// errors wrap errValidation and carry a message fit for the client.
func decodeRequest(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return fmt.Errorf("%w: %v", errValidation, err)
	}

	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%w: %s", errValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", errValidation, err)
	}
	return nil
}

// validationMessage strips the sentinel prefix.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), errValidation.Error()+": ")
}

// fieldError converts a single ValidationError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "nefield":
		return field + " must differ from the current password"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
