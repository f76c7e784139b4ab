package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/liamcoop/cardiorisk/risk"
)

// ErrMissingFields is wrapped by every ValidationError.
var ErrMissingFields = errors.New("missing fields")

// ValidationError lists required fields that were absent, in canonical order.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing fields: %s", strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrMissingFields
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report fields by their wire name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// null, empty and blank values read as nil so `required` rejects them
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		val, ok := field.Interface().(risk.Value)
		if !ok || !val.Filled() {
			return nil
		}
		return val.String()
	}, risk.Value{})

	return v
}

// Validate checks that every feature is present. Validation happens before
// any scoring; a *ValidationError names exactly the missing fields.
func Validate(f risk.PatientFeatures) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate features: %w", err)
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &ValidationError{Missing: missing}
}
