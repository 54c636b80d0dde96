// Package validator wraps the go-playground/validator library behind a small
// API with standardized error formatting. Structs declare their rules with
// `validate:"..."` tags and callers receive a multi-error chain rooted at
// ErrValidationFailed when any rule is violated.
package validator

import (
	"errors"
	"fmt"

	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is the first error in the chain returned when a struct
// fails validation. Use errors.Is to detect validation failures regardless of
// how many individual field errors follow it.
var ErrValidationFailed = errors.New("struct validation failed")

// validator is the singleton go-playground instance, created on package load.
var validator *gvalidator.Validate

// errStringFormat renders one field violation, e.g.
// "'SubscriptionID': value '' does not meet the requirements for the 'required' validation".
const errStringFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

func init() {
	validator = gvalidator.New(gvalidator.WithRequiredStructEnabled())
}

// formatError converts raw validator output into a readable multi-error chain.
// Non-validation errors pass through untouched.
func formatError(err error) error {
	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, validationErr := range validationErrors {
		err := fmt.Errorf(errStringFormat,
			validationErr.Field(),
			validationErr.Value(),
			validationErr.Tag(),
		)

		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate checks the struct against its validation tags. It returns nil when
// every rule passes, or a combined error starting with ErrValidationFailed and
// containing one formatted entry per failing field.
func Validate(v any) error {
	if err := validator.Struct(v); err != nil {
		return formatError(err)
	}

	return nil
}
