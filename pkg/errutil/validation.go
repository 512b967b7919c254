package errutil

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidation converts validator errors into a ValidationFailed error with
// one Detail per offending field. Other errors pass through as ValidationFailed.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationFailed("invalid input", err)
	}

	details := make([]Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, Detail{
			Field:   fieldName(fe),
			Message: fe.Tag(),
		})
	}

	return ValidationFailed("invalid input", err, WithDetails(details...))
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}
