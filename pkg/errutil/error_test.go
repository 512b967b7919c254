package errutil

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusValidationFailed:    http.StatusBadRequest,
		StatusPolicyRejected:      http.StatusBadRequest,
		StatusTooManyRequests:     http.StatusTooManyRequests,
		StatusNotFound:            http.StatusNotFound,
		StatusGone:                http.StatusGone,
		StatusConflict:            http.StatusConflict,
		StatusUnprocessableEntity: http.StatusUnprocessableEntity,
		StatusForbidden:           http.StatusForbidden,
		StatusDependencyFailed:    http.StatusInternalServerError,
		CoreStatus("SOMETHING"):   http.StatusInternalServerError,
	}

	for code, want := range cases {
		require.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestJSONHidesInternalError(t *testing.T) {
	err := PolicyRejected("unable to complete registration", errors.New("honeypot field filled"))

	var base BaseError
	require.True(t, errors.As(err, &base))

	body := base.JSON().(map[string]interface{})["error"].(map[string]interface{})
	require.Equal(t, "unable to complete registration", body["message"])
	require.Contains(t, err.Error(), "honeypot")
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("redeem: %w", Conflict("already redeemed", nil))

	require.Equal(t, StatusConflict, CodeOf(err))
	require.True(t, Is(err, StatusConflict))
	require.False(t, Is(err, StatusGone))
	require.Equal(t, StatusUnknown, CodeOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("redis down")
	err := DependencyFailed("notification unavailable", cause)

	require.ErrorIs(t, err, cause)
}

func TestURL(t *testing.T) {
	err := ValidationFailed("invalid input", nil, WithDetails(Detail{Field: "email", Message: "required"}))

	var base BaseError
	require.True(t, errors.As(err, &base))
	require.Contains(t, base.URL(), "error_code=VALIDATION_FAILED")
	require.Contains(t, base.URL(), "details%5Bemail%5D=required")
}

func TestFromValidation(t *testing.T) {
	type input struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"required"`
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})

	err := FromValidation(v.Struct(input{Email: "nope"}))
	require.Equal(t, StatusValidationFailed, CodeOf(err))

	var base BaseError
	require.True(t, errors.As(err, &base))
	require.ElementsMatch(t, []Detail{{Field: "email", Message: "email"}, {Field: "name", Message: "required"}}, base.Details)

	require.NoError(t, FromValidation(nil))
}
