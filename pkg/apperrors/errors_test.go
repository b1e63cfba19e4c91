package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewFieldError("scheduled_time", "bad"), http.StatusBadRequest},
		{NewNotFoundError("gone"), http.StatusNotFound},
		{NewConflictError("dup"), http.StatusConflict},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewInternalError("boom", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewNotFoundError("gone")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("move: %w", NewValidationError("same"))
	assert.True(t, Is(err, ErrorTypeValidation))
	assert.False(t, Is(err, ErrorTypeNotFound))
	assert.False(t, Is(errors.New("x"), ErrorTypeValidation))
}

func TestMessage_HidesInternals(t *testing.T) {
	assert.Equal(t, "internal server error", Message(NewInternalError("query failed", errors.New("pq: secret"))))
	assert.Equal(t, "internal server error", Message(errors.New("raw")))
	assert.Equal(t, "Appointment already exists.", Message(NewConflictError("Appointment already exists.")))
}

func TestToHTTP_FieldError(t *testing.T) {
	he := ToHTTP(NewFieldError("appointment", "Appointment already exists."))
	require.Equal(t, http.StatusBadRequest, he.Code)
	body, ok := he.Message.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string][]string{"appointment": {"Appointment already exists."}}, body["errors"])
}

func TestToHTTP_PlainError(t *testing.T) {
	he := ToHTTP(NewForbiddenError("Unauthorized to access this appointment."))
	require.Equal(t, http.StatusForbidden, he.Code)
	body := he.Message.(map[string]interface{})
	assert.Equal(t, "Unauthorized to access this appointment.", body["errors"])
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := NewInternalError("ctx", cause)
	assert.ErrorIs(t, err, cause)
}
