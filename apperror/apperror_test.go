package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError("bad", nil), http.StatusBadRequest},
		{NewBadRequestError("bad", nil), http.StatusBadRequest},
		{NewConflictError("taken", nil), http.StatusConflict},
		{NewNotFoundError("gone", nil), http.StatusNotFound},
		{NewUnauthenticatedError("who", nil), http.StatusUnauthorized},
		{NewUnauthorizedError("nope", nil), http.StatusUnauthorized},
		{NewStorageError("db", nil), http.StatusInternalServerError},
		{NewAppError(UnknownError, "?", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Type.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.StatusCode())
		})
	}
}

func TestToResponseEnvelope(t *testing.T) {
	err := NewUnauthorizedError("Unauthorized", errors.New("requester is not a party"))

	raw, mErr := json.Marshal(err.ToResponse())
	require.NoError(t, mErr)
	assert.JSONEq(t, `{"error":{"message":"Unauthorized","status":401}}`, string(raw))
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("loading message: %w", NewStorageError("failed to load message", cause))

	assert.True(t, IsStorageError(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")

	ae, ok := FromError(err)
	require.True(t, ok)
	assert.Equal(t, "failed to load message", ae.Message)
}

func TestFromErrorPlain(t *testing.T) {
	_, ok := FromError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = FromError(nil)
	assert.False(t, ok)
}
