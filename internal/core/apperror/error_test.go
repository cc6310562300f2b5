package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReject_StatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
		wantHTTP int
	}{
		{http.StatusNotFound, CodeNotFound, http.StatusNotFound},
		{http.StatusConflict, CodeConflict, http.StatusConflict},
		{http.StatusBadRequest, CodeBusinessRule, http.StatusBadRequest},
		{http.StatusInternalServerError, CodeBusinessRule, http.StatusBadRequest},
		{0, CodeBusinessRule, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := Reject(tt.status, "nope")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantHTTP, err.HTTPStatus)
			assert.Equal(t, "nope", err.Message)
		})
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	base := NewNotFound("post", 5)
	wrapped := fmt.Errorf("delete post: %w", base)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, appErr)
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestNewPersistence_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPersistence(cause)

	assert.Equal(t, CodeDatabase, err.Code)
	assert.Equal(t, "Database error", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestNewConfig(t *testing.T) {
	err := NewConfig("posts", "table is required")
	assert.True(t, IsConfig(err))
	assert.Contains(t, err.Error(), `"posts"`)
}
