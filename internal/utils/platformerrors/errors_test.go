package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      int
	}{
		{ErrorTypeRejectedInput, http.StatusBadRequest},
		{ErrorTypeNotFound, http.StatusNotFound},
		{ErrorTypeStorageFailure, http.StatusInternalServerError},
		{ErrorTypeDeletionFailed, http.StatusInternalServerError},
		{ErrorTypeStoreUnavailable, http.StatusServiceUnavailable},
		{ErrorTypeInternal, http.StatusInternalServerError},
		{ErrorType("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorTypeToHTTPStatus(tt.errorType))
		})
	}
}

func TestNewErrorCarriesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	cause := errors.New("disk full")

	err := NewError(ctx, LayerDomain, ErrorTypeStorageFailure, "failed to store upload", cause, "b3b0a5f4-0000-4000-8000-000000000001")

	assert.Equal(t, "req-123", err.GetRequestID())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "STORAGE_FAILURE")
}

func TestIsErrorTypeThroughWrapping(t *testing.T) {
	base := NewError(context.Background(), LayerDomain, ErrorTypeNotFound, "media item not found", nil, "id")
	wrapped := fmt.Errorf("lookup: %w", base)

	assert.True(t, IsErrorType(wrapped, ErrorTypeNotFound))
	assert.False(t, IsErrorType(wrapped, ErrorTypeRejectedInput))
	assert.False(t, IsErrorType(errors.New("plain"), ErrorTypeNotFound))
	assert.Nil(t, GetPlatformError(nil))
}
