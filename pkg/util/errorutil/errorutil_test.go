package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainErrorPassesThroughWrapped(t *testing.T) {
	base := NewNotFound("order", map[string]any{"order_id": "o-1"})
	wrapped := fmt.Errorf("load: %w", base)

	got := ToDomainError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
	assert.Equal(t, "order not found", got.Message)
}

func TestToDomainErrorHidesUnknownErrors(t *testing.T) {
	got := ToDomainError(errors.New("connection reset by peer"))
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.Equal(t, "internal server error", got.Message)
	assert.EqualError(t, got.Unwrap(), "connection reset by peer")
}

func TestFieldValidationError(t *testing.T) {
	err := NewFieldValidationError(map[string]string{"delivery_address": "must be at least 10 characters"})
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Equal(t, "must be at least 10 characters", ToDomainError(err).Fields["delivery_address"])
	assert.Nil(t, ToDomainError(nil))
}
