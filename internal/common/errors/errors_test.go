package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeUnsupportedMedia, http.StatusBadRequest},
		{ErrCodeUnauthenticated, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidTransition, http.StatusConflict},
		{ErrCodeDuplicate, http.StatusConflict},
		{ErrCodeCourtConflict, http.StatusConflict},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeQueryExecutionFailed, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestNormalize_UnwrapsChains(t *testing.T) {
	base := NewNotFoundError("Proposal", "p-1")
	wrapped := fmt.Errorf("load proposal: %w", base)

	got := Normalize(wrapped)
	assert.Same(t, base, got)
	assert.Equal(t, ErrCodeNotFound, CodeOf(wrapped))
	assert.True(t, stderrors.Is(wrapped, &StandardError{Code: ErrCodeNotFound}))
	assert.False(t, stderrors.Is(wrapped, &StandardError{Code: ErrCodeForbidden}))
}

func TestNormalize_ForeignError(t *testing.T) {
	got := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, got.Code)
	assert.Equal(t, "boom", got.Details)
}

func TestConvertToBPMNError(t *testing.T) {
	retryable := NewNotificationSendFailedError("email", stderrors.New("throttled"))
	b := ConvertToBPMNError(retryable)
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", b.Code)
	assert.Equal(t, 3, b.Retries)
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", b.ToErrorVariables()["originalErrorCode"])

	business := NewInvalidTransitionError("completed", "booked")
	b = ConvertToBPMNError(business)
	assert.Equal(t, 0, b.Retries)
	assert.False(t, b.Retryable)
}

func TestValidationErrorCarriesFields(t *testing.T) {
	err := NewValidationError("Please fix the highlighted fields", map[string]string{"email": "invalid email"})
	require.Contains(t, err.Fields, "email")
	assert.Equal(t, "VALIDATION", GetErrorCategory(err.Code))
	assert.Equal(t, "LIFECYCLE", GetErrorCategory(ErrCodeCourtConflict))
	assert.False(t, IsRetryableErrorCode(err.Code))
}
