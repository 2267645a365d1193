package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationf_WrapsSentinel(t *testing.T) {
	err := Validationf("password must be at least %d characters", MinPasswordLength)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "at least 6 characters")
}

func TestRetryAfterError_UnwrapAndPayload(t *testing.T) {
	err := fmt.Errorf("resend: %w", &RetryAfterError{Err: ErrRateLimited, Seconds: 42})

	require.ErrorIs(t, err, ErrRateLimited)
	secs, ok := RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 42, secs)
}

func TestVerificationRequiredError_UnwrapAndPayload(t *testing.T) {
	var err error = &VerificationRequiredError{Email: "a@b.co", RetryAfter: 180}

	require.ErrorIs(t, err, ErrEmailNotVerified)
	var vr *VerificationRequiredError
	require.True(t, errors.As(err, &vr))
	assert.Equal(t, "a@b.co", vr.Email)

	secs, ok := RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 180, secs)
}

func TestRetryAfter_PlainError(t *testing.T) {
	_, ok := RetryAfter(ErrStorage)
	assert.False(t, ok)
}
